// Package profile maps seven-locus allele profiles to sequence types (STs).
package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sbt/allele"
	"github.com/grailbio/sbt/locus"
)

// Codes reported in place of an ST.
const (
	// MultipleAlleles: at least one locus is ambiguous.
	MultipleAlleles = "MA?"
	// MissingData: at least one locus has no allele.
	MissingData = "MD-"
	// Novel: every locus has an allele but the combination is not catalogued.
	Novel = "Novel ST"
)

// Table is a profile table: a header line, then one row per ST of the form
// "ST<tab>allele1<tab>...<tab>allele7".
type Table struct {
	rows []string
}

// Parse reads a table. The first line is a header and is skipped.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{}
	sc := bufio.NewScanner(r)
	for n := 0; sc.Scan(); n++ {
		if n == 0 {
			continue
		}
		line := strings.TrimRight(sc.Text(), "\r\n\t ")
		if line == "" {
			continue
		}
		if !strings.Contains(line, "\t") {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("profile table line %d: no tab", n+1))
		}
		t.rows = append(t.rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read profile table")
	}
	return t, nil
}

// Load reads the table at path.
func Load(ctx context.Context, path string) (t *Table, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if t, err = Parse(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	return t, nil
}

// Len is the number of STs in the table.
func (t *Table) Len() int { return len(t.rows) }

// Lookup returns the ST of the first row that ends with the tab-joined
// alleles.
func (t *Table) Lookup(alleles []string) (string, bool) {
	suffix := "\t" + strings.Join(alleles, "\t")
	for _, row := range t.rows {
		if strings.HasSuffix(row, suffix) {
			return row[:strings.IndexByte(row, '\t')], true
		}
	}
	return "", false
}

// Resolve returns the ST of calls, given in locus.Order, or one of the
// fallback codes.
func (t *Table) Resolve(calls []allele.Call) string {
	for _, c := range calls {
		if c.Status == allele.Ambiguous {
			return MultipleAlleles
		}
	}
	alleles := make([]string, len(calls))
	for i, c := range calls {
		if c.Status == allele.NotFound {
			return MissingData
		}
		alleles[i] = c.Allele
	}
	if st, ok := t.Lookup(alleles); ok {
		return st
	}
	return Novel
}

// Profile is the typing result of one isolate.
type Profile struct {
	Sample string
	ST     string
	// Calls are in locus.Order.
	Calls []allele.Call
}

// New orders calls by locus.Order and resolves the ST. A locus missing from
// calls is reported as not found.
func New(t *Table, sample string, calls map[string]allele.Call) Profile {
	p := Profile{Sample: sample, Calls: make([]allele.Call, len(locus.Order))}
	for i, loc := range locus.Order {
		c, ok := calls[loc]
		if !ok {
			c = allele.Call{Locus: loc, Status: allele.NotFound}
		}
		p.Calls[i] = c
	}
	p.ST = t.Resolve(p.Calls)
	return p
}

// Alleles returns the rendered calls.
func (p Profile) Alleles() []string {
	s := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		s[i] = c.String()
	}
	return s
}

// Format controls WriteTSV.
type Format struct {
	// Header writes "ST<tab>flaA<tab>...<tab>neuA_neuAH" first.
	Header bool
	// Sample adds a leading sample id column.
	Sample bool
}

// WriteTSV writes one row per profile.
func WriteTSV(w io.Writer, f Format, profiles ...Profile) error {
	tw := tsv.NewWriter(w)
	if f.Header {
		if f.Sample {
			tw.WriteString("Sample")
		}
		tw.WriteString("ST")
		for _, loc := range locus.Order {
			tw.WriteString(loc)
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	for _, p := range profiles {
		if f.Sample {
			tw.WriteString(p.Sample)
		}
		tw.WriteString(p.ST)
		for _, a := range p.Alleles() {
			tw.WriteString(a)
		}
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
