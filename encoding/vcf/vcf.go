// Package vcf reads the subset of VCF needed to rebuild a locus sequence from
// variant calls: POS, REF, ALT and the allele balance (AB) INFO field written
// by freebayes. It is not a general VCF parser.
package vcf

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Balance is an allele balance reading. It holds one value per alternate
// allele; more than one value marks a multi-allelic site.
type Balance []float64

// ParseBalance parses an AB value such as "0", "0.45" or "0.3,0.2".
func ParseBalance(s string) (Balance, error) {
	if s == "" {
		return nil, errors.E(errors.Invalid, "empty allele balance")
	}
	parts := strings.Split(s, ",")
	b := make(Balance, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || strings.ContainsAny(p, "xX") {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("malformed allele balance %q", s))
		}
		b[i] = v
	}
	return b, nil
}

// Multi reports whether the reading is a multi-valued list.
func (b Balance) Multi() bool { return len(b) > 1 }

// Zero reports whether the reading is the single value 0, which freebayes
// writes for homozygous calls.
func (b Balance) Zero() bool { return len(b) == 1 && b[0] == 0 }

// Value is the magnitude of a single-valued reading. For a multi-valued
// reading it is the largest value.
func (b Balance) Value() float64 {
	var m float64
	for _, v := range b {
		if v > m {
			m = v
		}
	}
	return m
}

func (b Balance) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Call is one variant row.
type Call struct {
	// Pos is the 1-based position of the first REF base.
	Pos int
	Ref string
	// Alt is the ALT column; comma-separated for multi-allelic sites.
	Alt     string
	Balance Balance
}

// Alleles returns the alternate alleles.
func (c Call) Alleles() []string { return strings.Split(c.Alt, ",") }

// BestAlt returns the alternate allele to use in a sequence. For
// multi-allelic sites it is the allele with the largest balance value, the
// first one on ties.
func (c Call) BestAlt() string {
	alts := c.Alleles()
	if len(alts) == 1 || len(alts) != len(c.Balance) {
		return alts[0]
	}
	best := 0
	for i := range alts {
		if c.Balance[i] > c.Balance[best] {
			best = i
		}
	}
	return alts[best]
}

// CallSet holds the calls of one VCF, keyed by position.
type CallSet map[int]Call

// Positions returns the call positions in increasing order.
func (s CallSet) Positions() []int {
	pos := make([]int, 0, len(s))
	for p := range s {
		pos = append(pos, p)
	}
	sort.Ints(pos)
	return pos
}

// ParseInfo extracts the AB field from an INFO column.
func ParseInfo(info string) (Balance, error) {
	for _, kv := range strings.Split(info, ";") {
		if strings.HasPrefix(kv, "AB=") {
			return ParseBalance(kv[len("AB="):])
		}
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("no AB field in INFO %q", info))
}

// row is the prefix of a VCF data line; FORMAT and sample columns are
// ignored.
type row struct {
	Chrom  string
	Pos    string
	ID     string
	Ref    string
	Alt    string
	Qual   string
	Filter string
	Info   string
}

// Read parses VCF text. Header lines are skipped. Two calls at the same
// position are an error.
func Read(r io.Reader) (CallSet, error) {
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	tr.LazyQuotes = true
	tr.FieldsPerRecord = -1
	calls := CallSet{}
	var rw row
	for n := 1; ; n++ {
		if err := tr.Read(&rw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf record %d", n), err)
		}
		pos, err := strconv.Atoi(rw.Pos)
		if err != nil || pos < 1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf record %d: bad POS %q", n, rw.Pos))
		}
		if rw.Ref == "" || rw.Alt == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf record %d: empty REF or ALT", n))
		}
		ab, err := ParseInfo(rw.Info)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("vcf record %d (POS %d)", n, pos))
		}
		if _, ok := calls[pos]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("vcf record %d: second call at POS %d", n, pos))
		}
		calls[pos] = Call{Pos: pos, Ref: strings.ToUpper(rw.Ref), Alt: strings.ToUpper(rw.Alt), Balance: ab}
	}
	return calls, nil
}

// ReadFile parses the VCF file at path.
func ReadFile(ctx context.Context, path string) (calls CallSet, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if calls, err = Read(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	return calls, nil
}
