// Package fasta reads and writes the small FASTA files handled during typing:
// the locus reference, allele databases, genome assemblies and in-silico PCR
// products. FASTA files consist of a number of named sequences that may be
// interrupted by newlines.  For example:
//
// >contig_1 length=2311
// ACGTAC
// GAGGAC
// >contig_2
// ACGT
//
// Sequence names are the stretch of characters excluding spaces immediately
// after '>'.  '>contig_1 length=2311' becomes 'contig_1'.
package fasta

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 64 // 64 MB
	lineWidth      = 60
)

// Record is one named sequence.
type Record struct {
	Name string
	Seq  string
}

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence name at the given
	// coordinates, which are treated as a 0-based half-open interval
	// [start, end).
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string

	// Records returns all sequences in the order of appearance.
	Records() []Record
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// ReadRecords parses all sequences from r, in order. Sequence text is
// upper-cased.
func ReadRecords(r io.Reader) ([]Record, error) {
	var (
		recs    []Record
		seqName string
		started bool
		seq     strings.Builder
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if started {
				recs = append(recs, Record{Name: seqName, Seq: seq.String()})
				seq.Reset()
			}
			seqName = strings.Split(line[1:], " ")[0]
			if seqName == "" {
				return nil, errors.Errorf("malformed FASTA file: empty sequence name")
			}
			started = true
			continue
		}
		if !started {
			return nil, errors.Errorf("malformed FASTA file: sequence data before first header")
		}
		seq.WriteString(strings.ToUpper(line))
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if started {
		recs = append(recs, Record{Name: seqName, Seq: seq.String()})
	}
	return recs, nil
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory.
func New(r io.Reader) (Fasta, error) {
	recs, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs)
}

// FromRecords creates a Fasta from already parsed records.  Names must be
// unique.
func FromRecords(recs []Record) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string, len(recs))}
	for _, r := range recs {
		if _, ok := f.seqs[r.Name]; ok {
			return nil, errors.Errorf("duplicate sequence name: %s", r.Name)
		}
		f.seqs[r.Name] = r.Seq
		f.seqNames = append(f.seqNames, r.Name)
	}
	return f, nil
}

// Open reads the FASTA file at path. Files ending in ".gz" are decompressed.
func Open(ctx context.Context, path string) (fa Fasta, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	fa, err = New(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return fa, nil
}

// Write writes the records to w, wrapping sequence lines at 60 bases.
func Write(w io.Writer, recs ...Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		if _, err := fmt.Fprintf(bw, ">%s\n", r.Name); err != nil {
			return err
		}
		for off := 0; off < len(r.Seq); off += lineWidth {
			end := off + lineWidth
			if end > len(r.Seq) {
				end = len(r.Seq)
			}
			bw.WriteString(r.Seq[off:end]) // nolint: errcheck
			bw.WriteByte('\n')             // nolint: errcheck
		}
	}
	return bw.Flush()
}

// Create writes the records to a new file at path.
func Create(ctx context.Context, path string, recs ...Record) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := Write(out.Writer(ctx), recs...); err != nil {
		out.Close(ctx) // nolint: errcheck
		return errors.Wrapf(err, "write %s", path)
	}
	return out.Close(ctx)
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", fmt.Errorf("start must be less than end")
	}
	if end > uint64(len(s)) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seq string) (uint64, error) {
	s, ok := f.seqs[seq]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seq)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}

// Records implements Fasta.Records().
func (f *fasta) Records() []Record {
	recs := make([]Record, len(f.seqNames))
	for i, name := range f.seqNames {
		recs[i] = Record{Name: name, Seq: f.seqs[name]}
	}
	return recs
}
