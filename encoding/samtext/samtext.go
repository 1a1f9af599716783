// Package samtext parses SAM text as written by short-read aligners, keeping
// each record's original line so that subsets of a file can be emitted
// verbatim.
package samtext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// Number of mandatory SAM columns.
const numColumns = 11

// Record is one alignment line.
type Record struct {
	Name  string
	Flags sam.Flags
	Ref   string
	// Pos is the 1-based leftmost mapping position; 0 when unmapped.
	Pos   int
	Cigar sam.Cigar
	// Text is the original line, without the trailing newline.
	Text string
}

// Parse parses one SAM alignment line.
func Parse(line string) (Record, error) {
	cols := strings.SplitN(line, "\t", numColumns+1)
	if len(cols) < numColumns {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("SAM record has %d columns, want at least %d: %q", len(cols), numColumns, line))
	}
	flags, err := strconv.ParseUint(cols[1], 10, 16)
	if err != nil {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("SAM record %s: bad FLAG %q", cols[0], cols[1]))
	}
	pos, err := strconv.Atoi(cols[3])
	if err != nil || pos < 0 {
		return Record{}, errors.E(errors.Invalid, fmt.Sprintf("SAM record %s: bad POS %q", cols[0], cols[3]))
	}
	var cigar sam.Cigar
	if cols[5] != "*" {
		if cigar, err = sam.ParseCigar([]byte(cols[5])); err != nil {
			return Record{}, errors.E(errors.Invalid, fmt.Sprintf("SAM record %s: bad CIGAR %q", cols[0], cols[5]), err)
		}
	}
	return Record{
		Name:  cols[0],
		Flags: sam.Flags(flags),
		Ref:   cols[2],
		Pos:   pos,
		Cigar: cigar,
		Text:  line,
	}, nil
}

// RefSpan returns the aligned reference length of the record: the bases
// consumed on the reference by its CIGAR (M, D, N, = and X). A record without
// an alignment-match operation has no usable span and is reported as
// malformed.
func (r Record) RefSpan() (int, error) {
	found := false
	for _, co := range r.Cigar {
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			found = true
		}
	}
	if !found {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("SAM record %s: no match-length token in CIGAR %q", r.Name, r.Cigar.String()))
	}
	ref, _ := r.Cigar.Lengths()
	return ref, nil
}

// Mapped reports whether the record is a primary, mapped, non-duplicate
// alignment that passed QC; the records depth is counted from.
func (r Record) Mapped() bool {
	return r.Flags&(sam.Unmapped|sam.Secondary|sam.QCFail|sam.Duplicate) == 0 && r.Pos > 0
}

// Scanner iterates over a SAM text stream. Header lines are collected
// separately and returned by Header.
type Scanner struct {
	sc     *bufio.Scanner
	header strings.Builder
	rec    Record
	line   int
	err    error
}

// NewScanner creates a scanner over r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 16<<20)
	return &Scanner{sc: sc}
}

// Scan advances to the next alignment record. It returns false at the end of
// the input or on the first error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		s.line++
		line := strings.TrimRight(s.sc.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '@' {
			s.header.WriteString(line)
			s.header.WriteByte('\n')
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			s.err = errors.E(err, fmt.Sprintf("line %d", s.line))
			return false
		}
		s.rec = rec
		return true
	}
	s.err = s.sc.Err()
	return false
}

// Record returns the current record.
func (s *Scanner) Record() Record { return s.rec }

// Header returns the header lines seen so far, newline terminated.
func (s *Scanner) Header() string { return s.header.String() }

// Err returns the first error encountered.
func (s *Scanner) Err() error { return s.err }
