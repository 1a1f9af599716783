// Package locus describes the reference used to resolve mompS alleles from
// reads, and the fixed set of loci of the Legionella pneumophila SBT scheme.
//
// A Reference is immutable once constructed; every component receives it as an
// explicit argument.
package locus

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/sbt/encoding/fasta"
	"gopkg.in/yaml.v2"
)

// MompS is the name of the locus resolved through read mapping.
const MompS = "mompS"

// Order is the fixed locus order of an allelic profile.
var Order = []string{"flaA", "pilE", "asd", "mip", MompS, "proA", "neuA_neuAH"}

// PrimerPair is an anchored primer pair, both primers written 5'->3'.
type PrimerPair struct {
	ID      string `yaml:"id"`
	Forward string `yaml:"forward"`
	Reverse string `yaml:"reverse"`
}

// Reference describes the mapping reference of a locus. Coordinates are
// 1-based and closed.
type Reference struct {
	name        string
	seq         string
	alleleStart int
	alleleStop  int
	flankStart  int
	flankStop   int
	outer       PrimerPair
	nested      PrimerPair
}

// Spec is the serialized form of a Reference.
type Spec struct {
	Name        string     `yaml:"name"`
	Seq         string     `yaml:"seq"`
	AlleleStart int        `yaml:"allele_start"`
	AlleleStop  int        `yaml:"allele_stop"`
	FlankStart  int        `yaml:"flank_start"`
	FlankStop   int        `yaml:"flank_stop"`
	Outer       PrimerPair `yaml:"outer_primers"`
	Nested      PrimerPair `yaml:"nested_primers"`
}

// New validates s and returns the Reference it describes. It requires
// 1 <= flank_start < allele_start < allele_stop < flank_stop <= len(seq).
func New(s Spec) (*Reference, error) {
	seq := strings.ToUpper(strings.TrimSpace(s.Seq))
	if s.Name == "" {
		return nil, errors.E(errors.Invalid, "reference has no name")
	}
	if len(seq) == 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("reference %s has no sequence", s.Name))
	}
	if strings.Trim(seq, "ACGTN") != "" {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("reference %s: non-nucleotide characters in sequence", s.Name))
	}
	if !(1 <= s.FlankStart && s.FlankStart < s.AlleleStart && s.AlleleStart < s.AlleleStop &&
		s.AlleleStop < s.FlankStop && s.FlankStop <= len(seq)) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf(
			"reference %s: coordinates must satisfy 1 <= flank_start(%d) < allele_start(%d) < allele_stop(%d) < flank_stop(%d) <= length(%d)",
			s.Name, s.FlankStart, s.AlleleStart, s.AlleleStop, s.FlankStop, len(seq)))
	}
	for _, p := range []PrimerPair{s.Outer, s.Nested} {
		if p.Forward == "" || p.Reverse == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("reference %s: primer pair %q is incomplete", s.Name, p.ID))
		}
	}
	return &Reference{
		name:        s.Name,
		seq:         seq,
		alleleStart: s.AlleleStart,
		alleleStop:  s.AlleleStop,
		flankStart:  s.FlankStart,
		flankStop:   s.FlankStop,
		outer:       upperPair(s.Outer),
		nested:      upperPair(s.Nested),
	}, nil
}

func upperPair(p PrimerPair) PrimerPair {
	p.Forward = strings.ToUpper(p.Forward)
	p.Reverse = strings.ToUpper(p.Reverse)
	return p
}

// Parse reads a YAML reference descriptor.
func Parse(r io.Reader) (*Reference, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Spec
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, errors.E(errors.Invalid, "parse reference descriptor", err)
	}
	return New(s)
}

// Load reads a YAML reference descriptor from path.
func Load(ctx context.Context, path string) (ref *Reference, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if ref, err = Parse(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	return ref, nil
}

// Name is the sequence name used in the reference FASTA and in alignments.
func (r *Reference) Name() string { return r.name }

// Seq is the reference sequence.
func (r *Reference) Seq() string { return r.seq }

// Len is the length of the reference sequence.
func (r *Reference) Len() int { return len(r.seq) }

// AlleleStart is the first position of the typed allele.
func (r *Reference) AlleleStart() int { return r.alleleStart }

// AlleleStop is the last position of the typed allele.
func (r *Reference) AlleleStop() int { return r.alleleStop }

// FlankStart is the first position of the flank window.
func (r *Reference) FlankStart() int { return r.flankStart }

// FlankStop is the last position of the flank window.
func (r *Reference) FlankStop() int { return r.flankStop }

// OuterPrimers is the first-stage anchored primer pair.
func (r *Reference) OuterPrimers() PrimerPair { return r.outer }

// NestedPrimers is the second-stage primer pair, applied to outer products.
func (r *Reference) NestedPrimers() PrimerPair { return r.nested }

// InAllele reports whether the 1-based position pos lies in the allele region.
func (r *Reference) InAllele(pos int) bool {
	return pos >= r.alleleStart && pos <= r.alleleStop
}

// AlleleSlice extracts the allele region, in reference coordinates, from a
// sequence built over the reference.
func (r *Reference) AlleleSlice(seq string) (string, error) {
	if len(seq) < r.alleleStop {
		return "", errors.E(errors.Invalid, fmt.Sprintf(
			"sequence of length %d does not cover allele region %d-%d", len(seq), r.alleleStart, r.alleleStop))
	}
	return seq[r.alleleStart-1 : r.alleleStop], nil
}

// Record returns the reference as a FASTA record.
func (r *Reference) Record() fasta.Record {
	return fasta.Record{Name: r.name, Seq: r.seq}
}

// Spec returns the serialized form of r.
func (r *Reference) Spec() Spec {
	return Spec{
		Name:        r.name,
		Seq:         r.seq,
		AlleleStart: r.alleleStart,
		AlleleStop:  r.alleleStop,
		FlankStart:  r.flankStart,
		FlankStop:   r.flankStop,
		Outer:       r.outer,
		Nested:      r.nested,
	}
}
