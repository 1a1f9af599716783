package pcr

import (
	"context"
	"strings"

	"github.com/grailbio/sbt/encoding/fasta"
)

// Config controls primer binding in Engine.
type Config struct {
	// MaxMM is the number of mismatches allowed per primer.
	MaxMM int
	// MinPerfect is the number of 3' bases that must match exactly.
	MinPerfect int
	MinLen     int
	MaxLen     int
}

// DefaultConfig mirrors the isPcr options used for mompS.
var DefaultConfig = Config{MaxMM: 2, MinPerfect: 5, MaxLen: MaxProduct}

// Engine is an in-process Amplifier.
type Engine struct {
	cfg Config
}

// New returns an Engine.
func New(c Config) *Engine { return &Engine{cfg: c} }

// rcToFwd converts a match on the reverse complement to the forward-strand
// offset of its first base.
func rcToFwd(seqLen int, rc match) int {
	return seqLen - (rc.pos + rc.length)
}

// Simulate returns the products of p on one template.
func (e *Engine) Simulate(name, seq string, p Pair) []Product {
	seq = strings.ToUpper(seq)
	fwd, rev := strings.ToUpper(p.Forward), strings.ToUpper(p.Reverse)
	rc := RevComp(seq)
	var out []Product
	join := func(a, bRC []match, strand byte) {
		for _, ma := range a {
			for _, mb := range bRC {
				bStart := rcToFwd(len(seq), mb)
				if bStart <= ma.pos {
					continue
				}
				end := bStart + mb.length
				n := end - ma.pos
				if (e.cfg.MinLen != 0 && n < e.cfg.MinLen) || (e.cfg.MaxLen != 0 && n > e.cfg.MaxLen) {
					continue
				}
				prod := Product{Pair: p.ID, Template: name, Start: ma.pos, End: end, Strand: strand, Seq: seq[ma.pos:end]}
				if strand == '-' {
					prod.Seq = RevComp(prod.Seq)
				}
				out = append(out, prod)
			}
		}
	}
	// Forward primer on the top strand, reverse primer on the bottom.
	join(findMatches(seq, fwd, e.cfg.MaxMM, e.cfg.MinPerfect), findMatches(rc, rev, e.cfg.MaxMM, e.cfg.MinPerfect), '+')
	// Reverse primer on the top strand: the amplicon reads from the bottom.
	join(findMatches(seq, rev, e.cfg.MaxMM, e.cfg.MinPerfect), findMatches(rc, fwd, e.cfg.MaxMM, e.cfg.MinPerfect), '-')
	return out
}

// Amplify implements Amplifier.
func (e *Engine) Amplify(ctx context.Context, t Templates, p Pair) ([]Product, error) {
	recs := t.Records
	if t.Path != "" {
		fa, err := fasta.Open(ctx, t.Path)
		if err != nil {
			return nil, err
		}
		recs = fa.Records()
	}
	var out []Product
	for _, r := range recs {
		out = append(out, e.Simulate(r.Name, r.Seq, p)...)
	}
	return out, nil
}
