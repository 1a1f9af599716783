/*Package pcr simulates PCR amplification of templates by primer pairs.

  Engine runs in process; IsPcr drives the UCSC isPcr program. Nested chains
  two amplifications, feeding the products of the outer pair to the inner
  pair as templates.
*/
package pcr

import (
	"context"
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/locus"
)

// MaxProduct is the largest product reported, as isPcr -maxSize.
const MaxProduct = 1200

// Pair is a primer pair. Both primers are written 5' to 3'.
type Pair struct {
	ID      string
	Forward string
	Reverse string
}

// FromLocus converts a locus primer pair.
func FromLocus(p locus.PrimerPair) Pair {
	return Pair{ID: p.ID, Forward: p.Forward, Reverse: p.Reverse}
}

// Product is one amplicon.
type Product struct {
	Pair     string `json:"pair"`
	Template string `json:"template"`
	// Start and End delimit the product on the template, 0-based, half-open.
	Start int `json:"start"`
	End   int `json:"end"`
	// Strand is '-' when the forward primer binds the reverse strand of the
	// template. Seq is always written from the forward primer.
	Strand byte   `json:"-"`
	Seq    string `json:"seq"`
}

// Name follows the isPcr naming of products, e.g. "contig_3:274+987".
func (p Product) Name() string {
	return fmt.Sprintf("%s:%d%c%d", p.Template, p.Start+1, p.Strand, p.End)
}

// Record returns the product as a FASTA record.
func (p Product) Record() fasta.Record {
	return fasta.Record{Name: p.Name(), Seq: p.Seq}
}

// Templates are the sequences to amplify: a FASTA file or in-memory records.
type Templates struct {
	Path    string
	Records []fasta.Record
}

// Amplifier produces the amplicons of a primer pair on a set of templates.
type Amplifier interface {
	Amplify(ctx context.Context, t Templates, p Pair) ([]Product, error)
}

// NestedResult holds both stages of a nested amplification.
type NestedResult struct {
	Outer []Product `json:"outer"`
	Inner []Product `json:"inner"`
}

// Records returns the inner products as FASTA records.
func (r NestedResult) Records() []fasta.Record {
	recs := make([]fasta.Record, len(r.Inner))
	for i, p := range r.Inner {
		recs[i] = p.Record()
	}
	return recs
}

// Nested amplifies t with outer, then amplifies the outer products with inner.
// When outer yields nothing, inner is not run.
func Nested(ctx context.Context, amp Amplifier, t Templates, outer, inner Pair) (NestedResult, error) {
	var (
		res NestedResult
		err error
	)
	if res.Outer, err = amp.Amplify(ctx, t, outer); err != nil {
		return res, err
	}
	log.Debug.Printf("pcr %s: %d products", outer.ID, len(res.Outer))
	if len(res.Outer) == 0 {
		return res, nil
	}
	stage := Templates{Records: make([]fasta.Record, len(res.Outer))}
	for i, p := range res.Outer {
		stage.Records[i] = p.Record()
	}
	if res.Inner, err = amp.Amplify(ctx, stage, inner); err != nil {
		return res, err
	}
	log.Debug.Printf("pcr %s: %d products", inner.ID, len(res.Inner))
	return res, nil
}
