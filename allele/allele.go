/*Package allele resolves locus sequences to catalogued allele numbers.

  Alleles are found by exact search (100% identity over the whole allele)
  against per-locus databases named "<dir>/<locus><suffix>". When an assembly
  carries more than one mompS allele, the copy between the mompS primers is
  isolated by nested in-silico PCR and searched on its own.
*/
package allele

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/blast"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/pcr"
)

// Status is the outcome of an allele search.
type Status int

const (
	// Found means exactly one allele matched.
	Found Status = iota
	// NotFound means no allele matched.
	NotFound
	// Ambiguous means more than one distinct allele matched.
	Ambiguous
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Ambiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Call is the allele assigned to one locus.
type Call struct {
	Locus  string
	Status Status
	// Allele is the allele number when Status is Found.
	Allele string
	// LowConfidence is set when the sequence was rebuilt from reads without
	// adequate depth.
	LowConfidence bool
}

// String renders the call as it appears in a profile: "<n>", "<n>?", "-" or
// "?".
func (c Call) String() string {
	switch c.Status {
	case Found:
		if c.LowConfidence {
			return c.Allele + "?"
		}
		return c.Allele
	case Ambiguous:
		return "?"
	}
	return "-"
}

// fromAlleles builds the call for a list of distinct allele ids.
func fromAlleles(loc string, ids []string) Call {
	switch len(ids) {
	case 0:
		return Call{Locus: loc, Status: NotFound}
	case 1:
		return Call{Locus: loc, Status: Found, Allele: ids[0]}
	}
	return Call{Locus: loc, Status: Ambiguous}
}

// Evidence is what a call was based on.
type Evidence struct {
	Hits []blast.Hit
	// PCR and NestedHits are set when nested primers were used.
	PCR        *pcr.NestedResult
	NestedHits []blast.Hit
	// Closest is set when a sequence rebuilt from reads matched no allele.
	Closest *Nearest
}

// Identifier searches the allele databases.
type Identifier struct {
	Searcher  blast.Searcher
	Amplifier pcr.Amplifier
	// DBDir holds the allele databases, one per locus.
	DBDir string
	// Suffix completes a database file name, e.g. "_alleles.tfa".
	Suffix string
	// Ref supplies the mompS primer pairs.
	Ref *locus.Reference
}

// DB returns the database path of loc.
func (id *Identifier) DB(loc string) string {
	return filepath.Join(id.DBDir, loc+id.Suffix)
}

func (id *Identifier) search(ctx context.Context, loc string, q blast.Query) (Call, []blast.Hit, error) {
	hits, err := id.Searcher.Search(ctx, id.DB(loc), q)
	if err != nil {
		return Call{}, nil, err
	}
	ids := blast.Alleles(hits, loc)
	log.Debug.Printf("%s: %d hits, alleles %v", loc, len(hits), ids)
	return fromAlleles(loc, ids), hits, nil
}

// FromSequence identifies a sequence rebuilt from reads. Only an exact hit
// is accepted. lowConfidence is carried into a Found call; for a sequence
// without a match the closest catalogued allele is looked up.
func (id *Identifier) FromSequence(ctx context.Context, loc, seq string, lowConfidence bool) (Call, Evidence, error) {
	q := blast.Query{Records: []fasta.Record{{Name: loc, Seq: seq}}}
	call, hits, err := id.search(ctx, loc, q)
	if err != nil {
		return Call{}, Evidence{}, err
	}
	ev := Evidence{Hits: hits}
	switch call.Status {
	case Found:
		call.LowConfidence = lowConfidence
	case NotFound:
		ev.Closest = id.closest(ctx, loc, seq)
	}
	return call, ev, nil
}

// FromAssembly identifies loc in the assembly FASTA at path.
func (id *Identifier) FromAssembly(ctx context.Context, loc, assembly string) (Call, Evidence, error) {
	call, hits, err := id.search(ctx, loc, blast.Query{Path: assembly})
	if err != nil {
		return Call{}, Evidence{}, err
	}
	return call, Evidence{Hits: hits}, nil
}

// MompSFromAssembly identifies mompS in an assembly. A single distinct allele
// is returned directly. With several, the outer mompS primers are run on the
// assembly and the nested primers on the outer products, and the nested
// products are searched. A missing product at either stage gives NotFound.
func (id *Identifier) MompSFromAssembly(ctx context.Context, assembly string) (Call, Evidence, error) {
	call, hits, err := id.search(ctx, locus.MompS, blast.Query{Path: assembly})
	if err != nil || call.Status != Ambiguous {
		return call, Evidence{Hits: hits}, err
	}
	log.Printf("%s: %d alleles in assembly, running nested primers", locus.MompS, len(blast.Alleles(hits, locus.MompS)))
	res, err := pcr.Nested(ctx, id.Amplifier, pcr.Templates{Path: assembly},
		pcr.FromLocus(id.Ref.OuterPrimers()), pcr.FromLocus(id.Ref.NestedPrimers()))
	if err != nil {
		return Call{}, Evidence{}, err
	}
	ev := Evidence{Hits: hits, PCR: &res}
	if len(res.Inner) == 0 {
		log.Printf("%s: no nested primer product", locus.MompS)
		return Call{Locus: locus.MompS, Status: NotFound}, ev, nil
	}
	call, ev.NestedHits, err = id.search(ctx, locus.MompS, blast.Query{Records: res.Records()})
	if err != nil {
		return Call{}, Evidence{}, err
	}
	return call, ev, nil
}
