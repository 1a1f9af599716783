/*Package reconcile rebuilds a locus sequence from two variant call sets made
  against the same reference: "full", called from every properly-paired read,
  and "filtered", called from the pairs that cross the locus flanks (see
  package partition).

  Positions of the full set are visited in increasing order. Each call inside
  the allele region replaces the reference bases it covers with exactly one of
  the reference allele, the full alternate or the filtered alternate. Calls
  outside the allele region are ignored. The reference is copied verbatim
  between edits, so the result has no gaps and no overlaps.
*/
package reconcile

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/encoding/vcf"
	"github.com/grailbio/sbt/locus"
)

// Source identifies where an emitted allele came from.
type Source int

const (
	// Reference means the reference allele was kept.
	Reference Source = iota
	// Full means the alternate allele of the full call set was used.
	Full
	// Filtered means the alternate allele of the filtered call set was used.
	Filtered
)

func (s Source) String() string {
	switch s {
	case Reference:
		return "reference"
	case Full:
		return "full"
	case Filtered:
		return "filtered"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Edit records the decision taken at one variant position.
type Edit struct {
	// Pos is the 1-based reference position of the call.
	Pos    int
	Source Source
	// Ref is the reference allele replaced by Emitted.
	Ref     string
	Emitted string
}

// Consensus is the reconciled sequence of a whole reference.
type Consensus struct {
	Seq   string
	Edits []Edit
}

// decide applies the allele balance rules to one allele-region call.
func decide(call vcf.Call, filtered vcf.CallSet) (Source, string) {
	if call.Balance.Zero() {
		return Full, call.BestAlt()
	}
	f, ok := filtered[call.Pos]
	switch {
	case !ok:
		return Reference, call.Ref
	case f.Balance.Multi() || call.Balance.Multi():
		return Filtered, f.BestAlt()
	case f.Balance.Zero() || f.Balance.Value() > call.Balance.Value():
		return Full, call.BestAlt()
	default:
		return Reference, call.Ref
	}
}

// Reconcile merges full and filtered into a consensus of ref. A call whose REF
// does not match the reference, that overlaps the bases consumed by a
// previous call, or that runs past the end of the reference is an
// errors.Invalid error.
func Reconcile(ref *locus.Reference, full, filtered vcf.CallSet) (Consensus, error) {
	var (
		seq    = ref.Seq()
		out    strings.Builder
		edits  []Edit
		anchor int
	)
	out.Grow(len(seq))
	for _, pos := range full.Positions() {
		call := full[pos]
		if !ref.InAllele(pos) {
			log.Debug.Printf("reconcile %s: %d outside allele region, skipped", ref.Name(), pos)
			continue
		}
		start, end := pos-1, pos-1+len(call.Ref)
		if start < anchor {
			return Consensus{}, errors.E(errors.Invalid,
				fmt.Sprintf("reconcile %s: call at %d overlaps bases consumed up to %d", ref.Name(), pos, anchor))
		}
		if end > len(seq) {
			return Consensus{}, errors.E(errors.Invalid,
				fmt.Sprintf("reconcile %s: call at %d extends past reference end %d", ref.Name(), pos, len(seq)))
		}
		if seq[start:end] != call.Ref {
			return Consensus{}, errors.E(errors.Invalid,
				fmt.Sprintf("reconcile %s: REF %s at %d does not match reference %s", ref.Name(), call.Ref, pos, seq[start:end]))
		}
		src, emitted := decide(call, filtered)
		log.Debug.Printf("reconcile %s: copy %d-%d, %d: %s -> %s (%s, AB %v)",
			ref.Name(), anchor, start, pos, call.Ref, emitted, src, call.Balance)
		out.WriteString(seq[anchor:start])
		out.WriteString(emitted)
		edits = append(edits, Edit{Pos: pos, Source: src, Ref: call.Ref, Emitted: emitted})
		anchor = end
	}
	out.WriteString(seq[anchor:])
	return Consensus{Seq: out.String(), Edits: edits}, nil
}

// Changed returns the edits that altered the reference.
func (c Consensus) Changed() []Edit {
	var changed []Edit
	for _, e := range c.Edits {
		if e.Emitted != e.Ref {
			changed = append(changed, e)
		}
	}
	return changed
}
