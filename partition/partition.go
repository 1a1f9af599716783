/*Package partition selects, from an alignment against a locus reference, the
  read pairs that show evidence of a second, paralogous copy of the locus.

  Reads from the paralog align well inside the locus but their mates fall
  outside the flanks of the reference copy. A pair is selected when either
  mate starts outside the window [flank_start, flank_stop - span], where span
  is the number of reference bases covered by that mate's match operations.
  Both mates of a selected pair are emitted.
*/
package partition

import (
	"bufio"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/sbt/encoding/samtext"
	"github.com/grailbio/sbt/locus"
)

// Stats summarizes one Partition call.
type Stats struct {
	// Records is the number of alignment records read.
	Records int
	// ProperPairs is the number of records flagged as properly paired.
	ProperPairs int
	// Crossing is the number of read names selected.
	Crossing int
	// Emitted is the number of records written.
	Emitted int
}

type readGroup struct {
	lines    []string
	crossing bool
}

// outside reports whether rec starts outside the flank window of ref.
func outside(ref *locus.Reference, rec samtext.Record) (bool, error) {
	span, err := rec.RefSpan()
	if err != nil {
		return false, err
	}
	return rec.Pos < ref.FlankStart() || rec.Pos > ref.FlankStop()-span, nil
}

// Partition reads SAM text from r and writes to w the header followed by every
// properly-paired record whose pair crosses the flank window of ref. Records
// are grouped by read name, names in order of first appearance.
func Partition(ref *locus.Reference, r io.Reader, w io.Writer) (Stats, error) {
	var (
		stats  Stats
		order  []string
		groups = map[string]*readGroup{}
		sc     = samtext.NewScanner(r)
	)
	for sc.Scan() {
		rec := sc.Record()
		stats.Records++
		if rec.Flags&sam.ProperPair == 0 {
			continue
		}
		stats.ProperPairs++
		g, ok := groups[rec.Name]
		if !ok {
			g = &readGroup{}
			groups[rec.Name] = g
			order = append(order, rec.Name)
		}
		g.lines = append(g.lines, rec.Text)
		out, err := outside(ref, rec)
		if err != nil {
			return stats, err
		}
		if out && !g.crossing {
			g.crossing = true
			stats.Crossing++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, errors.E(err, "partition")
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(sc.Header()) // nolint: errcheck
	for _, name := range order {
		g := groups[name]
		if !g.crossing {
			continue
		}
		for _, line := range g.lines {
			bw.WriteString(line) // nolint: errcheck
			bw.WriteByte('\n')   // nolint: errcheck
			stats.Emitted++
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, errors.E(err, "partition: write")
	}
	log.Debug.Printf("partition %s: %d records, %d properly paired, %d crossing pairs, %d records emitted",
		ref.Name(), stats.Records, stats.ProperPairs, stats.Crossing, stats.Emitted)
	return stats, nil
}
