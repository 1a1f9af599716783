package allele

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/encoding/fasta"
)

// Nearest names the catalogued allele closest to a sequence that matched
// none exactly.
type Nearest struct {
	Allele string `json:"allele"`
	// Distance is the Levenshtein distance to the allele.
	Distance int `json:"distance"`
}

// Closest returns the allele of db at the smallest Levenshtein distance from
// seq, the first one in db order on ties. ok is false when db is empty.
func Closest(seq string, db []fasta.Record, loc string) (n Nearest, ok bool) {
	seq = strings.ToUpper(seq)
	for _, r := range db {
		d := matchr.Levenshtein(seq, strings.ToUpper(r.Seq))
		if !ok || d < n.Distance {
			n, ok = Nearest{Allele: strings.TrimPrefix(r.Name, loc+"_"), Distance: d}, true
		}
	}
	return n, ok
}

// closest looks up the nearest allele of loc. The lookup is a diagnostic:
// an unreadable database is logged and yields nil.
func (id *Identifier) closest(ctx context.Context, loc, seq string) *Nearest {
	fa, err := fasta.Open(ctx, id.DB(loc))
	if err != nil {
		log.Error.Printf("%s: closest allele: %v", loc, err)
		return nil
	}
	n, ok := Closest(seq, fa.Records(), loc)
	if !ok {
		return nil
	}
	log.Printf("%s: no exact allele, closest is %s at distance %d", loc, n.Allele, n.Distance)
	return &n
}
