package blast

import (
	"context"
	"strings"
	"sync"

	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/pcr"
)

// Exact finds every identical, full-length occurrence of a database allele in
// the query, on either strand. Databases are loaded once and cached.
type Exact struct {
	mu  sync.Mutex
	dbs map[string][]fasta.Record
}

func (e *Exact) load(ctx context.Context, db string) ([]fasta.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if recs, ok := e.dbs[db]; ok {
		return recs, nil
	}
	fa, err := fasta.Open(ctx, db)
	if err != nil {
		return nil, err
	}
	if e.dbs == nil {
		e.dbs = map[string][]fasta.Record{}
	}
	e.dbs[db] = fa.Records()
	return e.dbs[db], nil
}

func queryRecords(ctx context.Context, q Query) ([]fasta.Record, error) {
	if q.Path == "" {
		return q.Records, nil
	}
	fa, err := fasta.Open(ctx, q.Path)
	if err != nil {
		return nil, err
	}
	return fa.Records(), nil
}

func exactHit(query, subject string, qstart, slen int, reverse bool) Hit {
	h := Hit{
		QSeqID:   query,
		SSeqID:   subject,
		PIdent:   100,
		Length:   slen,
		QStart:   qstart + 1,
		QEnd:     qstart + slen,
		SStart:   1,
		SEnd:     slen,
		BitScore: float64(slen*37) / 20,
		SLen:     slen,
	}
	if reverse {
		h.SStart, h.SEnd = slen, 1
	}
	return h
}

// indexAll returns the start offsets of every, possibly overlapping,
// occurrence of sub in s.
func indexAll(s, sub string) []int {
	var offs []int
	for i := 0; ; {
		j := strings.Index(s[i:], sub)
		if j < 0 {
			return offs
		}
		offs = append(offs, i+j)
		i += j + 1
	}
}

// Search implements Searcher.
func (e *Exact) Search(ctx context.Context, db string, q Query) ([]Hit, error) {
	alleles, err := e.load(ctx, db)
	if err != nil {
		return nil, err
	}
	queries, err := queryRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, qr := range queries {
		seq := strings.ToUpper(qr.Seq)
		for _, a := range alleles {
			if len(a.Seq) == 0 {
				continue
			}
			for _, off := range indexAll(seq, a.Seq) {
				hits = append(hits, exactHit(qr.Name, a.Name, off, len(a.Seq), false))
			}
			rc := pcr.RevComp(a.Seq)
			if rc == a.Seq {
				continue
			}
			for _, off := range indexAll(seq, rc) {
				hits = append(hits, exactHit(qr.Name, a.Name, off, len(a.Seq), true))
			}
		}
	}
	return hits, nil
}
