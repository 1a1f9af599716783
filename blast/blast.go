/*Package blast finds exact allele hits for query sequences in per-locus allele
  databases. Two Searchers are provided: Blastn, which runs the NCBI BLAST+
  programs, and Exact, an in-process search for identical full-length
  occurrences that produces the same hit rows.

  A database is a FASTA file of alleles named "<locus>_<id>", e.g. "mompS_3".
*/
package blast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sbt/encoding/fasta"
)

// OutFmt is the tabular format requested from blastn and parsed by ReadHits.
const OutFmt = "6 qseqid sseqid pident length mismatch gapopen qstart qend sstart send evalue bitscore slen"

// Hit is one row of OutFmt output.
type Hit struct {
	QSeqID   string  `json:"query"`
	SSeqID   string  `json:"subject"`
	PIdent   float64 `json:"pident"`
	Length   int     `json:"length"`
	Mismatch int     `json:"mismatch"`
	GapOpen  int     `json:"gapopen"`
	QStart   int     `json:"qstart"`
	QEnd     int     `json:"qend"`
	SStart   int     `json:"sstart"`
	SEnd     int     `json:"send"`
	EValue   float64 `json:"evalue"`
	BitScore float64 `json:"bitscore"`
	SLen     int     `json:"slen"`
}

// Exact reports whether the hit is identical to the whole subject.
func (h Hit) Exact() bool {
	return h.PIdent >= 100 && h.Mismatch == 0 && h.GapOpen == 0 && h.Length == h.SLen
}

// Location renders the query interval of the hit, e.g. "contig_1:120-471".
func (h Hit) Location() string {
	return fmt.Sprintf("%s:%d-%d", h.QSeqID, h.QStart, h.QEnd)
}

// ReadHits parses OutFmt rows.
func ReadHits(r io.Reader) ([]Hit, error) {
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	tr.LazyQuotes = true
	var hits []Hit
	for {
		var h Hit
		if err := tr.Read(&h); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, "blast hits", err)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Query is the input of a search: a FASTA file or in-memory records.
type Query struct {
	Path    string
	Records []fasta.Record
}

// fastaText renders the in-memory records as FASTA.
func (q Query) fastaText() ([]byte, error) {
	var buf bytes.Buffer
	if err := fasta.Write(&buf, q.Records...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (q Query) String() string {
	if q.Path != "" {
		return q.Path
	}
	names := make([]string, len(q.Records))
	for i, r := range q.Records {
		names[i] = r.Name
	}
	return strings.Join(names, ",")
}

// Searcher searches a query against the allele database at db.
type Searcher interface {
	Search(ctx context.Context, db string, q Query) ([]Hit, error)
}

// Alleles returns the distinct allele ids of the exact hits to locus, in
// order of first appearance, with the "<locus>_" prefix removed.
func Alleles(hits []Hit, locus string) []string {
	var (
		ids    []string
		seen   = map[string]bool{}
		prefix = locus + "_"
	)
	for _, h := range hits {
		if !h.Exact() {
			continue
		}
		id := strings.TrimPrefix(h.SSeqID, prefix)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
