package fasta_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
)

var fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "acgt\n" + "ACGT\n"

func TestGet(t *testing.T) {
	tests := []struct {
		seq   string
		start uint64
		end   uint64
		want  string
		err   error
	}{
		{"seq1", 1, 2, "C", nil},
		{"seq1", 1, 6, "CGTAC", nil},
		{"seq1", 0, 12, "ACGTACGTACGT", nil},
		{"seq1", 10, 12, "GT", nil},
		{"seq2", 0, 8, "ACGTACGT", nil},
		{"seq2", 2, 5, "GTA", nil},
		{"seq0", 0, 1, "", fmt.Errorf("sequence not found: seq0")},
		{"seq1", 10, 13, "", fmt.Errorf("invalid query range")},
		{"seq1", 4, 3, "", fmt.Errorf("start must be less than end")},
	}
	fa, err := fasta.New(strings.NewReader(fastaData))
	if err != nil {
		t.Fatalf("couldn't create Fasta: %v", err)
	}
	for _, tt := range tests {
		got, err := fa.Get(tt.seq, tt.start, tt.end)
		if (err == nil && tt.err != nil) || (err != nil && tt.err == nil) {
			t.Errorf("unexpected error: want %v, got %v", tt.err, err)
		}
		if got != tt.want {
			t.Errorf("unexpected sequence: want %s, got %s", tt.want, got)
		}
	}
}

func TestLength(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(fastaData))
	assert.NoError(t, err)
	l, err := fa.Len("seq1")
	assert.NoError(t, err)
	assert.EQ(t, l, uint64(12))
	l, err = fa.Len("seq2")
	assert.NoError(t, err)
	assert.EQ(t, l, uint64(8))
	_, err = fa.Len("seq0")
	assert.Regexp(t, err, "sequence not found")
}

func TestSeqNamesKeepOrder(t *testing.T) {
	fa, err := fasta.New(strings.NewReader(">b\nA\n>a\nC\n>c\nG\n"))
	assert.NoError(t, err)
	if got, want := fa.SeqNames(), []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	assert.EQ(t, fa.Records()[1], fasta.Record{Name: "a", Seq: "C"})
}

func TestMalformed(t *testing.T) {
	_, err := fasta.New(strings.NewReader("ACGT\n>x\nA\n"))
	assert.Regexp(t, err, "before first header")
	_, err = fasta.New(strings.NewReader(">\nACGT\n"))
	assert.Regexp(t, err, "empty sequence name")
	_, err = fasta.New(strings.NewReader(">x\nA\n>x\nC\n"))
	assert.Regexp(t, err, "duplicate sequence name")
}

func TestWriteRoundTrip(t *testing.T) {
	long := strings.Repeat("ACGT", 40)
	var buf bytes.Buffer
	assert.NoError(t, fasta.Write(&buf, fasta.Record{Name: "r1", Seq: long}, fasta.Record{Name: "r2", Seq: "GG"}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.EQ(t, len(lines), 6)
	assert.EQ(t, len(lines[1]), 60)
	recs, err := fasta.ReadRecords(&buf)
	assert.NoError(t, err)
	assert.EQ(t, recs, []fasta.Record{{Name: "r1", Seq: long}, {Name: "r2", Seq: "GG"}})
}

func TestOpenGzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "asm.fa.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))

	fa, err := fasta.Open(context.Background(), path)
	assert.NoError(t, err)
	seq, err := fa.Get("seq2", 0, 8)
	assert.NoError(t, err)
	assert.EQ(t, seq, "ACGTACGT")
}

func TestGenerateIndex(t *testing.T) {
	generateIndex := func(fa string) (faidx string) {
		idx := bytes.Buffer{}
		assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(fa)))
		return idx.String()
	}

	fa := `>E0
GGTGAAATC
CCTGAAATC
AAAATTGCT
>E1
GTCCCTCCCCAGACATGGCCCTGGGAGGC
>E2
CCGCGCCCGCGCCCCCGCCGCC
`
	assert.EQ(t, generateIndex(fa), `E0	27	4	9	10
E1	29	38	29	30
E2	22	72	22	23
`)

	// MO-DOS newline encodinng.
	assert.EQ(t, generateIndex(">E0\r\nGGGG\r\n>E1\r\nAAAAA\r\n"),
		`E0	4	5	4	6
E1	5	16	5	7
`)

	// No newline at the end.
	assert.EQ(t, generateIndex(">E0\nGGGG\n>E1\nCCCCC\nAAAAA"),
		`E0	4	4	4	5
E1	10	13	5	6
`)

	idx := bytes.Buffer{}
	assert.Regexp(t, fasta.GenerateIndex(&idx, strings.NewReader("")), "empty FASTA")
}

func TestWriteIndex(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := filepath.Join(tempDir, "ref.fasta")
	assert.NoError(t, fasta.Create(ctx, path, fasta.Record{Name: "ref", Seq: strings.Repeat("A", 70)}))
	assert.NoError(t, fasta.WriteIndex(ctx, path))
	fai, err := ioutil.ReadFile(path + ".fai")
	assert.NoError(t, err)
	assert.EQ(t, string(fai), "ref\t70\t5\t60\t61\n")
}
