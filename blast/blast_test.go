package blast_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/blast"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/pcr"
	"github.com/grailbio/sbt/tool"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hitRows = "contig_1\tmompS_3\t100.000\t352\t0\t0\t1021\t1372\t1\t352\t0.0\t651\t352\n" +
	"contig_7\tmompS_15\t100.000\t352\t0\t0\t88\t439\t352\t1\t0.0\t651\t352\n" +
	"contig_9\tmompS_3\t100.000\t352\t0\t0\t5\t356\t1\t352\t0.0\t651\t352\n" +
	"contig_2\tmompS_8\t100.000\t200\t0\t0\t1\t200\t153\t352\t1e-100\t370\t352\n"

func TestReadHits(t *testing.T) {
	hits, err := blast.ReadHits(strings.NewReader("# BLASTN 2.12.0+\n" + hitRows))
	require.NoError(t, err)
	require.Len(t, hits, 4)
	expect.EQ(t, hits[0], blast.Hit{QSeqID: "contig_1", SSeqID: "mompS_3", PIdent: 100, Length: 352,
		QStart: 1021, QEnd: 1372, SStart: 1, SEnd: 352, BitScore: 651, SLen: 352})
	expect.True(t, hits[0].Exact())
	expect.False(t, hits[3].Exact())
	expect.EQ(t, hits[1].Location(), "contig_7:88-439")

	_, err = blast.ReadHits(strings.NewReader("contig_1\tmompS_3\tabc\t352\t0\t0\t1\t352\t1\t352\t0.0\t651\t352\n"))
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestAlleles(t *testing.T) {
	hits, err := blast.ReadHits(strings.NewReader(hitRows))
	require.NoError(t, err)
	expect.EQ(t, blast.Alleles(hits, "mompS"), []string{"3", "15"})
	expect.EQ(t, len(blast.Alleles(nil, "mompS")), 0)

	hits = []blast.Hit{{SSeqID: "neuA_neuAH_207", PIdent: 100, Length: 5, SLen: 5}}
	expect.EQ(t, blast.Alleles(hits, "neuA_neuAH"), []string{"207"})
}

type fakeRunner struct {
	cmds []tool.Cmd
	out  map[string]string
}

func (r *fakeRunner) Run(ctx context.Context, cmd tool.Cmd) ([]byte, error) {
	r.cmds = append(r.cmds, cmd)
	return []byte(r.out[cmd.Tool]), nil
}

func TestBlastn(t *testing.T) {
	r := &fakeRunner{out: map[string]string{"blastn": hitRows}}
	b := blast.NewBlastn(r, tool.Paths{Makeblastdb: "makeblastdb", Blastn: "blastn"}, 2)
	ctx := context.Background()
	hits, err := b.Search(ctx, "db/mompS_alleles.tfa", blast.Query{Path: "asm.fa"})
	require.NoError(t, err)
	expect.EQ(t, len(hits), 4)
	_, err = b.Search(ctx, "db/mompS_alleles.tfa", blast.Query{Records: []fasta.Record{{Name: "q", Seq: "ACGT"}}})
	require.NoError(t, err)

	require.Len(t, r.cmds, 3)
	expect.EQ(t, r.cmds[0].Tool, "makeblastdb")
	expect.EQ(t, r.cmds[0].Args, []string{"-in", "db/mompS_alleles.tfa", "-dbtype", "nucl"})
	expect.EQ(t, r.cmds[1].Args, []string{"-db", "db/mompS_alleles.tfa", "-outfmt", blast.OutFmt,
		"-perc_identity", "100", "-num_threads", "2", "-query", "asm.fa"})
	args := r.cmds[2].Args
	expect.EQ(t, args[len(args)-2:], []string{"-query", "-"})
	expect.EQ(t, string(r.cmds[2].Stdin), ">q\nACGT\n")
}

func TestExact(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	db := filepath.Join(tempDir, "mompS_alleles.tfa")
	require.NoError(t, fasta.Create(ctx, db,
		fasta.Record{Name: "mompS_1", Seq: "ACCGGTTTAA"},
		fasta.Record{Name: "mompS_2", Seq: "GGGCCCATAT"},
		fasta.Record{Name: "mompS_3", Seq: "TTTTTCCCCC"},
	))
	query := blast.Query{Records: []fasta.Record{
		{Name: "c1", Seq: "nnACCGGTTTAAnn"},
		{Name: "c2", Seq: "AA" + pcr.RevComp("GGGCCCATAT") + "CCGGTTTAA"},
	}}
	var e blast.Exact
	hits, err := e.Search(ctx, db, query)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	expect.EQ(t, hits[0], blast.Hit{QSeqID: "c1", SSeqID: "mompS_1", PIdent: 100, Length: 10,
		QStart: 3, QEnd: 12, SStart: 1, SEnd: 10, BitScore: 18.5, SLen: 10})
	expect.EQ(t, hits[1].QSeqID, "c2")
	expect.EQ(t, hits[1].SStart, 10)
	expect.EQ(t, hits[1].SEnd, 1)
	assert.Equal(t, []string{"1", "2"}, blast.Alleles(hits, "mompS"))

	hits, err = e.Search(ctx, db, blast.Query{Records: []fasta.Record{{Name: "c", Seq: "ACCGGTTTA"}}})
	require.NoError(t, err)
	expect.EQ(t, len(hits), 0)
}
