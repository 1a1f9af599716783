package reconcile_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/encoding/vcf"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/reconcile"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyRef has allele region 30-60; base at position p is "ACGT"[(p-1)%4].
func toyRef(t *testing.T) *locus.Reference {
	ref, err := locus.New(locus.Spec{
		Name:        "toy",
		Seq:         strings.Repeat("ACGT", 25),
		FlankStart:  15,
		AlleleStart: 30,
		AlleleStop:  60,
		FlankStop:   90,
		Outer:       locus.PrimerPair{ID: "o", Forward: "ACGTACGT", Reverse: "ACGTACGT"},
		Nested:      locus.PrimerPair{ID: "n", Forward: "ACGTACGT", Reverse: "ACGTACGT"},
	})
	require.NoError(t, err)
	return ref
}

func snp(pos int, ref, alt string, ab ...float64) vcf.Call {
	return vcf.Call{Pos: pos, Ref: ref, Alt: alt, Balance: vcf.Balance(ab)}
}

// at returns the base at 1-based position pos.
func at(s string, pos int) string { return s[pos-1 : pos] }

func TestEmpty(t *testing.T) {
	ref := toyRef(t)
	c, err := reconcile.Reconcile(ref, vcf.CallSet{}, vcf.CallSet{})
	require.NoError(t, err)
	assert.Equal(t, ref.Seq(), c.Seq)
	assert.Empty(t, c.Edits)

	c, err = reconcile.Reconcile(ref, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ref.Seq(), c.Seq)
}

func TestTieBreaks(t *testing.T) {
	ref := toyRef(t)
	// Position 33 is an A in the reference.
	const pos = 33
	full := snp(pos, "A", "G", 0.5)
	tests := []struct {
		name     string
		full     vcf.Call
		filtered vcf.CallSet
		want     string
		src      reconcile.Source
	}{
		{"homozygous", snp(pos, "A", "G", 0), nil, "G", reconcile.Full},
		{"homozygous ignores filtered", snp(pos, "A", "G", 0),
			vcf.CallSet{pos: snp(pos, "A", "T", 0.3, 0.2)}, "G", reconcile.Full},
		{"het absent from filtered", full, nil, "A", reconcile.Reference},
		{"het absent from filtered, other position", full,
			vcf.CallSet{pos + 1: snp(pos+1, "C", "T", 0)}, "A", reconcile.Reference},
		{"filtered equal", full, vcf.CallSet{pos: snp(pos, "A", "C", 0.5)}, "A", reconcile.Reference},
		{"filtered weaker", full, vcf.CallSet{pos: snp(pos, "A", "C", 0.2)}, "A", reconcile.Reference},
		{"filtered homozygous", full, vcf.CallSet{pos: snp(pos, "A", "C", 0)}, "G", reconcile.Full},
		{"filtered stronger", full, vcf.CallSet{pos: snp(pos, "A", "C", 0.7)}, "G", reconcile.Full},
		{"filtered multi", full, vcf.CallSet{pos: snp(pos, "A", "T", 0.3, 0.2)}, "T", reconcile.Filtered},
		{"full multi", vcf.Call{Pos: pos, Ref: "A", Alt: "G,C", Balance: vcf.Balance{0.4, 0.3}},
			vcf.CallSet{pos: snp(pos, "A", "C", 0.1)}, "C", reconcile.Filtered},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := reconcile.Reconcile(ref, vcf.CallSet{pos: test.full}, test.filtered)
			require.NoError(t, err)
			assert.Equal(t, ref.Len(), len(c.Seq))
			assert.Equal(t, test.want, at(c.Seq, pos))
			assert.Equal(t, ref.Seq()[:pos-1], c.Seq[:pos-1])
			assert.Equal(t, ref.Seq()[pos:], c.Seq[pos:])
			require.Len(t, c.Edits, 1)
			expect.EQ(t, c.Edits[0], reconcile.Edit{Pos: pos, Source: test.src, Ref: "A", Emitted: test.want})
		})
	}
}

func TestOutsideAlleleSkipped(t *testing.T) {
	ref := toyRef(t)
	full := vcf.CallSet{
		10: snp(10, "C", "T", 0),
		29: snp(29, "A", "T", 0),
		30: snp(30, "C", "G", 0),
		60: snp(60, "T", "A", 0),
		61: snp(61, "A", "G", 0),
	}
	c, err := reconcile.Reconcile(ref, full, nil)
	require.NoError(t, err)
	assert.Equal(t, ref.Len(), len(c.Seq))
	assert.Equal(t, "C", at(c.Seq, 10))
	assert.Equal(t, "A", at(c.Seq, 29))
	assert.Equal(t, "G", at(c.Seq, 30))
	assert.Equal(t, "A", at(c.Seq, 60))
	assert.Equal(t, "A", at(c.Seq, 61))
	assert.Len(t, c.Changed(), 2)
}

// The consensus has the reference length when every call is a substitution.
func TestLengthPreserved(t *testing.T) {
	ref := toyRef(t)
	full, filtered := vcf.CallSet{}, vcf.CallSet{}
	for pos := ref.AlleleStart(); pos <= ref.AlleleStop(); pos += 3 {
		b := at(ref.Seq(), pos)
		full[pos] = snp(pos, b, "N", float64(pos%7)/10)
		if pos%2 == 0 {
			filtered[pos] = snp(pos, b, "N", 0)
		}
	}
	c, err := reconcile.Reconcile(ref, full, filtered)
	require.NoError(t, err)
	assert.Equal(t, ref.Len(), len(c.Seq))
	assert.Len(t, c.Edits, len(full))
}

func TestIndels(t *testing.T) {
	ref := toyRef(t)
	full := vcf.CallSet{
		33: snp(33, "ACG", "A", 0),
		41: snp(41, "A", "ATTT", 0),
	}
	c, err := reconcile.Reconcile(ref, full, nil)
	require.NoError(t, err)
	assert.Equal(t, ref.Len()-2+3, len(c.Seq))
	assert.Equal(t, ref.Seq()[:33]+ref.Seq()[35:40]+"ATTT"+ref.Seq()[41:], c.Seq)
}

func TestInvalid(t *testing.T) {
	ref := toyRef(t)
	for name, full := range map[string]vcf.CallSet{
		"ref mismatch": {33: snp(33, "C", "G", 0)},
		"overlap":      {33: snp(33, "ACG", "A", 0), 34: snp(34, "C", "T", 0)},
	} {
		_, err := reconcile.Reconcile(ref, full, nil)
		expect.True(t, errors.Is(errors.Invalid, err), "%s: %v", name, err)
	}
}

func TestFiles(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	const header = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tunknown\n"
	fullPath := filepath.Join(tempDir, "full.vcf")
	filteredPath := filepath.Join(tempDir, "filtered.vcf")
	require.NoError(t, ioutil.WriteFile(fullPath,
		[]byte(header+"toy\t33\t.\tA\tG\t50\t.\tAB=0.5;DP=10\tGT\t0/1\n"), 0644))
	require.NoError(t, ioutil.WriteFile(filteredPath,
		[]byte(header+"toy\t33\t.\tA\tT\t50\t.\tAB=0.3,0.2;DP=4\tGT\t1/2\n"), 0644))
	c, err := reconcile.Files(context.Background(), toyRef(t), fullPath, filteredPath)
	require.NoError(t, err)
	assert.Equal(t, "T", at(c.Seq, 33))
}
