package locus_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func validSpec() locus.Spec {
	return locus.Spec{
		Name:        "toy",
		Seq:         strings.Repeat("ACGT", 10),
		FlankStart:  2,
		AlleleStart: 10,
		AlleleStop:  20,
		FlankStop:   38,
		Outer:       locus.PrimerPair{ID: "o", Forward: "acgt", Reverse: "ACGT"},
		Nested:      locus.PrimerPair{ID: "n", Forward: "ACGT", Reverse: "ACGT"},
	}
}

func TestMompSReference(t *testing.T) {
	ref := locus.MompSReference()
	expect.EQ(t, ref.Name(), "Paris_mompS_R")
	expect.EQ(t, ref.Len(), 987)
	expect.EQ(t, ref.AlleleStart(), 367)
	expect.EQ(t, ref.AlleleStop(), 718)
	expect.EQ(t, ref.FlankStart(), 15)
	expect.EQ(t, ref.FlankStop(), 972)
	expect.EQ(t, ref.OuterPrimers().Forward, "TTGACCATGAGTGGGATTGG")
	expect.EQ(t, ref.NestedPrimers().Reverse, "CAGAAGCTGCGAAATCAG")
	allele, err := ref.AlleleSlice(ref.Seq())
	require.NoError(t, err)
	expect.EQ(t, len(allele), 352)
	expect.True(t, strings.HasPrefix(allele, "ATGACAGTGATCACTGGG"))
	expect.EQ(t, ref.Record().Seq, ref.Seq())
}

func TestNewValidates(t *testing.T) {
	ref, err := locus.New(validSpec())
	require.NoError(t, err)
	expect.EQ(t, ref.OuterPrimers().Forward, "ACGT")
	expect.True(t, ref.InAllele(10))
	expect.True(t, ref.InAllele(20))
	expect.False(t, ref.InAllele(21))

	for _, mutate := range []func(*locus.Spec){
		func(s *locus.Spec) { s.Name = "" },
		func(s *locus.Spec) { s.Seq = "" },
		func(s *locus.Spec) { s.Seq = strings.Repeat("ACGX", 10) },
		func(s *locus.Spec) { s.FlankStart = 0 },
		func(s *locus.Spec) { s.FlankStart = 10 },
		func(s *locus.Spec) { s.AlleleStop = 10 },
		func(s *locus.Spec) { s.FlankStop = 20 },
		func(s *locus.Spec) { s.FlankStop = 41 },
		func(s *locus.Spec) { s.Nested.Reverse = "" },
	} {
		s := validSpec()
		mutate(&s)
		_, err := locus.New(s)
		expect.True(t, errors.Is(errors.Invalid, err), "spec %+v: %v", s, err)
	}
}

func TestAlleleSliceShortSequence(t *testing.T) {
	ref, err := locus.New(validSpec())
	require.NoError(t, err)
	_, err = ref.AlleleSlice("ACGT")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestLoadYAML(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "ref.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`name: toy
seq: ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT
allele_start: 10
allele_stop: 20
flank_start: 2
flank_stop: 38
outer_primers: {id: o, forward: ACGT, reverse: ACGT}
nested_primers: {id: n, forward: ACGT, reverse: ACGT}
`), 0644))
	ref, err := locus.Load(context.Background(), path)
	require.NoError(t, err)
	expect.EQ(t, ref.Spec(), func() locus.Spec {
		s := validSpec()
		s.Outer.Forward = "ACGT"
		return s
	}())

	require.NoError(t, ioutil.WriteFile(path, []byte("name: toy\nunknown_key: 1\n"), 0644))
	_, err = locus.Load(context.Background(), path)
	expect.True(t, errors.Is(errors.Invalid, err))
}
