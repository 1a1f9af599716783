package samtext_test

import (
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/sbt/encoding/samtext"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	line := "r1\t99\tref\t17\t60\t5S40M2D10M\t=\t200\t250\tACGT\tIIII\tNM:i:2"
	rec, err := samtext.Parse(line)
	require.NoError(t, err)
	expect.EQ(t, rec.Name, "r1")
	expect.EQ(t, rec.Flags, sam.Paired|sam.ProperPair|sam.MateReverse|sam.Read1)
	expect.EQ(t, rec.Ref, "ref")
	expect.EQ(t, rec.Pos, 17)
	expect.EQ(t, rec.Text, line)
	n, err := rec.RefSpan()
	require.NoError(t, err)
	expect.EQ(t, n, 52)
	expect.True(t, rec.Mapped())
}

func TestRefSpan(t *testing.T) {
	for _, test := range []struct {
		cigar string
		want  int
	}{
		{"100M", 100},
		{"10S50M2D40M", 92},
		{"20M500N30M", 550},
		{"4M1I5M", 9},
		{"3=1X6=5H", 10},
	} {
		rec, err := samtext.Parse("r1\t99\tref\t1\t60\t" + test.cigar + "\t=\t1\t0\tACGT\tIIII")
		require.NoError(t, err)
		n, err := rec.RefSpan()
		require.NoError(t, err)
		expect.EQ(t, n, test.want, "cigar %s", test.cigar)
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{
		"r1\t99\tref\t17",
		"r1\tx\tref\t17\t60\t10M\t=\t200\t250\tACGT\tIIII",
		"r1\t99\tref\t-3\t60\t10M\t=\t200\t250\tACGT\tIIII",
		"r1\t99\tref\t17\t60\t10Q\t=\t200\t250\tACGT\tIIII",
	} {
		_, err := samtext.Parse(line)
		expect.True(t, errors.Is(errors.Invalid, err), "line %q: %v", line, err)
	}
}

func TestRefSpanMissing(t *testing.T) {
	for _, cigar := range []string{"*", "10S", "5H10I"} {
		rec, err := samtext.Parse("r1\t4\t*\t0\t0\t" + cigar + "\t*\t0\t0\tACGT\tIIII")
		require.NoError(t, err)
		_, err = rec.RefSpan()
		expect.True(t, errors.Is(errors.Invalid, err), "cigar %s", cigar)
		expect.False(t, rec.Mapped())
	}
}

func TestScanner(t *testing.T) {
	data := "@HD\tVN:1.6\n@SQ\tSN:ref\tLN:100\n" +
		"r1\t99\tref\t1\t60\t10M\t=\t50\t59\tA\tI\n" +
		"@PG\tID:bwa\n" +
		"\n" +
		"r1\t147\tref\t50\t60\t10M\t=\t1\t-59\tA\tI\n"
	sc := samtext.NewScanner(strings.NewReader(data))
	var names []string
	for sc.Scan() {
		names = append(names, sc.Record().Name)
	}
	require.NoError(t, sc.Err())
	expect.EQ(t, names, []string{"r1", "r1"})
	expect.EQ(t, sc.Header(), "@HD\tVN:1.6\n@SQ\tSN:ref\tLN:100\n@PG\tID:bwa\n")

	sc = samtext.NewScanner(strings.NewReader("@HD\tVN:1.6\nbad\n"))
	expect.False(t, sc.Scan())
	expect.True(t, errors.Is(errors.Invalid, sc.Err()))
}
