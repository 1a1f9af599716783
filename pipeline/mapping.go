package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/allele"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/partition"
	"github.com/grailbio/sbt/pileup"
	"github.com/grailbio/sbt/reconcile"
	"github.com/grailbio/sbt/tool"
)

// mapping is the outcome of typing mompS from reads.
type mapping struct {
	call     allele.Call
	evidence allele.Evidence
	// full and filtered summarize the allele region depth of the two read
	// sets.
	full, filtered pileup.Summary
	consensus      reconcile.Consensus
}

// indexReference runs bwa index unless the index already exists.
func indexReference(ctx context.Context, refPath string, deps Deps) error {
	if _, err := os.Stat(refPath + ".bwt"); err == nil {
		return nil
	}
	_, err := deps.Runner.Run(ctx, tool.Cmd{Tool: "bwa index", Path: deps.Paths.Bwa, Args: []string{"index", refPath}})
	return err
}

// callVariants converts <prefix>.sam to a sorted BAM, calls variants into
// <prefix>.vcf and summarizes the depth over the allele region.
func callVariants(ctx context.Context, prefix string, ref *locus.Reference, refPath string, opts Opts, deps Deps) (pileup.Summary, error) {
	threads := fmt.Sprint(opts.Threads)
	for _, cmd := range []tool.Cmd{
		{Tool: "sambamba SAM to BAM", Path: deps.Paths.Sambamba,
			Args: []string{"view", "-f", "bam", "-S", "-t", threads, "-o", prefix + ".bam", prefix + ".sam"}},
		{Tool: "sambamba sort", Path: deps.Paths.Sambamba,
			Args: []string{"sort", "-t", threads, prefix + ".bam"}},
		{Tool: "freebayes", Path: deps.Paths.Freebayes,
			Args: []string{"-v", prefix + ".vcf", "-f", refPath, prefix + ".sorted.bam"}},
	} {
		if _, err := deps.Runner.Run(ctx, cmd); err != nil {
			return pileup.Summary{}, err
		}
	}
	popts := pileup.DefaultOpts
	popts.MinDepth = opts.MinDepth
	s, err := pileup.DepthFile(ctx, prefix+".sam", ref.Name(), ref.AlleleStart(), ref.AlleleStop(), popts)
	if err != nil {
		return pileup.Summary{}, err
	}
	if s.Adequate(opts.MinDepth) {
		log.Printf("%s passes depth check", prefix+".sam")
	} else {
		log.Error.Printf("%s: %d allele positions below depth %d (min %d)", prefix+".sam", s.BelowMin, opts.MinDepth, s.MinDepth)
	}
	return s, nil
}

// mapMompS types mompS from the reads of iso: map, split off the pairs that
// cross the locus flanks, call variants on both read sets, reconcile them
// and search the allele region of the consensus.
func mapMompS(ctx context.Context, iso Isolate, ref *locus.Reference, refPath string, id *allele.Identifier, opts Opts, deps Deps) (mapping, error) {
	var m mapping
	if err := indexReference(ctx, refPath, deps); err != nil {
		return m, err
	}
	full := filepath.Join(opts.OutDir, opts.Prefix)
	filtered := full + ".filtered"
	if _, err := deps.Runner.Run(ctx, tool.Cmd{
		Tool: "bwa",
		Path: deps.Paths.Bwa,
		Args: []string{"mem", "-t", fmt.Sprint(opts.Threads), refPath, iso.Reads1, iso.Reads2, "-o", full + ".sam"},
	}); err != nil {
		return m, err
	}
	stats, err := partition.File(ctx, ref, full+".sam", filtered+".sam")
	if err != nil {
		return m, err
	}
	log.Printf("%s: %d of %d read pairs cross the %s flanks", iso.ID, stats.Crossing, stats.ProperPairs/2, ref.Name())

	if m.full, err = callVariants(ctx, full, ref, refPath, opts, deps); err != nil {
		return m, err
	}
	if m.filtered, err = callVariants(ctx, filtered, ref, refPath, opts, deps); err != nil {
		return m, err
	}
	lowConfidence := !m.full.Adequate(opts.MinDepth) && !m.filtered.Adequate(opts.MinDepth)

	if m.consensus, err = reconcile.Files(ctx, ref, full+".vcf", filtered+".vcf"); err != nil {
		return m, err
	}
	seq, err := ref.AlleleSlice(m.consensus.Seq)
	if err != nil {
		return m, err
	}
	if err := fasta.Create(ctx, full+"."+locus.MompS+".fasta", fasta.Record{Name: iso.ID + "_" + locus.MompS, Seq: seq}); err != nil {
		return m, err
	}
	if m.call, m.evidence, err = id.FromSequence(ctx, locus.MompS, seq, lowConfidence); err != nil {
		return m, err
	}
	return m, nil
}
