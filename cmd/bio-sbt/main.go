package main

import (
	"context"
	"fmt"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/allele"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/partition"
	"github.com/grailbio/sbt/pileup"
	"github.com/grailbio/sbt/pipeline"
	"github.com/grailbio/sbt/profile"
	"github.com/grailbio/sbt/reconcile"
	"github.com/grailbio/sbt/tool"
	"v.io/x/lib/cmdline"
)

// refFlag selects the mompS mapping reference.
type refFlag struct{ path *string }

func addRefFlag(cmd *cmdline.Command) refFlag {
	return refFlag{cmd.Flags.String("ref", "", "YAML reference descriptor. By default the built-in L. pneumophila Paris mompS reference is used")}
}

func (f refFlag) load(ctx context.Context) (*locus.Reference, error) {
	if *f.path == "" {
		return locus.MompSReference(), nil
	}
	return locus.Load(ctx, *f.path)
}

type typingFlags struct {
	opts     pipeline.Opts
	ref      refFlag
	noHeader *bool
	check    *bool
}

func addTypingFlags(cmd *cmdline.Command) *typingFlags {
	f := &typingFlags{opts: pipeline.DefaultOpts}
	fl := &cmd.Flags
	fl.IntVar(&f.opts.Threads, "threads", f.opts.Threads, "Threads passed to the external programs")
	fl.IntVar(&f.opts.MinDepth, "min-depth", f.opts.MinDepth, "Read depth every mompS allele position needs for a confident call")
	fl.StringVar(&f.opts.Prefix, "prefix", f.opts.Prefix, "Name prefix of the mapping output files")
	fl.StringVar(&f.opts.OutDir, "out", f.opts.OutDir, "Output directory")
	fl.BoolVar(&f.opts.Overwrite, "overwrite", f.opts.Overwrite, "Replace an existing output directory")
	fl.StringVar(&f.opts.DBDir, "db", f.opts.DBDir, "Directory of the allele databases")
	fl.StringVar(&f.opts.Suffix, "suffix", f.opts.Suffix, "File name suffix of the allele databases")
	fl.StringVar(&f.opts.Profile, "profile", f.opts.Profile, "ST profile table")
	fl.StringVar(&f.opts.PCR, "pcr", f.opts.PCR, `In silico PCR engine, "native" or "ispcr"`)
	fl.StringVar(&f.opts.Search, "search", f.opts.Search, `Allele search, "blastn" or "exact"`)
	f.noHeader = fl.Bool("no-header", false, "Do not print the locus names above the profile")
	f.check = fl.Bool("check", true, "Check that the needed external programs are installed before starting")
	f.ref = addRefFlag(cmd)
	return f
}

// setup loads the reference and builds the external program dependencies.
func (f *typingFlags) setup(ctx context.Context, isolates ...pipeline.Isolate) (*locus.Reference, pipeline.Deps, error) {
	f.opts.Header = !*f.noHeader
	ref, err := f.ref.load(ctx)
	if err != nil {
		return nil, pipeline.Deps{}, err
	}
	paths, err := tool.LoadPaths()
	if err != nil {
		return nil, pipeline.Deps{}, err
	}
	deps, err := pipeline.NewDeps(f.opts, tool.Exec{}, paths, os.TempDir())
	if err != nil {
		return nil, pipeline.Deps{}, err
	}
	if *f.check {
		if err := deps.CheckPrograms(tool.Environ(), f.opts, isolates...); err != nil {
			return nil, pipeline.Deps{}, err
		}
	}
	return ref, deps, nil
}

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run",
		Short: "Type one isolate from paired reads, an assembly, or both",
	}
	flags := addTypingFlags(cmd)
	iso := pipeline.Isolate{}
	cmd.Flags.StringVar(&iso.ID, "id", "", "Isolate name")
	cmd.Flags.StringVar(&iso.Reads1, "r1", "", "Forward reads")
	cmd.Flags.StringVar(&iso.Reads2, "r2", "", "Reverse reads")
	cmd.Flags.StringVar(&iso.Assembly, "a", "", "Assembly FASTA")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("run takes no arguments, but got %v", argv)
		}
		ctx := context.Background()
		if iso.ID == "" {
			iso.ID = flags.opts.Prefix
		}
		ref, deps, err := flags.setup(ctx, iso)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(ctx, iso, ref, flags.opts, deps)
		if err != nil {
			return err
		}
		return profile.WriteTSV(env.Stdout, profile.Format{Header: flags.opts.Header}, res.Profile)
	})
	return cmd
}

func newCmdBatch() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "batch",
		Short: "Type every isolate of a sample sheet",
		Long: `
The sample sheet is a TSV file with the header "id r1 r2 assembly" and one
isolate per row; unused inputs are left empty. Each isolate is written to
<out>/<id>.`,
		ArgsName: "samplesheet",
	}
	flags := addTypingFlags(cmd)
	parallelism := cmd.Flags.Int("parallelism", 1, "Number of isolates typed at once")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("batch takes a sample sheet, but got %v", argv)
		}
		ctx := context.Background()
		isolates, err := pipeline.ReadSamples(ctx, argv[0])
		if err != nil {
			return err
		}
		ref, deps, err := flags.setup(ctx, isolates...)
		if err != nil {
			return err
		}
		results, err := pipeline.RunBatch(ctx, isolates, ref, flags.opts, deps, *parallelism)
		if err != nil {
			return err
		}
		profiles := make([]profile.Profile, len(results))
		for i, r := range results {
			profiles[i] = r.Profile
		}
		return profile.WriteTSV(env.Stdout, profile.Format{Header: flags.opts.Header, Sample: true}, profiles...)
	})
	return cmd
}

func newCmdPartition() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "partition",
		Short:    "Select the read pairs that cross the flanks of the mompS reference",
		ArgsName: "in.sam out.sam",
	}
	ref := addRefFlag(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("partition takes in.sam out.sam, but got %v", argv)
		}
		ctx := context.Background()
		r, err := ref.load(ctx)
		if err != nil {
			return err
		}
		stats, err := partition.File(ctx, r, argv[0], argv[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "records\t%d\nproper_pairs\t%d\ncrossing_pairs\t%d\nemitted\t%d\n",
			stats.Records, stats.ProperPairs, stats.Crossing, stats.Emitted)
		return nil
	})
	return cmd
}

func newCmdReconcile() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "reconcile",
		Short:    "Rebuild the mompS allele from the full and filtered variant calls",
		ArgsName: "full.vcf filtered.vcf",
	}
	ref := addRefFlag(cmd)
	whole := cmd.Flags.Bool("whole", false, "Print the whole reconciled reference instead of the allele region")
	name := cmd.Flags.String("name", locus.MompS, "Name of the output FASTA record")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("reconcile takes full.vcf filtered.vcf, but got %v", argv)
		}
		ctx := context.Background()
		r, err := ref.load(ctx)
		if err != nil {
			return err
		}
		c, err := reconcile.Files(ctx, r, argv[0], argv[1])
		if err != nil {
			return err
		}
		for _, e := range c.Changed() {
			log.Printf("%d: %s -> %s (%s)", e.Pos, e.Ref, e.Emitted, e.Source)
		}
		seq := c.Seq
		if !*whole {
			if seq, err = r.AlleleSlice(seq); err != nil {
				return err
			}
		}
		return fasta.Write(env.Stdout, fasta.Record{Name: *name, Seq: seq})
	})
	return cmd
}

func newCmdDepth() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "depth",
		Short:    "Report the per-position read depth over the mompS allele region",
		ArgsName: "in.sam",
	}
	ref := addRefFlag(cmd)
	minDepth := cmd.Flags.Int("min-depth", pileup.DefaultOpts.MinDepth, "Depth below which a position is counted as uncovered")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("depth takes a SAM path, but got %v", argv)
		}
		ctx := context.Background()
		r, err := ref.load(ctx)
		if err != nil {
			return err
		}
		opts := pileup.DefaultOpts
		opts.MinDepth = *minDepth
		s, err := pileup.DepthFile(ctx, argv[0], r.Name(), r.AlleleStart(), r.AlleleStop(), opts)
		if err != nil {
			return err
		}
		log.Printf("%.1f%% covered, mean depth %.1f, min depth %d, %d positions below %d",
			s.PercentCovered, s.MeanDepth, s.MinDepth, s.BelowMin, opts.MinDepth)
		return s.WriteTSV(env.Stdout, r.Seq())
	})
	return cmd
}

func newCmdST() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "st",
		Short: "Look up the sequence type of an allelic profile",
		Long: `
Alleles are given in the order flaA pilE asd mip mompS proA neuA_neuAH.
"-" marks a missing allele and "?" an ambiguous one.`,
		ArgsName: "allele...",
	}
	table := cmd.Flags.String("profile", pipeline.DefaultOpts.Profile, "ST profile table")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != len(locus.Order) {
			return fmt.Errorf("st takes %d alleles, but got %v", len(locus.Order), argv)
		}
		t, err := profile.Load(context.Background(), *table)
		if err != nil {
			return err
		}
		calls := make([]allele.Call, len(argv))
		for i, a := range argv {
			calls[i] = allele.Call{Locus: locus.Order[i], Status: allele.Found, Allele: a}
			switch a {
			case "-":
				calls[i] = allele.Call{Locus: locus.Order[i], Status: allele.NotFound}
			case "?":
				calls[i] = allele.Call{Locus: locus.Order[i], Status: allele.Ambiguous}
			}
		}
		fmt.Fprintln(env.Stdout, t.Resolve(calls))
		return nil
	})
	return cmd
}

func newCmdSummary() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "summary",
		Short:    "Tabulate the profiles of report.json files",
		ArgsName: "report.json...",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("summary takes at least one report, but got none")
		}
		return pipeline.Summarize(context.Background(), env.Stdout, argv...)
	})
	return cmd
}

func newCmdCheck() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "check",
		Short: "Check that the external programs of every analysis path are installed",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		paths, err := tool.LoadPaths()
		if err != nil {
			return err
		}
		return tool.Check(tool.Environ(), paths.Bwa, paths.Sambamba, paths.Freebayes,
			paths.Makeblastdb, paths.Blastn, paths.IsPcr, paths.Spades)
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-sbt",
			Short:    "Sequence-based typing of Legionella pneumophila",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdRun(),
				newCmdBatch(),
				newCmdPartition(),
				newCmdReconcile(),
				newCmdDepth(),
				newCmdST(),
				newCmdSummary(),
				newCmdCheck(),
			},
		})
}
