package pipeline

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/blast"
	"github.com/grailbio/sbt/pcr"
	"github.com/grailbio/sbt/tool"
)

// Opts configures Run and RunBatch.
type Opts struct {
	// Threads is passed to the external tools.
	Threads int
	// MinDepth is the read depth every allele position needs for a
	// confident mapping call.
	MinDepth int
	// Prefix names the mapping output files.
	Prefix string
	// OutDir receives every output file. RunBatch uses one subdirectory per
	// isolate.
	OutDir string
	// Overwrite replaces an existing OutDir.
	Overwrite bool
	// DBDir holds the allele databases "<locus><Suffix>".
	DBDir  string
	Suffix string
	// Profile is the ST profile table.
	Profile string
	// Header prints the locus names above the profile row.
	Header bool
	// PCR selects the primer engine: "native" or "ispcr".
	PCR string
	// Search selects the allele search: "blastn" or "exact".
	Search string
}

// DefaultOpts are the default settings of the command line.
var DefaultOpts = Opts{
	Threads:  4,
	MinDepth: 3,
	Prefix:   "run",
	OutDir:   "out",
	DBDir:    "./",
	Suffix:   "_alleles.tfa",
	Profile:  "lpneumophila.txt",
	Header:   true,
	PCR:      "native",
	Search:   "blastn",
}

// Deps are the external programs and engines used by Run.
type Deps struct {
	Runner    tool.Runner
	Paths     tool.Paths
	Searcher  blast.Searcher
	Amplifier pcr.Amplifier
}

// NewDeps builds the searcher and amplifier selected by opts. scratch holds
// isPcr primer files.
func NewDeps(opts Opts, r tool.Runner, paths tool.Paths, scratch string) (Deps, error) {
	d := Deps{Runner: r, Paths: paths}
	switch opts.Search {
	case "blastn":
		d.Searcher = blast.NewBlastn(r, paths, opts.Threads)
	case "exact":
		d.Searcher = &blast.Exact{}
	default:
		return Deps{}, errors.E(errors.Invalid, fmt.Sprintf("unknown search %q", opts.Search))
	}
	switch opts.PCR {
	case "native":
		d.Amplifier = pcr.New(pcr.DefaultConfig)
	case "ispcr":
		d.Amplifier = &pcr.IsPcr{Runner: r, Path: paths.IsPcr, Dir: scratch}
	default:
		return Deps{}, errors.E(errors.Invalid, fmt.Sprintf("unknown PCR engine %q", opts.PCR))
	}
	return d, nil
}

// Programs lists the executables a run of mode needs.
func (d Deps) Programs(opts Opts, mode Mode) []string {
	var progs []string
	if mode != Assembly {
		progs = append(progs, d.Paths.Bwa, d.Paths.Sambamba, d.Paths.Freebayes)
	}
	if mode == Reads {
		progs = append(progs, d.Paths.Spades)
	}
	if opts.Search == "blastn" {
		progs = append(progs, d.Paths.Makeblastdb, d.Paths.Blastn)
	}
	if opts.PCR == "ispcr" {
		progs = append(progs, d.Paths.IsPcr)
	}
	return progs
}

// CheckPrograms verifies that every program needed by the isolates can be
// found in env.
func (d Deps) CheckPrograms(env map[string]string, opts Opts, isolates ...Isolate) error {
	seen := map[string]bool{}
	var progs []string
	for _, iso := range isolates {
		mode, err := ChoosePath(iso)
		if err != nil {
			return err
		}
		for _, p := range d.Programs(opts, mode) {
			if !seen[p] {
				seen[p] = true
				progs = append(progs, p)
			}
		}
	}
	return tool.Check(env, progs...)
}
