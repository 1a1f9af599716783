/*Package pipeline types one or many Legionella isolates at the seven SBT
  loci.

  Each isolate runs sequentially: external programs are invoked one at a time
  and the thread count only configures those programs. RunBatch may run
  several isolates at once; they share nothing but read-only inputs.
*/
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/allele"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/profile"
	"github.com/grailbio/sbt/tool"
)

// Result is the outcome of Run.
type Result struct {
	Isolate Isolate
	Mode    Mode
	Profile profile.Profile
	Report  *Report
}

// prepareOutDir creates dir, replacing it when overwrite is set.
func prepareOutDir(dir string, overwrite bool) error {
	if _, err := os.Stat(dir); err == nil {
		if !overwrite {
			return errors.E(errors.Exists, fmt.Sprintf("output directory %s exists and overwrite is off", dir))
		}
		log.Printf("removing existing output directory %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return errors.E(err, "remove", dir)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.E(err, "create", dir)
	}
	return nil
}

// checkDatabases verifies that every locus has an allele database.
func checkDatabases(opts Opts) error {
	if info, err := os.Stat(opts.DBDir); err != nil || !info.IsDir() {
		return errors.E(errors.NotExist, fmt.Sprintf("allele database directory %s does not exist", opts.DBDir))
	}
	for _, loc := range locus.Order {
		p := filepath.Join(opts.DBDir, loc+opts.Suffix)
		if _, err := os.Stat(p); err != nil {
			return errors.E(errors.NotExist, fmt.Sprintf("allele file %s for locus %s does not exist", p, loc))
		}
	}
	return nil
}

// SafeThreads clamps n to [1, runtime.NumCPU()].
func SafeThreads(n int) int {
	if max := runtime.NumCPU(); n > max {
		log.Error.Printf("%d threads requested, only %d cores available; using %d", n, max, max)
		return max
	}
	if n < 1 {
		return 1
	}
	return n
}

// writeReference writes the reference FASTA and its .fai into dir and
// returns the FASTA path.
func writeReference(ctx context.Context, ref *locus.Reference, dir string) (string, error) {
	path := filepath.Join(dir, ref.Name()+".fasta")
	if err := fasta.Create(ctx, path, ref.Record()); err != nil {
		return "", err
	}
	if err := fasta.WriteIndex(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// assemble runs SPAdes on the reads of iso and returns the scaffolds path.
func assemble(ctx context.Context, iso Isolate, opts Opts, deps Deps) (string, error) {
	out := filepath.Join(opts.OutDir, "run_spades")
	if _, err := deps.Runner.Run(ctx, tool.Cmd{
		Tool: "spades",
		Path: deps.Paths.Spades,
		Args: []string{"-1", iso.Reads1, "-2", iso.Reads2, "-o", out, "--careful", "-t", fmt.Sprint(opts.Threads)},
	}); err != nil {
		return "", err
	}
	scaffolds := filepath.Join(out, "scaffolds.fasta")
	if _, err := os.Stat(scaffolds); err != nil {
		return "", errors.E(errors.NotExist, "spades produced no scaffolds", scaffolds)
	}
	return scaffolds, nil
}

// Run types one isolate. ref is the mompS mapping reference. The profile
// table is read from opts.Profile and a report is written to
// <OutDir>/report.json.
func Run(ctx context.Context, iso Isolate, ref *locus.Reference, opts Opts, deps Deps) (*Result, error) {
	start := time.Now()
	mode, err := ChoosePath(iso)
	if err != nil {
		return nil, err
	}
	log.Printf("%s: analysis path %q", iso.ID, mode.Code())
	if err := checkInputs(iso); err != nil {
		return nil, err
	}
	if err := prepareOutDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	if err := checkDatabases(opts); err != nil {
		return nil, err
	}
	table, err := profile.Load(ctx, opts.Profile)
	if err != nil {
		return nil, err
	}
	opts.Threads = SafeThreads(opts.Threads)

	id := &allele.Identifier{
		Searcher:  deps.Searcher,
		Amplifier: deps.Amplifier,
		DBDir:     opts.DBDir,
		Suffix:    opts.Suffix,
		Ref:       ref,
	}
	report := newReport(iso, mode)
	calls := map[string]allele.Call{}

	assembly := iso.Assembly
	if mode == Reads {
		if assembly, err = assemble(ctx, iso, opts, deps); err != nil {
			return nil, err
		}
	}

	var momps allele.Call
	if mode == Assembly {
		var ev allele.Evidence
		if momps, ev, err = id.MompSFromAssembly(ctx, assembly); err != nil {
			return nil, err
		}
		report.addEvidence(locus.MompS, ev)
	} else {
		refPath, err := writeReference(ctx, ref, opts.OutDir)
		if err != nil {
			return nil, err
		}
		m, err := mapMompS(ctx, iso, ref, refPath, id, opts, deps)
		if err != nil {
			return nil, err
		}
		momps = m.call
		report.addCoverage(locus.MompS, m.full)
		report.addEvidence(locus.MompS, m.evidence)
		if momps.Status == allele.NotFound && assembly != "" {
			log.Printf("%s: mompS not found from reads, trying the assembly", iso.ID)
			var ev allele.Evidence
			if momps, ev, err = id.MompSFromAssembly(ctx, assembly); err != nil {
				return nil, err
			}
			report.addEvidence(locus.MompS, ev)
		}
	}
	calls[locus.MompS] = momps

	for _, loc := range locus.Order {
		if loc == locus.MompS {
			continue
		}
		call, ev, err := id.FromAssembly(ctx, loc, assembly)
		if err != nil {
			return nil, err
		}
		calls[loc] = call
		report.addEvidence(loc, ev)
	}

	prof := profile.New(table, iso.ID, calls)
	report.setProfile(prof)
	report.Elapsed = PrettyDuration(time.Since(start))
	if err := report.write(ctx, filepath.Join(opts.OutDir, "report.json")); err != nil {
		return nil, err
	}
	log.Printf("%s: ST %s, took %s", iso.ID, prof.ST, report.Elapsed)
	return &Result{Isolate: iso, Mode: mode, Profile: prof, Report: report}, nil
}

// PrettyDuration renders d as e.g. "1h 2m 3s", dropping leading zero units.
func PrettyDuration(d time.Duration) string {
	s := int64(d / time.Second)
	days, s := s/86400, s%86400
	hours, s := s/3600, s%3600
	minutes, s := s/60, s%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, s)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, s)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, s)
	}
	return fmt.Sprintf("%ds", s)
}

// newRunID returns a fresh run identifier.
func newRunID() string { return uuid.New().String() }
