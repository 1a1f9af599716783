package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sbt/allele"
	"github.com/grailbio/sbt/blast"
	"github.com/grailbio/sbt/locus"
	"github.com/grailbio/sbt/pileup"
	"github.com/grailbio/sbt/profile"
)

// Coverage is the read depth summary of one locus.
type Coverage struct {
	PercentCovered float64 `json:"Percent_covered"`
	MeanDepth      float64 `json:"Mean_depth"`
	MinDepth       int     `json:"Min_depth"`
	BelowMin       int     `json:"Num_below_min_depth"`
}

// ModeSpecific holds the evidence shown for the operation mode.
type ModeSpecific struct {
	LocusCoverage map[string]Coverage `json:"locus_coverage,omitempty"`
	// BLASTHitLocations rows are allele, contig, start, stop, allele length.
	BLASTHitLocations map[string][][]string `json:"BLAST_hit_locations,omitempty"`
	// MompSPrimers rows are stage, product name, product length.
	MompSPrimers [][]string `json:"mompS_primers,omitempty"`
	// ClosestAlleles holds, per locus typed from reads without an exact
	// match, the nearest catalogued allele.
	ClosestAlleles map[string]allele.Nearest `json:"closest_alleles,omitempty"`
}

// Report is the structured result of one isolate, written as report.json.
type Report struct {
	RunID         string            `json:"run_id"`
	ID            string            `json:"id"`
	MLST          map[string]string `json:"mlst"`
	OperationMode string            `json:"operation_mode"`
	AnalysisPath  string            `json:"analysis_path"`
	ModeSpecific  ModeSpecific      `json:"mode_specific"`
	Elapsed       string            `json:"elapsed"`
}

func newReport(iso Isolate, mode Mode) *Report {
	return &Report{
		RunID:         newRunID(),
		ID:            iso.ID,
		MLST:          map[string]string{},
		OperationMode: mode.OperationMode(),
		AnalysisPath:  mode.Code(),
		ModeSpecific: ModeSpecific{
			LocusCoverage:     map[string]Coverage{},
			BLASTHitLocations: map[string][][]string{},
		},
	}
}

func (r *Report) addCoverage(loc string, s pileup.Summary) {
	r.ModeSpecific.LocusCoverage[loc] = Coverage{
		PercentCovered: s.PercentCovered,
		MeanDepth:      s.MeanDepth,
		MinDepth:       s.MinDepth,
		BelowMin:       s.BelowMin,
	}
}

func (r *Report) addEvidence(loc string, ev allele.Evidence) {
	for _, hits := range [][]blast.Hit{ev.Hits, ev.NestedHits} {
		for _, h := range hits {
			if !h.Exact() {
				continue
			}
			r.ModeSpecific.BLASTHitLocations[loc] = append(r.ModeSpecific.BLASTHitLocations[loc], []string{
				strings.TrimPrefix(h.SSeqID, loc+"_"), h.QSeqID,
				strconv.Itoa(h.QStart), strconv.Itoa(h.QEnd), strconv.Itoa(h.SLen)})
		}
	}
	if ev.Closest != nil {
		if r.ModeSpecific.ClosestAlleles == nil {
			r.ModeSpecific.ClosestAlleles = map[string]allele.Nearest{}
		}
		r.ModeSpecific.ClosestAlleles[loc] = *ev.Closest
	}
	if ev.PCR == nil {
		return
	}
	for _, p := range ev.PCR.Outer {
		r.ModeSpecific.MompSPrimers = append(r.ModeSpecific.MompSPrimers,
			[]string{p.Pair, p.Name(), strconv.Itoa(len(p.Seq))})
	}
	for _, p := range ev.PCR.Inner {
		r.ModeSpecific.MompSPrimers = append(r.ModeSpecific.MompSPrimers,
			[]string{p.Pair, p.Name(), strconv.Itoa(len(p.Seq))})
	}
}

func (r *Report) setProfile(p profile.Profile) {
	r.MLST["st"] = p.ST
	for i, c := range p.Calls {
		r.MLST[locus.Order[i]] = c.String()
	}
}

func (r *Report) write(ctx context.Context, path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.E(err, "marshal report")
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	if _, err := out.Writer(ctx).Write(append(b, '\n')); err != nil {
		out.Close(ctx) // nolint: errcheck
		return errors.E(err, "write", path)
	}
	return out.Close(ctx)
}

// readReports parses report.json data: a single report object or an array
// of them.
func readReports(data []byte) ([]*gabs.Container, error) {
	c, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, errors.E(errors.Invalid, "parse report", err)
	}
	if _, ok := c.Data().([]interface{}); !ok {
		return []*gabs.Container{c}, nil
	}
	children, err := c.Children()
	if err != nil {
		return nil, errors.E(errors.Invalid, "parse report", err)
	}
	return children, nil
}

func stringAt(c *gabs.Container, path ...string) string {
	s, ok := c.Search(path...).Data().(string)
	if !ok {
		return "-"
	}
	return s
}

// Summarize writes one "Sample ST flaA ... neuA_neuAH" row per report found
// in the given report.json files.
func Summarize(ctx context.Context, w io.Writer, paths ...string) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("Sample")
	tw.WriteString("ST")
	for _, loc := range locus.Order {
		tw.WriteString(loc)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, path := range paths {
		data, err := file.ReadFile(ctx, path)
		if err != nil {
			return errors.E(err, "read", path)
		}
		reports, err := readReports(data)
		if err != nil {
			return errors.E(err, path)
		}
		for _, rep := range reports {
			if stringAt(rep, "id") == "-" {
				return errors.E(errors.Invalid, fmt.Sprintf("%s: report without id", path))
			}
			tw.WriteString(stringAt(rep, "id"))
			tw.WriteString(stringAt(rep, "mlst", "st"))
			for _, loc := range locus.Order {
				tw.WriteString(stringAt(rep, "mlst", loc))
			}
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
