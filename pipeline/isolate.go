package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Isolate is the input of one typing run.
type Isolate struct {
	ID       string `tsv:"id"`
	Reads1   string `tsv:"r1"`
	Reads2   string `tsv:"r2"`
	Assembly string `tsv:"assembly"`
}

// Mode is the analysis path chosen for an isolate.
type Mode int

const (
	// Assembly types every locus from the assembly; mompS copies are
	// separated with nested primers.
	Assembly Mode = iota
	// Reads assembles the reads first, then types mompS from read mappings
	// and the other loci from the new assembly.
	Reads
	// AssemblyAndReads types mompS from read mappings and the other loci
	// from the supplied assembly.
	AssemblyAndReads
)

// Code is the short name of the mode: "a", "r" or "ar".
func (m Mode) Code() string {
	switch m {
	case Assembly:
		return "a"
	case Reads:
		return "r"
	case AssemblyAndReads:
		return "ar"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// OperationMode is the mode as written to the report.
func (m Mode) OperationMode() string {
	if m == Assembly {
		return "Assembly"
	}
	return "Reads"
}

func (m Mode) String() string { return m.Code() }

// ChoosePath picks the analysis path from the inputs of iso. Reads must come
// in pairs.
func ChoosePath(iso Isolate) (Mode, error) {
	hasReads := iso.Reads1 != "" || iso.Reads2 != ""
	if hasReads && (iso.Reads1 == "" || iso.Reads2 == "") {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("isolate %s: both read files are required", iso.ID))
	}
	switch {
	case hasReads && iso.Assembly != "":
		return AssemblyAndReads, nil
	case hasReads:
		return Reads, nil
	case iso.Assembly != "":
		return Assembly, nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("isolate %s: needs both read files and/or an assembly", iso.ID))
}

// checkInputs verifies that the input files of iso exist and are not
// directories.
func checkInputs(iso Isolate) error {
	for _, p := range []struct{ what, path string }{
		{"read file 1", iso.Reads1},
		{"read file 2", iso.Reads2},
		{"assembly", iso.Assembly},
	} {
		if p.path == "" {
			continue
		}
		info, err := os.Stat(p.path)
		if err != nil || info.IsDir() {
			return errors.E(errors.NotExist, fmt.Sprintf("isolate %s: %s %q does not exist", iso.ID, p.what, p.path))
		}
	}
	return nil
}

// ParseSamples reads a sample sheet: a header row naming the columns id, r1,
// r2 and assembly, then one isolate per row. Unused inputs are left empty.
func ParseSamples(r io.Reader) ([]Isolate, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'
	var isolates []Isolate
	seen := map[string]bool{}
	for {
		var iso Isolate
		if err := tr.Read(&iso); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, "sample sheet", err)
		}
		if iso.ID == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("sample sheet row %d: empty id", len(isolates)+1))
		}
		if seen[iso.ID] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("sample sheet: duplicate id %s", iso.ID))
		}
		seen[iso.ID] = true
		isolates = append(isolates, iso)
	}
	return isolates, nil
}

// ReadSamples reads the sample sheet at path.
func ReadSamples(ctx context.Context, path string) (isolates []Isolate, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if isolates, err = ParseSamples(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	return isolates, nil
}
