package pcr

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/encoding/fasta"
	"github.com/grailbio/sbt/tool"
)

// IsPcrOpts are the isPcr options used for mompS.
var IsPcrOpts = []string{"-out=fa", "-minPerfect=5", "-tileSize=6", "-maxSize=" + strconv.Itoa(MaxProduct), "-stepSize=5"}

// IsPcr amplifies with the UCSC isPcr program. Primer files are written to
// Dir, or the system temporary directory if Dir is empty.
type IsPcr struct {
	Runner tool.Runner
	Path   string
	Dir    string
}

// parseName splits an isPcr product name "template:start+end".
func parseName(name string) (template string, start, end int, strand byte, err error) {
	i := strings.LastIndexByte(name, ':')
	if i < 0 {
		return "", 0, 0, 0, errors.E(errors.Invalid, fmt.Sprintf("isPcr product name %q", name))
	}
	template, coords := name[:i], name[i+1:]
	j := strings.IndexAny(coords, "+-")
	if j < 0 {
		return "", 0, 0, 0, errors.E(errors.Invalid, fmt.Sprintf("isPcr product name %q", name))
	}
	strand = coords[j]
	if start, err = strconv.Atoi(coords[:j]); err == nil {
		end, err = strconv.Atoi(coords[j+1:])
	}
	if err != nil {
		return "", 0, 0, 0, errors.E(errors.Invalid, fmt.Sprintf("isPcr product name %q", name), err)
	}
	return template, start - 1, end, strand, nil
}

// ParseProducts reads isPcr FASTA output.
func ParseProducts(out []byte, pair string) ([]Product, error) {
	recs, err := fasta.ReadRecords(bytes.NewReader(out))
	if err != nil {
		return nil, errors.E(errors.Invalid, "isPcr output", err)
	}
	prods := make([]Product, len(recs))
	for i, r := range recs {
		t, start, end, strand, err := parseName(r.Name)
		if err != nil {
			return nil, err
		}
		prods[i] = Product{Pair: pair, Template: t, Start: start, End: end, Strand: strand, Seq: r.Seq}
	}
	return prods, nil
}

// Amplify implements Amplifier.
func (a *IsPcr) Amplify(ctx context.Context, t Templates, p Pair) ([]Product, error) {
	f, err := ioutil.TempFile(a.Dir, p.ID+"_primers*.tab")
	if err != nil {
		return nil, errors.E(err, "create primer file")
	}
	primers := f.Name()
	defer os.Remove(primers) // nolint: errcheck
	_, err = f.WriteString(p.ID + "\t" + p.Forward + "\t" + p.Reverse + "\n")
	if e := f.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, errors.E(err, "write primers", primers)
	}
	cmd := tool.Cmd{Tool: "isPcr " + p.ID, Path: a.Path}
	if t.Path != "" {
		cmd.Args = []string{t.Path}
	} else {
		var buf bytes.Buffer
		if err := fasta.Write(&buf, t.Records...); err != nil {
			return nil, err
		}
		cmd.Args = []string{"stdin"}
		cmd.Stdin = buf.Bytes()
	}
	cmd.Args = append(cmd.Args, primers, "stdout")
	cmd.Args = append(cmd.Args, IsPcrOpts...)
	out, err := a.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return ParseProducts(out, p.ID)
}
