// Package tool runs the external programs of the typing pipeline.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/kelseyhightower/envconfig"
	"v.io/x/lib/lookpath"
)

// Cmd is one invocation of an external program.
type Cmd struct {
	// Tool labels the invocation in logs and errors, e.g. "bwa mem".
	Tool string
	Path string
	Args []string
	// Stdin, if non-nil, is fed to the program.
	Stdin []byte
	// Dir is the working directory; empty means the current one.
	Dir string
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner runs a Cmd and returns its standard output.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) ([]byte, error)
}

// Exec runs commands as subprocesses.
type Exec struct{}

// Run implements Runner. A non-zero exit is an error carrying the tool label
// and the program's stderr.
func (Exec) Run(ctx context.Context, c Cmd) ([]byte, error) {
	log.Printf("running %s", c.Tool)
	log.Debug.Printf("%s: %s", c.Tool, c)
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), errors.E(err, fmt.Sprintf("%s failed: %s", c.Tool, strings.TrimSpace(stderr.String())))
	}
	return stdout.Bytes(), nil
}

// Paths holds the executables used by the pipeline. Each can be overridden
// from the environment, e.g. SBT_BWA=/opt/bwa/bwa.
type Paths struct {
	Bwa         string `envconfig:"SBT_BWA" default:"bwa"`
	Sambamba    string `envconfig:"SBT_SAMBAMBA" default:"sambamba"`
	Freebayes   string `envconfig:"SBT_FREEBAYES" default:"freebayes"`
	Makeblastdb string `envconfig:"SBT_MAKEBLASTDB" default:"makeblastdb"`
	Blastn      string `envconfig:"SBT_BLASTN" default:"blastn"`
	IsPcr       string `envconfig:"SBT_ISPCR" default:"isPcr"`
	Spades      string `envconfig:"SBT_SPADES" default:"spades.py"`
}

// LoadPaths reads Paths from the environment.
func LoadPaths() (Paths, error) {
	var p Paths
	if err := envconfig.Process("", &p); err != nil {
		return Paths{}, errors.E(errors.Invalid, "tool paths", err)
	}
	return p, nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Check resolves each of names in env and returns an errors.NotExist error
// listing every program that cannot be found.
func Check(env map[string]string, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, err := lookpath.Look(env, name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.E(errors.NotExist, fmt.Sprintf("programs not found on PATH: %s", strings.Join(missing, ", ")))
	}
	return nil
}
