package blast

import (
	"bytes"
	"context"
	"strconv"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sbt/tool"
)

// Blastn searches with the NCBI blastn program. The database index is built
// with makeblastdb the first time a database is used.
type Blastn struct {
	Runner      tool.Runner
	Makeblastdb string
	Blastn      string
	Threads     int

	mu    sync.Mutex
	built map[string]bool
}

// NewBlastn returns a Blastn using the programs in paths.
func NewBlastn(r tool.Runner, paths tool.Paths, threads int) *Blastn {
	return &Blastn{Runner: r, Makeblastdb: paths.Makeblastdb, Blastn: paths.Blastn, Threads: threads}
}

func (b *Blastn) makeDB(ctx context.Context, db string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built[db] {
		return nil
	}
	if _, err := b.Runner.Run(ctx, tool.Cmd{
		Tool: "makeblastdb",
		Path: b.Makeblastdb,
		Args: []string{"-in", db, "-dbtype", "nucl"},
	}); err != nil {
		return err
	}
	if b.built == nil {
		b.built = map[string]bool{}
	}
	b.built[db] = true
	return nil
}

// Search implements Searcher.
func (b *Blastn) Search(ctx context.Context, db string, q Query) ([]Hit, error) {
	if err := b.makeDB(ctx, db); err != nil {
		return nil, err
	}
	cmd := tool.Cmd{
		Tool: "blastn",
		Path: b.Blastn,
		Args: []string{"-db", db, "-outfmt", OutFmt, "-perc_identity", "100"},
	}
	if b.Threads > 0 {
		cmd.Args = append(cmd.Args, "-num_threads", strconv.Itoa(b.Threads))
	}
	if q.Path != "" {
		cmd.Args = append(cmd.Args, "-query", q.Path)
	} else {
		stdin, err := q.fastaText()
		if err != nil {
			return nil, err
		}
		cmd.Args = append(cmd.Args, "-query", "-")
		cmd.Stdin = stdin
	}
	out, err := b.Runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	hits, err := ReadHits(bytes.NewReader(out))
	if err != nil {
		return nil, errors.E(err, "blastn", db)
	}
	return hits, nil
}
