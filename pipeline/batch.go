package pipeline

import (
	"context"
	"path/filepath"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sbt/locus"
	"golang.org/x/sync/errgroup"
)

// RunBatch runs every isolate, at most parallelism at a time, each in
// <opts.OutDir>/<id>. Results are returned in input order. The first
// failure cancels the isolates still running.
func RunBatch(ctx context.Context, isolates []Isolate, ref *locus.Reference, opts Opts, deps Deps, parallelism int) ([]*Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]*Result, len(isolates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range isolates {
		i := i
		g.Go(func() error {
			o := opts
			o.OutDir = filepath.Join(opts.OutDir, isolates[i].ID)
			r, err := Run(ctx, isolates[i], ref, o, deps)
			if err != nil {
				log.Error.Printf("%s: %v", isolates[i].ID, err)
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
