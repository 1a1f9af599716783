package partition

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/sbt/locus"
)

// File runs Partition from the SAM file at inPath to a new SAM file at
// outPath.
func File(ctx context.Context, ref *locus.Reference, inPath, outPath string) (stats Stats, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return stats, errors.E(err, "open", inPath)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return stats, errors.E(err, "create", outPath)
	}
	if stats, err = Partition(ref, in.Reader(ctx), out.Writer(ctx)); err != nil {
		out.Close(ctx) // nolint: errcheck
		return stats, errors.E(err, inPath)
	}
	return stats, out.Close(ctx)
}
