package reconcile

import (
	"context"

	"github.com/grailbio/sbt/encoding/vcf"
	"github.com/grailbio/sbt/locus"
)

// Files reconciles the VCF files at fullPath and filteredPath.
func Files(ctx context.Context, ref *locus.Reference, fullPath, filteredPath string) (Consensus, error) {
	full, err := vcf.ReadFile(ctx, fullPath)
	if err != nil {
		return Consensus{}, err
	}
	filtered, err := vcf.ReadFile(ctx, filteredPath)
	if err != nil {
		return Consensus{}, err
	}
	return Reconcile(ref, full, filtered)
}
