package sources

import (
	"context"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/server/models"
)

type Repository interface {
	// GetByMnemonic fetches a source head record by its mnemonic.
	GetByMnemonic(ctx context.Context, mnemonic string) (*models.Source, error)

	// GetByID fetches a source head record by database id.
	GetByID(ctx context.Context, id int64) (*models.Source, error)

	// GetVersion fetches one version snapshot of a source.
	GetVersion(ctx context.Context, sourceID int64, version string) (*models.SourceVersion, error)

	// UpdateChecksums replaces the source's persisted checksum document.
	UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error
}
