package concepts

import (
	"context"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/server/models"
)

type Repository interface {
	// SelectForSourceVersion returns every concept row belonging to a source
	// version, with its persisted checksum document.
	SelectForSourceVersion(ctx context.Context, sourceVersionID int64) ([]*models.Concept, error)

	// GetByID fetches one concept row by database id.
	GetByID(ctx context.Context, id int64) (*models.Concept, error)

	// SelectMissingChecksums lists concepts whose checksum document is
	// absent or incomplete, for reconciliation.
	SelectMissingChecksums(ctx context.Context, limit int) ([]*models.Concept, error)

	// UpdateChecksums replaces the concept's persisted checksum document.
	UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error
}
