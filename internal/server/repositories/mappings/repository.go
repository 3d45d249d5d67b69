package mappings

import (
	"context"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/server/models"
)

type Repository interface {
	// SelectForSourceVersion returns every mapping row belonging to a source
	// version, with its persisted checksum document.
	SelectForSourceVersion(ctx context.Context, sourceVersionID int64) ([]*models.Mapping, error)

	// GetByID fetches one mapping row by database id.
	GetByID(ctx context.Context, id int64) (*models.Mapping, error)

	// SelectForConcept returns the mappings owned by the given
	// version-independent concept id, restricted to the candidate mnemonics.
	SelectForConcept(ctx context.Context, conceptVersionedID int64, mnemonics []string) ([]*models.Mapping, error)

	// SelectMissingChecksums lists mappings whose checksum document is
	// absent or incomplete, for reconciliation.
	SelectMissingChecksums(ctx context.Context, limit int) ([]*models.Mapping, error)

	// UpdateChecksums replaces the mapping's persisted checksum document.
	UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error
}
