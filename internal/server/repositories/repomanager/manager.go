package repomanager

import (
	"context"
	"database/sql"

	"github.com/termstore/termstore/internal/server/repositories/concepts"
	"github.com/termstore/termstore/internal/server/repositories/mappings"
	"github.com/termstore/termstore/internal/server/repositories/sources"
)

// Repositories groups the per-resource repositories. Inside InTx they are
// bound to the transaction instead of the connection pool.
type Repositories interface {
	Concepts() concepts.Repository
	Mappings() mappings.Repository
	Sources() sources.Repository
}

type RepositoryManager interface {
	Repositories

	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error

	// InTx runs fn with repositories bound to a single transaction,
	// committing on success and rolling back on error.
	InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}
