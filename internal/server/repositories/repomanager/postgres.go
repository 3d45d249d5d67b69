// Package repomanager wires the PostgreSQL repositories behind a single
// manager and runs the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/termstore/termstore/internal/dbx"
	"github.com/termstore/termstore/internal/server/migrations"
	"github.com/termstore/termstore/internal/server/repositories/concepts"
	"github.com/termstore/termstore/internal/server/repositories/mappings"
	"github.com/termstore/termstore/internal/server/repositories/sources"
)

type PostgresRepositoryManager struct {
	db       *sql.DB
	concepts concepts.Repository
	mappings mappings.Repository
	sources  sources.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Concepts() concepts.Repository {
	return m.concepts
}

func (m *PostgresRepositoryManager) Mappings() mappings.Repository {
	return m.mappings
}

func (m *PostgresRepositoryManager) Sources() sources.Repository {
	return m.sources
}

type txRepositories struct {
	concepts concepts.Repository
	mappings mappings.Repository
	sources  sources.Repository
}

func (r *txRepositories) Concepts() concepts.Repository { return r.concepts }
func (r *txRepositories) Mappings() mappings.Repository { return r.mappings }
func (r *txRepositories) Sources() sources.Repository   { return r.sources }

func (m *PostgresRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &txRepositories{
			concepts: concepts.NewPostgresRepository(tx),
			mappings: mappings.NewPostgresRepository(tx),
			sources:  sources.NewPostgresRepository(tx),
		})
	})
}

// Indirection for tests.
var gooseUpContext = goose.UpContext

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

// NewPostgresRepositoryManagerWithDB wires the repositories over an existing
// connection without running migrations.
func NewPostgresRepositoryManagerWithDB(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{
		db:       db,
		concepts: concepts.NewPostgresRepository(db),
		mappings: mappings.NewPostgresRepository(db),
		sources:  sources.NewPostgresRepository(db),
	}
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := NewPostgresRepositoryManagerWithDB(db)

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
