// Package sources provides the PostgreSQL-backed repository for source head
// records and their version snapshots.
package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/dbx"
	"github.com/termstore/termstore/internal/server/models"
)

// PostgresRepository implements source storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sourceColumns = `id, mnemonic, name, full_name, source_type, default_locale,
		canonical_url, external_id, extras, retired, checksums`

func (r *PostgresRepository) GetByMnemonic(ctx context.Context, mnemonic string) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE mnemonic = $1`
	return r.getOne(ctx, query, mnemonic)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Source, error) {
	var (
		s          models.Source
		externalID sql.NullString
		extras     []byte
		checksums  []byte
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&s.ID, &s.Mnemonic, &s.Name, &s.FullName, &s.SourceType, &s.DefaultLocale,
		&s.CanonicalURL, &externalID, &extras, &s.Retired, &checksums,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select source: %w", err)
	}
	if externalID.Valid {
		u, err := uuid.Parse(externalID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid external_id: %w", err)
		}
		s.ExternalID = u
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &s.Extras); err != nil {
			return nil, fmt.Errorf("unmarshal extras: %w", err)
		}
	}
	if len(checksums) > 0 {
		if err := json.Unmarshal(checksums, &s.Checksums); err != nil {
			return nil, fmt.Errorf("unmarshal checksums: %w", err)
		}
	}
	return &s, nil
}

func (r *PostgresRepository) GetVersion(ctx context.Context, sourceID int64, version string) (*models.SourceVersion, error) {
	query := `SELECT id, source_id, version, released, created_at
		FROM source_versions WHERE source_id = $1 AND version = $2`
	var v models.SourceVersion
	err := r.db.QueryRowContext(ctx, query, sourceID, version).Scan(
		&v.ID, &v.SourceID, &v.Version, &v.Released, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select source version: %w", err)
	}
	return &v, nil
}

func (r *PostgresRepository) UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error {
	doc, err := json.Marshal(sums)
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE sources SET checksums = $2 WHERE id = $1`, id, doc)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
