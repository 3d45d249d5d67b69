// Package concepts provides the PostgreSQL-backed repository for concept
// rows and their checksum documents.
package concepts

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

// PostgresRepository implements concept storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const conceptColumns = `id, versioned_object_id, source_version_id, mnemonic, external_id,
		concept_class, datatype, display_name, names, descriptions, extras, retired, checksums`

func (r *PostgresRepository) SelectForSourceVersion(ctx context.Context, sourceVersionID int64) ([]*models.Concept, error) {
	query := `SELECT ` + conceptColumns + ` FROM concepts WHERE source_version_id = $1`
	rows, err := r.db.QueryContext(ctx, query, sourceVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select concepts: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Concept, error) {
	query := `SELECT ` + conceptColumns + ` FROM concepts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) SelectMissingChecksums(ctx context.Context, limit int) ([]*models.Concept, error) {
	query := `SELECT ` + conceptColumns + ` FROM concepts
		WHERE checksums IS NULL OR NOT (checksums ? 'standard' AND checksums ? 'smart')
		ORDER BY id
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale concepts: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

func (r *PostgresRepository) UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error {
	doc, err := json.Marshal(sums)
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE concepts SET checksums = $2 WHERE id = $1`, id, doc)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcept(row rowScanner) (*models.Concept, error) {
	var (
		c            models.Concept
		externalID   sql.NullString
		names        []byte
		descriptions []byte
		extras       []byte
		checksums    []byte
	)
	if err := row.Scan(
		&c.ID, &c.VersionedObjectID, &c.SourceVersionID, &c.Mnemonic, &externalID,
		&c.ConceptClass, &c.Datatype, &c.DisplayName, &names, &descriptions, &extras,
		&c.Retired, &checksums,
	); err != nil {
		return nil, err
	}
	if externalID.Valid {
		u, err := uuid.Parse(externalID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid external_id: %w", err)
		}
		c.ExternalID = u
	}
	if err := unmarshalInto(names, &c.Names); err != nil {
		return nil, err
	}
	if err := unmarshalInto(descriptions, &c.Descriptions); err != nil {
		return nil, err
	}
	if err := unmarshalInto(extras, &c.Extras); err != nil {
		return nil, err
	}
	if err := unmarshalInto(checksums, &c.Checksums); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanConcepts(rows *sql.Rows) ([]*models.Concept, error) {
	var result []*models.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func unmarshalInto(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("unmarshal jsonb column: %w", err)
	}
	return nil
}
