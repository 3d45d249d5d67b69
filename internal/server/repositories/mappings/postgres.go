// Package mappings provides the PostgreSQL-backed repository for mapping
// rows and their checksum documents. The from-concept code and display name
// are resolved against the concepts table when absent on the mapping row.
package mappings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/dbx"
	"github.com/termstore/termstore/internal/server/models"
)

// PostgresRepository implements mapping storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const mappingSelect = `SELECT m.id, m.versioned_object_id, m.source_version_id, m.mnemonic, m.external_id,
		m.map_type, COALESCE(m.from_concept_code, c.mnemonic, ''), COALESCE(c.display_name, ''),
		COALESCE(m.from_concept_versioned_id, 0), m.from_source_url, m.to_concept_code, m.to_source_url,
		m.extras, m.retired, m.checksums
	FROM mappings m
	LEFT JOIN concepts c ON c.versioned_object_id = m.from_concept_versioned_id AND c.id = c.versioned_object_id`

func (r *PostgresRepository) SelectForSourceVersion(ctx context.Context, sourceVersionID int64) ([]*models.Mapping, error) {
	query := mappingSelect + ` WHERE m.source_version_id = $1`
	rows, err := r.db.QueryContext(ctx, query, sourceVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select mappings: %w", err)
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Mapping, error) {
	query := mappingSelect + ` WHERE m.id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return m, err
}

func (r *PostgresRepository) SelectForConcept(ctx context.Context, conceptVersionedID int64, mnemonics []string) ([]*models.Mapping, error) {
	if len(mnemonics) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(mnemonics))
	args := make([]any, 0, len(mnemonics)+1)
	args = append(args, conceptVersionedID)
	for i, m := range mnemonics {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, m)
	}
	query := mappingSelect + fmt.Sprintf(
		` WHERE m.from_concept_versioned_id = $1 AND m.mnemonic IN (%s) ORDER BY m.mnemonic`,
		strings.Join(placeholders, ", "))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select mappings for concept: %w", err)
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *PostgresRepository) SelectMissingChecksums(ctx context.Context, limit int) ([]*models.Mapping, error) {
	query := mappingSelect + `
		WHERE m.checksums IS NULL OR NOT (m.checksums ? 'standard' AND m.checksums ? 'smart')
		ORDER BY m.id
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale mappings: %w", err)
	}
	defer rows.Close()
	return scanMappings(rows)
}

func (r *PostgresRepository) UpdateChecksums(ctx context.Context, id int64, sums checksum.Checksums) error {
	doc, err := json.Marshal(sums)
	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE mappings SET checksums = $2 WHERE id = $1`, id, doc)
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

func scanMapping(row rowScanner) (*models.Mapping, error) {
	var (
		m          models.Mapping
		externalID sql.NullString
		extras     []byte
		checksums  []byte
	)
	if err := row.Scan(
		&m.ID, &m.VersionedObjectID, &m.SourceVersionID, &m.Mnemonic, &externalID,
		&m.MapType, &m.FromConceptCodeField, &m.FromConceptName,
		&m.FromConceptVersionedID, &m.FromSourceURL, &m.ToConceptCode, &m.ToSourceURL,
		&extras, &m.Retired, &checksums,
	); err != nil {
		return nil, err
	}
	if externalID.Valid {
		u, err := uuid.Parse(externalID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid external_id: %w", err)
		}
		m.ExternalID = u
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &m.Extras); err != nil {
			return nil, fmt.Errorf("unmarshal extras: %w", err)
		}
	}
	if len(checksums) > 0 {
		if err := json.Unmarshal(checksums, &m.Checksums); err != nil {
			return nil, fmt.Errorf("unmarshal checksums: %w", err)
		}
	}
	return &m, nil
}

func scanMappings(rows *sql.Rows) ([]*models.Mapping, error) {
	var result []*models.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
