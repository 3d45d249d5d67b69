package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/models"
	"github.com/termstore/termstore/internal/server/repositories/concepts"
	"github.com/termstore/termstore/internal/server/repositories/mappings"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
	"github.com/termstore/termstore/internal/server/repositories/sources"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeConceptRepo struct {
	byVersion map[int64][]*models.Concept
	byID      map[int64]*models.Concept
	updated   map[int64]checksum.Checksums
	err       error
}

func newFakeConceptRepo() *fakeConceptRepo {
	return &fakeConceptRepo{
		byVersion: map[int64][]*models.Concept{},
		byID:      map[int64]*models.Concept{},
		updated:   map[int64]checksum.Checksums{},
	}
}

func (r *fakeConceptRepo) add(versionID int64, c *models.Concept) {
	r.byVersion[versionID] = append(r.byVersion[versionID], c)
	r.byID[c.ID] = c
}

func (r *fakeConceptRepo) SelectForSourceVersion(_ context.Context, sourceVersionID int64) ([]*models.Concept, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.byVersion[sourceVersionID], nil
}

func (r *fakeConceptRepo) GetByID(_ context.Context, id int64) (*models.Concept, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (r *fakeConceptRepo) SelectMissingChecksums(_ context.Context, limit int) ([]*models.Concept, error) {
	var out []*models.Concept
	for _, c := range r.byID {
		if len(out) == limit {
			break
		}
		if !c.Checksums.HasAll(c.ChecksumKinds()) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConceptRepo) UpdateChecksums(_ context.Context, id int64, sums checksum.Checksums) error {
	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	r.updated[id] = sums
	return nil
}

type fakeMappingRepo struct {
	byVersion map[int64][]*models.Mapping
	byID      map[int64]*models.Mapping
	updated   map[int64]checksum.Checksums
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{
		byVersion: map[int64][]*models.Mapping{},
		byID:      map[int64]*models.Mapping{},
		updated:   map[int64]checksum.Checksums{},
	}
}

func (r *fakeMappingRepo) add(versionID int64, m *models.Mapping) {
	r.byVersion[versionID] = append(r.byVersion[versionID], m)
	r.byID[m.ID] = m
}

func (r *fakeMappingRepo) SelectForSourceVersion(_ context.Context, sourceVersionID int64) ([]*models.Mapping, error) {
	return r.byVersion[sourceVersionID], nil
}

func (r *fakeMappingRepo) GetByID(_ context.Context, id int64) (*models.Mapping, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (r *fakeMappingRepo) SelectForConcept(_ context.Context, conceptVersionedID int64, mnemonics []string) ([]*models.Mapping, error) {
	allowed := map[string]struct{}{}
	for _, m := range mnemonics {
		allowed[m] = struct{}{}
	}
	var out []*models.Mapping
	for _, rows := range r.byVersion {
		for _, m := range rows {
			if m.FromConceptVersionedID != conceptVersionedID {
				continue
			}
			if _, ok := allowed[m.Mnemonic]; ok {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) SelectMissingChecksums(_ context.Context, limit int) ([]*models.Mapping, error) {
	var out []*models.Mapping
	for _, m := range r.byID {
		if len(out) == limit {
			break
		}
		if !m.Checksums.HasAll(m.ChecksumKinds()) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) UpdateChecksums(_ context.Context, id int64, sums checksum.Checksums) error {
	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	r.updated[id] = sums
	return nil
}

type fakeSourceRepo struct {
	byMnemonic map[string]*models.Source
	byID       map[int64]*models.Source
	versions   map[string]*models.SourceVersion
	updated    map[int64]checksum.Checksums
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		byMnemonic: map[string]*models.Source{},
		byID:       map[int64]*models.Source{},
		versions:   map[string]*models.SourceVersion{},
		updated:    map[int64]checksum.Checksums{},
	}
}

func (r *fakeSourceRepo) add(s *models.Source, versions ...*models.SourceVersion) {
	r.byMnemonic[s.Mnemonic] = s
	r.byID[s.ID] = s
	for _, v := range versions {
		r.versions[v.Version] = v
	}
}

func (r *fakeSourceRepo) GetByMnemonic(_ context.Context, mnemonic string) (*models.Source, error) {
	s, ok := r.byMnemonic[mnemonic]
	if !ok {
		return nil, common.ErrNotFound
	}
	return s, nil
}

func (r *fakeSourceRepo) GetByID(_ context.Context, id int64) (*models.Source, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return s, nil
}

func (r *fakeSourceRepo) GetVersion(_ context.Context, sourceID int64, version string) (*models.SourceVersion, error) {
	v, ok := r.versions[version]
	if !ok || v.SourceID != sourceID {
		return nil, common.ErrNotFound
	}
	return v, nil
}

func (r *fakeSourceRepo) UpdateChecksums(_ context.Context, id int64, sums checksum.Checksums) error {
	if _, ok := r.byID[id]; !ok {
		return common.ErrNotFound
	}
	r.updated[id] = sums
	return nil
}

type fakeRepoManager struct {
	concepts *fakeConceptRepo
	mappings *fakeMappingRepo
	sources  *fakeSourceRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		concepts: newFakeConceptRepo(),
		mappings: newFakeMappingRepo(),
		sources:  newFakeSourceRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) Conn() *sql.DB                       { return nil }
func (m *fakeRepoManager) Close() error                        { return nil }
func (m *fakeRepoManager) Concepts() concepts.Repository       { return m.concepts }
func (m *fakeRepoManager) Mappings() mappings.Repository       { return m.mappings }
func (m *fakeRepoManager) Sources() sources.Repository         { return m.sources }

func (m *fakeRepoManager) InTx(ctx context.Context, fn func(ctx context.Context, r repomanager.Repositories) error) error {
	return fn(ctx, m)
}
