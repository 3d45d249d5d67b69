package services

import (
	"context"

	"github.com/termstore/termstore/internal/diff"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
)

// ChangelogService composes concept/mapping changelogs, resolving identity
// keys back to full records through the repositories.
type ChangelogService struct {
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

func NewChangelogService(rm repomanager.RepositoryManager, logger logging.Logger) *ChangelogService {
	return &ChangelogService{
		rm:     rm,
		logger: logger.With("module", "changelog_service"),
	}
}

// Compose runs the changelog over two processed differs. Both must have been
// built at verbosity 2.
func (s *ChangelogService) Compose(ctx context.Context, conceptsDiffer, mappingsDiffer *diff.Differ, identity string) (map[string]any, error) {
	cl := diff.NewChangelog(conceptsDiffer, mappingsDiffer, identity, &repoLookup{rm: s.rm})
	return cl.Process(ctx)
}

// repoLookup adapts the repositories to the diff.Lookup contract.
type repoLookup struct {
	rm repomanager.RepositoryManager
}

func (l *repoLookup) ConceptByRecordID(ctx context.Context, id int64) (diff.ConceptRecord, error) {
	return l.rm.Concepts().GetByID(ctx, id)
}

func (l *repoLookup) MappingByRecordID(ctx context.Context, id int64) (diff.MappingRecord, error) {
	return l.rm.Mappings().GetByID(ctx, id)
}

func (l *repoLookup) MappingsForConcept(ctx context.Context, conceptVersionedID int64, keys []string) ([]diff.MappingRecord, error) {
	rows, err := l.rm.Mappings().SelectForConcept(ctx, conceptVersionedID, keys)
	if err != nil {
		return nil, err
	}
	out := make([]diff.MappingRecord, len(rows))
	for i, m := range rows {
		out[i] = m
	}
	return out, nil
}
