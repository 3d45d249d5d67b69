package services

import (
	"context"
	"fmt"

	"github.com/termstore/termstore/internal/diff"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/models"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
)

// DiffService builds resource-set differs over two versions of a source.
// Side 1 is the newer version, side 2 the comparison baseline.
type DiffService struct {
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

func NewDiffService(rm repomanager.RepositoryManager, logger logging.Logger) *DiffService {
	return &DiffService{
		rm:     rm,
		logger: logger.With("module", "diff_service"),
	}
}

// SourceVersion resolves a source mnemonic and version string to the stored
// version snapshot.
func (s *DiffService) SourceVersion(ctx context.Context, sourceMnemonic, version string) (*models.SourceVersion, error) {
	src, err := s.rm.Sources().GetByMnemonic(ctx, sourceMnemonic)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", sourceMnemonic, err)
	}
	v, err := s.rm.Sources().GetVersion(ctx, src.ID, version)
	if err != nil {
		return nil, fmt.Errorf("source %q version %q: %w", sourceMnemonic, version, err)
	}
	return v, nil
}

// ConceptsDiffer loads both versions' concepts and builds a differ over them.
func (s *DiffService) ConceptsDiffer(ctx context.Context, v1, v2 *models.SourceVersion, identity string, verbosity int) (*diff.Differ, error) {
	side1, err := s.rm.Concepts().SelectForSourceVersion(ctx, v1.ID)
	if err != nil {
		return nil, fmt.Errorf("concepts for version %q: %w", v1.Version, err)
	}
	side2, err := s.rm.Concepts().SelectForSourceVersion(ctx, v2.ID)
	if err != nil {
		return nil, fmt.Errorf("concepts for version %q: %w", v2.Version, err)
	}
	return diff.NewDiffer(conceptResources(side1), conceptResources(side2), identity, verbosity), nil
}

// MappingsDiffer loads both versions' mappings and builds a differ over them.
func (s *DiffService) MappingsDiffer(ctx context.Context, v1, v2 *models.SourceVersion, identity string, verbosity int) (*diff.Differ, error) {
	side1, err := s.rm.Mappings().SelectForSourceVersion(ctx, v1.ID)
	if err != nil {
		return nil, fmt.Errorf("mappings for version %q: %w", v1.Version, err)
	}
	side2, err := s.rm.Mappings().SelectForSourceVersion(ctx, v2.ID)
	if err != nil {
		return nil, fmt.Errorf("mappings for version %q: %w", v2.Version, err)
	}
	return diff.NewDiffer(mappingResources(side1), mappingResources(side2), identity, verbosity), nil
}

// Diff runs both differs for two versions of a source and returns their
// combined results.
func (s *DiffService) Diff(ctx context.Context, sourceMnemonic, version1, version2, identity string, verbosity int) (map[string]any, error) {
	v1, err := s.SourceVersion(ctx, sourceMnemonic, version1)
	if err != nil {
		return nil, err
	}
	v2, err := s.SourceVersion(ctx, sourceMnemonic, version2)
	if err != nil {
		return nil, err
	}

	conceptsDiffer, err := s.ConceptsDiffer(ctx, v1, v2, identity, verbosity)
	if err != nil {
		return nil, err
	}
	mappingsDiffer, err := s.MappingsDiffer(ctx, v1, v2, identity, verbosity)
	if err != nil {
		return nil, err
	}

	conceptsResult, err := conceptsDiffer.Process(false)
	if err != nil {
		return nil, err
	}
	mappingsResult, err := mappingsDiffer.Process(false)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "diff computed",
		"source", sourceMnemonic, "version1", version1, "version2", version2)

	return map[string]any{
		"concepts": conceptsResult,
		"mappings": mappingsResult,
	}, nil
}

func conceptResources(rows []*models.Concept) []diff.Resource {
	out := make([]diff.Resource, len(rows))
	for i, c := range rows {
		out[i] = c
	}
	return out
}

func mappingResources(rows []*models.Mapping) []diff.Resource {
	out := make([]diff.Resource, len(rows))
	for i, m := range rows {
		out[i] = m
	}
	return out
}
