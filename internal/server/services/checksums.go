// Package services implements the server-side use cases over the
// repositories: checksum lifecycle, source-version diffing, and changelog
// composition.
package services

import (
	"context"
	"fmt"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/models"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
)

// ChecksumService manages checksum documents for stored resources. It is
// the Recalculator behind the async dispatchers and the persistence glue for
// the calculator.
type ChecksumService struct {
	rm         repomanager.RepositoryManager
	logger     logging.Logger
	calc       *checksum.Calculator
	dispatcher checksum.Dispatcher
}

// NewChecksumService builds the service. The dispatcher is attached later
// with SetDispatcher because the worker needs this service to execute jobs.
func NewChecksumService(rm repomanager.RepositoryManager, logger logging.Logger, enabled bool) *ChecksumService {
	s := &ChecksumService{
		rm:     rm,
		logger: logger.With("module", "checksum_service"),
	}
	s.calc = checksum.NewCalculator(checksum.Options{
		Enabled:    enabled,
		Dispatcher: checksum.DispatcherFunc(s.dispatch),
		Persist:    s.persist,
		Logger:     logger,
	})
	return s
}

// SetDispatcher attaches the async dispatcher used by queued retrieval.
func (s *ChecksumService) SetDispatcher(d checksum.Dispatcher) {
	s.dispatcher = d
}

// Calculator exposes the underlying toggle-gated calculator.
func (s *ChecksumService) Calculator() *checksum.Calculator {
	return s.calc
}

func (s *ChecksumService) dispatch(ctx context.Context, resourceType string, id int64) error {
	if s.dispatcher == nil {
		return fmt.Errorf("no dispatcher attached")
	}
	return s.dispatcher.Dispatch(ctx, resourceType, id)
}

func (s *ChecksumService) persist(ctx context.Context, r checksum.PersistentResource) error {
	switch res := r.(type) {
	case *models.Concept:
		return s.rm.Concepts().UpdateChecksums(ctx, res.ID, res.Checksums)
	case *models.Mapping:
		return s.rm.Mappings().UpdateChecksums(ctx, res.ID, res.Checksums)
	case *models.Source:
		return s.rm.Sources().UpdateChecksums(ctx, res.ID, res.Checksums)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownResource, r.ResourceType())
	}
}

// Get returns a resource's checksum document per the calculator contract.
func (s *ChecksumService) Get(ctx context.Context, r checksum.PersistentResource, opts checksum.GetOptions) (checksum.Checksums, error) {
	return s.calc.Get(ctx, r, opts)
}

// Set recomputes and persists a resource's checksum document.
func (s *ChecksumService) Set(ctx context.Context, r checksum.PersistentResource) error {
	return s.calc.Set(ctx, r)
}

// Recalculate loads a resource by type and id, then recomputes and persists
// its checksums. Executed by the async workers.
func (s *ChecksumService) Recalculate(ctx context.Context, resourceType string, id int64) error {
	switch resourceType {
	case "Concept":
		c, err := s.rm.Concepts().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load concept %d: %w", id, err)
		}
		return s.calc.Set(ctx, c)
	case "Mapping":
		m, err := s.rm.Mappings().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load mapping %d: %w", id, err)
		}
		return s.calc.Set(ctx, m)
	case "Source":
		src, err := s.rm.Sources().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load source %d: %w", id, err)
		}
		return s.calc.Set(ctx, src)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownResource, resourceType)
	}
}

// EnsureSourceVersion synchronously materializes checksum documents for
// every concept and mapping of a source version that is missing one.
// Diffing requires fully materialized checksums, so the whole version is
// written in one transaction.
func (s *ChecksumService) EnsureSourceVersion(ctx context.Context, sourceVersionID int64) error {
	if !s.calc.Enabled() {
		return nil
	}
	return s.rm.InTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		conceptRows, err := r.Concepts().SelectForSourceVersion(ctx, sourceVersionID)
		if err != nil {
			return err
		}
		for _, c := range conceptRows {
			if c.Checksums.HasAll(c.ChecksumKinds()) {
				continue
			}
			sums, err := s.calc.All(c)
			if err != nil {
				return err
			}
			c.SetStoredChecksums(sums)
			if err := r.Concepts().UpdateChecksums(ctx, c.ID, sums); err != nil {
				return err
			}
		}
		mappingRows, err := r.Mappings().SelectForSourceVersion(ctx, sourceVersionID)
		if err != nil {
			return err
		}
		for _, m := range mappingRows {
			if m.Checksums.HasAll(m.ChecksumKinds()) {
				continue
			}
			sums, err := s.calc.All(m)
			if err != nil {
				return err
			}
			m.SetStoredChecksums(sums)
			if err := r.Mappings().UpdateChecksums(ctx, m.ID, sums); err != nil {
				return err
			}
		}
		return nil
	})
}
