package checksum

import (
	"context"
	"fmt"

	"github.com/termstore/termstore/internal/logging"
)

// Dispatcher hands a recomputation request to an asynchronous worker. A
// dispatched request is eventually consistent: the caller gets whatever is
// currently cached.
type Dispatcher interface {
	Dispatch(ctx context.Context, resourceType string, id int64) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, resourceType string, id int64) error

func (f DispatcherFunc) Dispatch(ctx context.Context, resourceType string, id int64) error {
	return f(ctx, resourceType, id)
}

// PersistFunc writes a resource's checksum document to durable storage.
type PersistFunc func(ctx context.Context, r PersistentResource) error

// Options configures a Calculator. Enabled is the CHECKSUMS_TOGGLE feature
// switch: when false every calculator operation is a no-op returning nil.
type Options struct {
	Enabled    bool
	Dispatcher Dispatcher
	Persist    PersistFunc
	Logger     logging.Logger
}

// Calculator governs the checksum lifecycle of resources: lazy synchronous
// computation, deferred recomputation through a dispatcher, and persistence.
type Calculator struct {
	enabled    bool
	dispatcher Dispatcher
	persist    PersistFunc
	logger     logging.Logger
}

func NewCalculator(opts Options) *Calculator {
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("module", "checksum_calculator")
	}
	return &Calculator{
		enabled:    opts.Enabled,
		dispatcher: opts.Dispatcher,
		persist:    opts.Persist,
		logger:     logger,
	}
}

// Enabled reports the state of the feature toggle.
func (c *Calculator) Enabled() bool { return c.enabled }

// GetOptions controls Get behavior. Queue defers recomputation to the
// dispatcher; Recalculate forces recomputation even when the document is
// complete.
type GetOptions struct {
	Queue       bool
	Recalculate bool
}

// Get returns a copy of the resource's checksum document; mutating it does
// not affect the resource's stored state. A complete cached document is
// returned unless Recalculate is set. With Queue, recomputation is handed
// to the dispatcher and the current (possibly empty) document is returned
// immediately. Otherwise computation happens synchronously and the result
// is persisted.
func (c *Calculator) Get(ctx context.Context, r PersistentResource, opts GetOptions) (Checksums, error) {
	if !c.enabled {
		return nil, nil
	}
	stored := r.StoredChecksums()
	if !opts.Recalculate && len(stored) > 0 && stored.HasAll(r.ChecksumKinds()) {
		return stored.Clone(), nil
	}
	if opts.Queue {
		if c.dispatcher == nil {
			return nil, fmt.Errorf("no dispatcher configured for %s/%d", r.ResourceType(), r.RecordID())
		}
		if err := c.dispatcher.Dispatch(ctx, r.ResourceType(), r.RecordID()); err != nil {
			return nil, fmt.Errorf("dispatch checksum calculation: %w", err)
		}
		if c.logger != nil {
			c.logger.Debug(ctx, "queued checksum calculation", "type", r.ResourceType(), "id", r.RecordID())
		}
		return stored.Clone(), nil
	}
	if err := c.Set(ctx, r); err != nil {
		return nil, err
	}
	return r.StoredChecksums().Clone(), nil
}

// Set unconditionally recomputes every configured checksum kind, replaces
// the resource's document, and persists it.
func (c *Calculator) Set(ctx context.Context, r PersistentResource) error {
	if !c.enabled {
		return nil
	}
	sums, err := c.All(r)
	if err != nil {
		return err
	}
	r.SetStoredChecksums(sums)
	if c.persist != nil {
		if err := c.persist(ctx, r); err != nil {
			return fmt.Errorf("persist checksums for %s/%d: %w", r.ResourceType(), r.RecordID(), err)
		}
	}
	return nil
}

// Checksum is the external-facing scalar accessor: the standard digest.
// A cached value is returned directly; otherwise the full document is
// computed synchronously as a side effect.
func (c *Calculator) Checksum(ctx context.Context, r PersistentResource) (string, error) {
	if !c.enabled {
		return "", nil
	}
	if stored := r.StoredChecksums(); stored[StandardKey] != "" {
		return stored[StandardKey], nil
	}
	if _, err := c.Get(ctx, r, GetOptions{}); err != nil {
		return "", err
	}
	return r.StoredChecksums()[StandardKey], nil
}

// All computes the digests for every kind the resource declares, without
// touching stored state.
func (c *Calculator) All(r Resource) (Checksums, error) {
	if !c.enabled {
		return nil, nil
	}
	sums := make(Checksums, 2)
	for _, kind := range r.ChecksumKinds() {
		var fields map[string]any
		switch kind {
		case SmartKey:
			fields = r.SmartChecksumFields()
		default:
			fields = r.StandardChecksumFields()
		}
		if fields == nil {
			fields = map[string]any{}
		}
		digest, err := Generate(fields)
		if err != nil {
			return nil, fmt.Errorf("generate %s checksum: %w", kind, err)
		}
		sums[kind] = digest
	}
	return sums, nil
}
