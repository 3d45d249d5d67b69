// Package tasks implements the asynchronous checksum recalculation
// dispatchers: an inline one for synchronous/test use and a bounded-queue
// worker pool for the server.
package tasks

import "context"

// Recalculator recomputes and persists the checksum document of a stored
// resource. Implemented by the checksum service.
type Recalculator interface {
	Recalculate(ctx context.Context, resourceType string, id int64) error
}

// Inline executes recalculation immediately in the caller's goroutine.
type Inline struct {
	recalc Recalculator
}

func NewInline(recalc Recalculator) *Inline {
	return &Inline{recalc: recalc}
}

func (i *Inline) Dispatch(ctx context.Context, resourceType string, id int64) error {
	return i.recalc.Recalculate(ctx, resourceType, id)
}
