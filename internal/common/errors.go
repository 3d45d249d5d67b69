// Package common defines shared constants and sentinel errors used across
// termstore layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Diff/changelog precondition errors.
	ErrChecksumNotReady = errors.New("checksum not ready")
	ErrDiffNotVerbose   = errors.New("diff result is not verbose")

	// Dispatcher errors.
	ErrQueueFull       = errors.New("checksum queue full")
	ErrUnknownResource = errors.New("unknown resource type")
)
