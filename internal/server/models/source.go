package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/termstore/termstore/internal/checksum"
)

// Source is a terminology source (code system) head record.
type Source struct {
	ID            int64
	Mnemonic      string
	Name          string
	FullName      string
	SourceType    string
	DefaultLocale string
	CanonicalURL  string
	ExternalID    uuid.UUID
	Extras        map[string]any
	Retired       bool
	Checksums     checksum.Checksums
}

func (s *Source) ResourceType() string { return "Source" }
func (s *Source) RecordID() int64      { return s.ID }

func (s *Source) ChecksumKinds() []string {
	return []string{checksum.StandardKey}
}

func (s *Source) StandardChecksumFields() map[string]any {
	return map[string]any{
		"mnemonic":       s.Mnemonic,
		"name":           stringValue(s.Name),
		"full_name":      stringValue(s.FullName),
		"source_type":    stringValue(s.SourceType),
		"default_locale": stringValue(s.DefaultLocale),
		"canonical_url":  stringValue(s.CanonicalURL),
		"external_id":    uuidValue(s.ExternalID),
		"extras":         extrasValue(s.Extras),
		"retired":        s.Retired,
	}
}

// Sources carry no smart checksum.
func (s *Source) SmartChecksumFields() map[string]any { return nil }

func (s *Source) StoredChecksums() checksum.Checksums     { return s.Checksums }
func (s *Source) SetStoredChecksums(c checksum.Checksums) { s.Checksums = c }

// SourceVersion is one released or HEAD snapshot of a source; concepts and
// mappings belong to exactly one source version.
type SourceVersion struct {
	ID        int64
	SourceID  int64
	Version   string
	Released  bool
	CreatedAt time.Time
}

var _ checksum.PersistentResource = (*Source)(nil)
