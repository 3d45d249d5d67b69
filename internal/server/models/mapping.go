package models

import (
	"github.com/google/uuid"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/diff"
)

// Mapping links two concepts with a typed relationship, one row per mapping
// version. FromConceptName is denormalized from the linked concept when the
// repository loads the row.
type Mapping struct {
	ID                     int64
	VersionedObjectID      int64
	SourceVersionID        int64
	Mnemonic               string
	ExternalID             uuid.UUID
	MapType                string
	FromConceptCodeField   string
	FromConceptName        string
	FromConceptVersionedID int64
	FromSourceURL          string
	ToConceptCode          string
	ToSourceURL            string
	Extras                 map[string]any
	Retired                bool
	Checksums              checksum.Checksums
}

func (m *Mapping) ResourceType() string { return "Mapping" }
func (m *Mapping) RecordID() int64      { return m.ID }
func (m *Mapping) IsRetired() bool      { return m.Retired }

func (m *Mapping) IdentityValue(field string) string {
	switch field {
	case "external_id":
		if m.ExternalID == uuid.Nil {
			return ""
		}
		return m.ExternalID.String()
	default:
		return m.Mnemonic
	}
}

func (m *Mapping) FromConceptCode() string        { return m.FromConceptCodeField }
func (m *Mapping) FromConceptDisplayName() string { return m.FromConceptName }

func (m *Mapping) Summary() diff.MappingSummary {
	return diff.MappingSummary{
		FromConcept: m.FromConceptCodeField,
		FromSource:  m.FromSourceURL,
		ToConcept:   m.ToConceptCode,
		ToSource:    m.ToSourceURL,
		MapType:     m.MapType,
	}
}

func (m *Mapping) ChecksumKinds() []string {
	return []string{checksum.StandardKey, checksum.SmartKey}
}

func (m *Mapping) StandardChecksumFields() map[string]any {
	return map[string]any{
		"map_type":     m.MapType,
		"from_concept": stringValue(m.FromConceptCodeField),
		"to_concept":   stringValue(m.ToConceptCode),
		"from_source":  stringValue(m.FromSourceURL),
		"to_source":    stringValue(m.ToSourceURL),
		"extras":       extrasValue(m.Extras),
		"external_id":  uuidValue(m.ExternalID),
		"retired":      m.Retired,
	}
}

func (m *Mapping) SmartChecksumFields() map[string]any {
	return map[string]any{
		"map_type":     m.MapType,
		"from_concept": stringValue(m.FromConceptCodeField),
		"to_concept":   stringValue(m.ToConceptCode),
		"retired":      m.Retired,
	}
}

func (m *Mapping) StoredChecksums() checksum.Checksums     { return m.Checksums }
func (m *Mapping) SetStoredChecksums(s checksum.Checksums) { m.Checksums = s }

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ checksum.PersistentResource = (*Mapping)(nil)
	_ diff.Resource               = (*Mapping)(nil)
	_ diff.MappingRecord          = (*Mapping)(nil)
)
