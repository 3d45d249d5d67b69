// Package models defines the terminology resources (concepts, mappings,
// sources) persisted by the server, together with their checksum and diff
// capabilities.
package models

import (
	"github.com/google/uuid"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/diff"
)

// ConceptName is one localized name of a concept.
type ConceptName struct {
	Name            string `json:"name"`
	Locale          string `json:"locale"`
	LocalePreferred bool   `json:"locale_preferred"`
	NameType        string `json:"name_type,omitempty"`
	ExternalID      string `json:"external_id,omitempty"`
}

// ConceptDescription is one localized description of a concept.
type ConceptDescription struct {
	Description string `json:"description"`
	Locale      string `json:"locale"`
	ExternalID  string `json:"external_id,omitempty"`
}

// Concept is a terminology concept row, one per concept version.
type Concept struct {
	ID                int64
	VersionedObjectID int64
	SourceVersionID   int64
	Mnemonic          string
	ExternalID        uuid.UUID
	ConceptClass      string
	Datatype          string
	DisplayName       string
	Names             []ConceptName
	Descriptions      []ConceptDescription
	Extras            map[string]any
	Retired           bool
	Checksums         checksum.Checksums
}

func (c *Concept) ResourceType() string { return "Concept" }
func (c *Concept) RecordID() int64      { return c.ID }
func (c *Concept) IsRetired() bool      { return c.Retired }
func (c *Concept) VersionedID() int64   { return c.VersionedObjectID }

func (c *Concept) ConceptDisplayName() string { return c.DisplayName }

// IdentityValue resolves the field used to correlate this concept across
// snapshots.
func (c *Concept) IdentityValue(field string) string {
	switch field {
	case "external_id":
		if c.ExternalID == uuid.Nil {
			return ""
		}
		return c.ExternalID.String()
	default:
		return c.Mnemonic
	}
}

func (c *Concept) ChecksumKinds() []string {
	return []string{checksum.StandardKey, checksum.SmartKey}
}

func (c *Concept) StandardChecksumFields() map[string]any {
	return map[string]any{
		"concept_class": c.ConceptClass,
		"datatype":      c.Datatype,
		"names":         namesFields(c.Names, false),
		"descriptions":  descriptionFields(c.Descriptions),
		"extras":        extrasValue(c.Extras),
		"external_id":   uuidValue(c.ExternalID),
		"retired":       c.Retired,
	}
}

func (c *Concept) SmartChecksumFields() map[string]any {
	return map[string]any{
		"concept_class": c.ConceptClass,
		"datatype":      c.Datatype,
		"names":         namesFields(c.Names, true),
		"retired":       c.Retired,
	}
}

func (c *Concept) StoredChecksums() checksum.Checksums     { return c.Checksums }
func (c *Concept) SetStoredChecksums(s checksum.Checksums) { c.Checksums = s }

func namesFields(names []ConceptName, smart bool) any {
	if len(names) == 0 {
		return nil
	}
	out := make([]any, 0, len(names))
	for _, n := range names {
		fields := map[string]any{
			"name":   n.Name,
			"locale": n.Locale,
		}
		if n.NameType != "" {
			fields["name_type"] = n.NameType
		}
		if !smart {
			fields["locale_preferred"] = n.LocalePreferred
			if n.ExternalID != "" {
				fields["external_id"] = n.ExternalID
			}
		}
		out = append(out, fields)
	}
	return out
}

func descriptionFields(descriptions []ConceptDescription) any {
	if len(descriptions) == 0 {
		return nil
	}
	out := make([]any, 0, len(descriptions))
	for _, d := range descriptions {
		fields := map[string]any{
			"description": d.Description,
			"locale":      d.Locale,
		}
		if d.ExternalID != "" {
			fields["external_id"] = d.ExternalID
		}
		out = append(out, fields)
	}
	return out
}

func extrasValue(extras map[string]any) any {
	if extras == nil {
		return nil
	}
	return extras
}

func uuidValue(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}

// Interface conformance.
var (
	_ checksum.PersistentResource = (*Concept)(nil)
	_ diff.Resource               = (*Concept)(nil)
	_ diff.ConceptRecord          = (*Concept)(nil)
)
