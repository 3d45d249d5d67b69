package diff

import (
	"context"
	"fmt"

	"github.com/termstore/termstore/internal/common"
)

// ConceptRecord is the concept shape the changelog composer needs.
type ConceptRecord interface {
	IdentityValue(field string) string
	ConceptDisplayName() string
	VersionedID() int64
}

// MappingSummary carries the mapping fields reported in a changelog. The
// from/to codes fall back to the linked concept's mnemonic at the provider.
type MappingSummary struct {
	FromConcept string
	FromSource  string
	ToConcept   string
	ToSource    string
	MapType     string
}

// MappingRecord is the mapping shape the changelog composer needs.
type MappingRecord interface {
	IdentityValue(field string) string
	FromConceptCode() string
	FromConceptDisplayName() string
	Summary() MappingSummary
}

// Lookup resolves identity keys back to full records. Implemented by the
// repository layer.
type Lookup interface {
	ConceptByRecordID(ctx context.Context, id int64) (ConceptRecord, error)
	MappingByRecordID(ctx context.Context, id int64) (MappingRecord, error)

	// MappingsForConcept returns the mappings whose from-concept resolves to
	// the given version-independent concept id, restricted to the candidate
	// identity keys.
	MappingsForConcept(ctx context.Context, conceptVersionedID int64, keys []string) ([]MappingRecord, error)
}

// SameWithMappingChangesKey buckets concepts whose own checksums are
// unchanged but whose mappings changed. The key name is part of the output
// contract.
const SameWithMappingChangesKey = "same_with_mapping_changes"

// Changelog composes the results of a concept differ and a mapping differ
// into a nested summary tying mapping changes to their owning concepts.
// Both differs must have been processed at verbosity 2.
type Changelog struct {
	conceptsDiff *Differ
	mappingsDiff *Differ
	identity     string
	lookup       Lookup

	result map[string]any
}

func NewChangelog(conceptsDiff, mappingsDiff *Differ, identity string, lookup Lookup) *Changelog {
	if identity == "" {
		identity = DefaultIdentity
	}
	return &Changelog{
		conceptsDiff: conceptsDiff,
		mappingsDiff: mappingsDiff,
		identity:     identity,
		lookup:       lookup,
	}
}

func mappingSummary(m MappingRecord, identity, mappingID string) map[string]any {
	id := mappingID
	if id == "" {
		id = m.IdentityValue(identity)
	}
	s := m.Summary()
	return map[string]any{
		"id":           id,
		"from_concept": s.FromConcept,
		"from_source":  s.FromSource,
		"to_concept":   s.ToConcept,
		"to_source":    s.ToSource,
		"map_type":     s.MapType,
	}
}

// Process walks the concept diff categories, attaching per-category mapping
// summaries to each changed concept, then buckets mapping changes whose
// owning concept is unchanged under same_with_mapping_changes. Every mapping
// is reported exactly once.
func (c *Changelog) Process(ctx context.Context) (map[string]any, error) {
	conceptsResult, err := c.conceptsDiff.Process(false)
	if err != nil {
		return nil, err
	}
	mappingsResult, err := c.mappingsDiff.Process(false)
	if err != nil {
		return nil, err
	}
	if !c.conceptsDiff.isVeryVerbose() || !c.mappingsDiff.isVeryVerbose() {
		return nil, fmt.Errorf("%w: changelog requires verbosity 2", common.ErrDiffNotVerbose)
	}

	conceptsOut := map[string]any{}
	mappingsOut := map[string]any{}
	traversedConcepts := map[string]struct{}{}
	traversedMappings := map[string]struct{}{}

	for _, category := range categoryOrder {
		conceptKeys := conceptsResult.Keys(category, c.identity)
		if len(conceptKeys) == 0 {
			continue
		}
		section := map[string]any{}
		for _, conceptKey := range conceptKeys {
			if _, seen := traversedConcepts[conceptKey]; seen {
				continue
			}
			traversedConcepts[conceptKey] = struct{}{}

			dbID, ok := c.conceptsDiff.DBIDFor(category, conceptKey)
			if !ok {
				return nil, fmt.Errorf("resolve concept %q in %s: %w", conceptKey, category, common.ErrNotFound)
			}
			concept, err := c.lookup.ConceptByRecordID(ctx, dbID)
			if err != nil {
				return nil, fmt.Errorf("lookup concept %q: %w", conceptKey, err)
			}

			summary := map[string]any{
				"id":           conceptKey,
				"display_name": concept.ConceptDisplayName(),
			}
			mappingsSummary, err := c.mappingsForConcept(ctx, concept, mappingsResult, traversedMappings)
			if err != nil {
				return nil, err
			}
			if len(mappingsSummary) > 0 {
				summary["mappings"] = mappingsSummary
			}
			section[conceptKey] = summary
		}
		if len(section) > 0 {
			conceptsOut[category] = section
		}
	}

	if err := c.bucketOrphanMappings(ctx, conceptsResult, mappingsResult, conceptsOut, mappingsOut, traversedMappings); err != nil {
		return nil, err
	}

	c.result = map[string]any{
		"concepts": conceptsOut,
		"mappings": mappingsOut,
	}
	return c.result, nil
}

// mappingsForConcept collects, per mapping-diff category, the not-yet-seen
// mappings owned by the given concept.
func (c *Changelog) mappingsForConcept(
	ctx context.Context,
	concept ConceptRecord,
	mappingsResult Result,
	traversed map[string]struct{},
) (map[string]any, error) {
	out := map[string]any{}
	for _, category := range categoryOrder {
		keys := mappingsResult.Keys(category, c.identity)
		candidates := make([]string, 0, len(keys))
		for _, k := range keys {
			if _, seen := traversed[k]; !seen {
				candidates = append(candidates, k)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		mappings, err := c.lookup.MappingsForConcept(ctx, concept.VersionedID(), candidates)
		if err != nil {
			return nil, fmt.Errorf("lookup mappings for concept %q: %w", concept.IdentityValue(c.identity), err)
		}
		if len(mappings) == 0 {
			continue
		}
		summaries := make([]map[string]any, 0, len(mappings))
		for _, m := range mappings {
			summaries = append(summaries, mappingSummary(m, c.identity, ""))
			traversed[m.IdentityValue(c.identity)] = struct{}{}
		}
		out[category] = summaries
	}
	return out, nil
}

// bucketOrphanMappings handles mapping changes not claimed by any changed
// concept: changes whose owning concept sits in the concept differ's same
// set go under same_with_mapping_changes; unlinked mappings are reported as
// their own sections.
func (c *Changelog) bucketOrphanMappings(
	ctx context.Context,
	conceptsResult, mappingsResult Result,
	conceptsOut, mappingsOut map[string]any,
	traversed map[string]struct{},
) error {
	sameConceptIDs := map[string]struct{}{}
	for _, k := range conceptsResult.Keys(CategorySame, c.identity) {
		sameConceptIDs[k] = struct{}{}
	}

	for _, category := range categoryOrder {
		keys := mappingsResult.Keys(category, c.identity)
		if len(keys) == 0 {
			continue
		}
		section := map[string]any{}
		for _, mappingKey := range keys {
			if _, seen := traversed[mappingKey]; seen {
				continue
			}
			traversed[mappingKey] = struct{}{}

			dbID, ok := c.mappingsDiff.DBIDFor(category, mappingKey)
			if !ok {
				return fmt.Errorf("resolve mapping %q in %s: %w", mappingKey, category, common.ErrNotFound)
			}
			mapping, err := c.lookup.MappingByRecordID(ctx, dbID)
			if err != nil {
				return fmt.Errorf("lookup mapping %q: %w", mappingKey, err)
			}

			conceptID := mapping.FromConceptCode()
			if conceptID == "" {
				section[mappingKey] = mappingSummary(mapping, c.identity, mappingKey)
				continue
			}
			if _, same := sameConceptIDs[conceptID]; !same {
				continue
			}
			bucket, ok := conceptsOut[SameWithMappingChangesKey].(map[string]any)
			if !ok {
				bucket = map[string]any{}
				conceptsOut[SameWithMappingChangesKey] = bucket
			}
			entry, ok := bucket[conceptID].(map[string]any)
			if !ok {
				entry = map[string]any{
					"id":           conceptID,
					"display_name": mapping.FromConceptDisplayName(),
					"mappings":     map[string]any{},
				}
				bucket[conceptID] = entry
			}
			perCategory := entry["mappings"].(map[string]any)
			list, _ := perCategory[category].([]map[string]any)
			perCategory[category] = append(list, mappingSummary(mapping, c.identity, mappingKey))
		}
		if len(section) > 0 {
			mappingsOut[category] = section
		}
	}
	return nil
}
