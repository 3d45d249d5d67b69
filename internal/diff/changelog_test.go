package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termstore/termstore/internal/common"
)

type fakeConcept struct {
	key         string
	display     string
	versionedID int64
}

func (c fakeConcept) IdentityValue(string) string { return c.key }
func (c fakeConcept) ConceptDisplayName() string  { return c.display }
func (c fakeConcept) VersionedID() int64          { return c.versionedID }

type fakeMapping struct {
	key      string
	fromCode string
	fromName string
	summary  MappingSummary
}

func (m fakeMapping) IdentityValue(string) string    { return m.key }
func (m fakeMapping) FromConceptCode() string        { return m.fromCode }
func (m fakeMapping) FromConceptDisplayName() string { return m.fromName }
func (m fakeMapping) Summary() MappingSummary        { return m.summary }

type fakeLookup struct {
	concepts  map[int64]fakeConcept
	mappings  map[int64]fakeMapping
	byConcept map[int64][]fakeMapping
}

func (l fakeLookup) ConceptByRecordID(_ context.Context, id int64) (ConceptRecord, error) {
	c, ok := l.concepts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (l fakeLookup) MappingByRecordID(_ context.Context, id int64) (MappingRecord, error) {
	m, ok := l.mappings[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (l fakeLookup) MappingsForConcept(_ context.Context, conceptVersionedID int64, keys []string) ([]MappingRecord, error) {
	allowed := map[string]struct{}{}
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	var out []MappingRecord
	for _, m := range l.byConcept[conceptVersionedID] {
		if _, ok := allowed[m.key]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestChangelog_RequiresVerbosity2(t *testing.T) {
	concepts := NewDiffer(resources(), resources(), "", 1)
	mappings := NewDiffer(resources(), resources(), "", 2)

	_, err := NewChangelog(concepts, mappings, "", fakeLookup{}).Process(context.Background())
	require.ErrorIs(t, err, common.ErrDiffNotVerbose)
}

func TestChangelog_ChangedConceptClaimsItsMappings(t *testing.T) {
	concepts := NewDiffer(
		resources(active("c1", 1, "h-new", "s1")),
		resources(active("c1", 11, "h-old", "s1")),
		"", 2,
	)
	mappings := NewDiffer(
		resources(active("m1", 21, "mh-new", "")),
		resources(active("m1", 31, "mh-old", "")),
		"", 2,
	)

	m1 := fakeMapping{
		key:      "m1",
		fromCode: "c1",
		summary:  MappingSummary{FromConcept: "c1", ToConcept: "x", MapType: "SAME-AS"},
	}
	lookup := fakeLookup{
		concepts:  map[int64]fakeConcept{1: {key: "c1", display: "Fever", versionedID: 100}},
		mappings:  map[int64]fakeMapping{21: m1, 31: m1},
		byConcept: map[int64][]fakeMapping{100: {m1}},
	}

	result, err := NewChangelog(concepts, mappings, "", lookup).Process(context.Background())
	require.NoError(t, err)

	conceptsOut := result["concepts"].(map[string]any)
	changed := conceptsOut[CategoryChanged].(map[string]any)
	entry := changed["c1"].(map[string]any)
	assert.Equal(t, "c1", entry["id"])
	assert.Equal(t, "Fever", entry["display_name"])

	claimed := entry["mappings"].(map[string]any)[CategoryChanged].([]map[string]any)
	require.Len(t, claimed, 1)
	assert.Equal(t, "m1", claimed[0]["id"])
	assert.Equal(t, "SAME-AS", claimed[0]["map_type"])

	// A claimed mapping is reported exactly once: never again at top level.
	mappingsOut := result["mappings"].(map[string]any)
	assert.Empty(t, mappingsOut)
	assert.NotContains(t, conceptsOut, SameWithMappingChangesKey)
}

func TestChangelog_SameConceptWithChangedMapping(t *testing.T) {
	// The owning concept is unchanged but one of its mappings changed; the
	// mapping must surface under same_with_mapping_changes, keyed by the
	// concept, and nowhere else.
	concepts := NewDiffer(
		resources(active("c1", 1, "h1", "s1")),
		resources(active("c1", 11, "h1", "s1")),
		"", 2,
	)
	mappings := NewDiffer(
		resources(active("m1", 21, "mh-new", "")),
		resources(active("m1", 31, "mh-old", "")),
		"", 2,
	)

	m1 := fakeMapping{
		key:      "m1",
		fromCode: "c1",
		fromName: "Fever",
		summary:  MappingSummary{FromConcept: "c1", FromSource: "ICD-10", ToConcept: "x", ToSource: "SNOMED", MapType: "SAME-AS"},
	}
	lookup := fakeLookup{
		mappings: map[int64]fakeMapping{21: m1, 31: m1},
	}

	result, err := NewChangelog(concepts, mappings, "", lookup).Process(context.Background())
	require.NoError(t, err)

	conceptsOut := result["concepts"].(map[string]any)
	assert.NotContains(t, conceptsOut, CategoryChanged)

	bucket := conceptsOut[SameWithMappingChangesKey].(map[string]any)
	entry := bucket["c1"].(map[string]any)
	assert.Equal(t, "c1", entry["id"])
	assert.Equal(t, "Fever", entry["display_name"])

	perCategory := entry["mappings"].(map[string]any)
	changed := perCategory[CategoryChanged].([]map[string]any)
	require.Len(t, changed, 1)
	assert.Equal(t, "m1", changed[0]["id"])
	assert.Equal(t, "ICD-10", changed[0]["from_source"])

	mappingsOut := result["mappings"].(map[string]any)
	assert.Empty(t, mappingsOut, "bucketed mapping must not repeat at top level")
}

func TestChangelog_UnlinkedMappingGetsOwnSection(t *testing.T) {
	concepts := NewDiffer(resources(), resources(), "", 2)
	mappings := NewDiffer(
		resources(active("m1", 21, "mh", "")),
		resources(),
		"", 2,
	)

	orphan := fakeMapping{
		key:     "m1",
		summary: MappingSummary{ToConcept: "ext", MapType: "NARROWER-THAN"},
	}
	lookup := fakeLookup{mappings: map[int64]fakeMapping{21: orphan}}

	result, err := NewChangelog(concepts, mappings, "", lookup).Process(context.Background())
	require.NoError(t, err)

	mappingsOut := result["mappings"].(map[string]any)
	section := mappingsOut[CategoryNew].(map[string]any)
	summary := section["m1"].(map[string]any)
	assert.Equal(t, "m1", summary["id"])
	assert.Equal(t, "NARROWER-THAN", summary["map_type"])
}

func TestChangelog_MappingLinkedToChangedButUnlistedConceptSkipped(t *testing.T) {
	// The mapping's from-concept exists but is neither in a reported concept
	// category nor in the same set; the mapping is consumed silently.
	concepts := NewDiffer(resources(), resources(), "", 2)
	mappings := NewDiffer(
		resources(active("m1", 21, "mh-new", "")),
		resources(active("m1", 31, "mh-old", "")),
		"", 2,
	)

	m1 := fakeMapping{key: "m1", fromCode: "c-elsewhere"}
	lookup := fakeLookup{mappings: map[int64]fakeMapping{21: m1, 31: m1}}

	result, err := NewChangelog(concepts, mappings, "", lookup).Process(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result["mappings"].(map[string]any))
	assert.NotContains(t, result["concepts"].(map[string]any), SameWithMappingChangesKey)
}

func TestChangelog_EachConceptVisitedOnce(t *testing.T) {
	// A concept retired on the baseline side appears only under retired even
	// when later categories would also resolve its key.
	concepts := NewDiffer(
		resources(active("c1", 1, "h-new", "")),
		resources(
			active("c1", 11, "h-old", ""),
			retired("c2", 12, "h2"),
		),
		"", 2,
	)
	mappings := NewDiffer(resources(), resources(), "", 2)

	lookup := fakeLookup{
		concepts: map[int64]fakeConcept{
			1:  {key: "c1", display: "Fever", versionedID: 100},
			12: {key: "c2", display: "Old", versionedID: 200},
		},
	}

	result, err := NewChangelog(concepts, mappings, "", lookup).Process(context.Background())
	require.NoError(t, err)

	conceptsOut := result["concepts"].(map[string]any)
	require.Contains(t, conceptsOut, CategoryRetired)
	require.Contains(t, conceptsOut, CategoryChanged)

	retiredSection := conceptsOut[CategoryRetired].(map[string]any)
	changedSection := conceptsOut[CategoryChanged].(map[string]any)
	assert.Contains(t, retiredSection, "c2")
	assert.Contains(t, changedSection, "c1")
	assert.NotContains(t, changedSection, "c2")
}
