package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termstore/termstore/internal/checksum"
	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/server/models"
	"github.com/termstore/termstore/internal/server/tasks"
)

func TestRecalculate_Concept(t *testing.T) {
	rm := newFakeRepoManager()
	rm.concepts.add(10, &models.Concept{ID: 1, VersionedObjectID: 1, Mnemonic: "fever", DisplayName: "Fever"})

	svc := NewChecksumService(rm, testLogger(), true)

	err := svc.Recalculate(context.Background(), "Concept", 1)
	require.NoError(t, err)

	sums := rm.concepts.updated[1]
	require.NotNil(t, sums)
	assert.True(t, sums.HasAll([]string{checksum.StandardKey, checksum.SmartKey}))
}

func TestRecalculate_Source(t *testing.T) {
	rm := newFakeRepoManager()
	rm.sources.add(&models.Source{ID: 3, Mnemonic: "ICD-10"})

	svc := NewChecksumService(rm, testLogger(), true)

	err := svc.Recalculate(context.Background(), "Source", 3)
	require.NoError(t, err)

	sums := rm.sources.updated[3]
	require.NotNil(t, sums)
	assert.True(t, sums.Has(checksum.StandardKey))
	assert.False(t, sums.Has(checksum.SmartKey))
}

func TestRecalculate_UnknownType(t *testing.T) {
	svc := NewChecksumService(newFakeRepoManager(), testLogger(), true)

	err := svc.Recalculate(context.Background(), "Collection", 1)
	require.ErrorIs(t, err, common.ErrUnknownResource)
}

func TestRecalculate_MissingResource(t *testing.T) {
	svc := NewChecksumService(newFakeRepoManager(), testLogger(), true)

	err := svc.Recalculate(context.Background(), "Mapping", 404)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecalculate_ToggleOffSkipsPersist(t *testing.T) {
	rm := newFakeRepoManager()
	rm.concepts.add(10, &models.Concept{ID: 1, Mnemonic: "fever"})

	svc := NewChecksumService(rm, testLogger(), false)

	err := svc.Recalculate(context.Background(), "Concept", 1)
	require.NoError(t, err)
	assert.Empty(t, rm.concepts.updated)
}

func TestGet_QueueUsesAttachedDispatcher(t *testing.T) {
	rm := newFakeRepoManager()
	c := &models.Concept{ID: 1, Mnemonic: "fever"}
	rm.concepts.add(10, c)

	svc := NewChecksumService(rm, testLogger(), true)
	svc.SetDispatcher(tasks.NewInline(svc))

	sums, err := svc.Get(context.Background(), c, checksum.GetOptions{Queue: true})
	require.NoError(t, err)

	// The inline dispatcher recalculates synchronously, so persistence has
	// already happened even though Get reports the pre-dispatch document.
	assert.NotNil(t, rm.concepts.updated[1])
	assert.NotNil(t, sums)
}

func TestGet_QueueWithoutDispatcherFails(t *testing.T) {
	rm := newFakeRepoManager()
	c := &models.Concept{ID: 1, Mnemonic: "fever"}
	rm.concepts.add(10, c)

	svc := NewChecksumService(rm, testLogger(), true)

	_, err := svc.Get(context.Background(), c, checksum.GetOptions{Queue: true})
	require.Error(t, err)
}

func TestSet_PersistsThroughRepository(t *testing.T) {
	rm := newFakeRepoManager()
	m := &models.Mapping{ID: 2, Mnemonic: "m-1", MapType: "SAME-AS"}
	rm.mappings.add(10, m)

	svc := NewChecksumService(rm, testLogger(), true)

	require.NoError(t, svc.Set(context.Background(), m))
	assert.Equal(t, m.Checksums, rm.mappings.updated[2])
}

func TestEnsureSourceVersion_MaterializesMissingDocuments(t *testing.T) {
	rm := newFakeRepoManager()
	complete := &models.Concept{ID: 1, Mnemonic: "done", Checksums: checksum.Checksums{
		checksum.StandardKey: "aaa", checksum.SmartKey: "bbb",
	}}
	incomplete := &models.Concept{ID: 2, Mnemonic: "todo"}
	rm.concepts.add(10, complete)
	rm.concepts.add(10, incomplete)
	rm.mappings.add(10, &models.Mapping{ID: 5, Mnemonic: "m-1", MapType: "SAME-AS"})

	svc := NewChecksumService(rm, testLogger(), true)

	require.NoError(t, svc.EnsureSourceVersion(context.Background(), 10))

	assert.NotContains(t, rm.concepts.updated, int64(1), "complete documents stay untouched")
	assert.Contains(t, rm.concepts.updated, int64(2))
	assert.Contains(t, rm.mappings.updated, int64(5))
}

func TestEnsureSourceVersion_ToggleOffIsNoop(t *testing.T) {
	rm := newFakeRepoManager()
	rm.concepts.add(10, &models.Concept{ID: 1, Mnemonic: "fever"})

	svc := NewChecksumService(rm, testLogger(), false)

	require.NoError(t, svc.EnsureSourceVersion(context.Background(), 10))
	assert.Empty(t, rm.concepts.updated)
}
