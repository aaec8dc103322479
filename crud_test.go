package manila_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manila-db/manila"
)

func mockRegistry(t *testing.T) (*manila.Registry, *manila.MockServer) {
	t.Helper()
	registry := manila.NewRegistry()
	mock := manila.NewMockServer()
	require.NoError(t, registry.Hookup("person", mock, "people"))
	return registry, mock
}

func TestStoreRejectsMismatchedID(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.StoreID = "xyz"

	doc, err := registry.Kind("person").New("abc", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	storeErr := doc.Store(ctx)
	require.Error(t, storeErr)
	assert.True(t, manila.IsErrIDMismatch(storeErr))

	var mismatch *manila.IDMismatchError
	require.True(t, errors.As(storeErr, &mismatch))
	assert.Equal(t, "abc", mismatch.ID)
	assert.Equal(t, "xyz", mismatch.Returned)

	// The document keeps its identity after the failed store.
	assert.Equal(t, "abc", doc.ID())
}

func TestStoreAdoptsGeneratedID(t *testing.T) {
	ctx := context.Background()
	mock := manila.NewMockServer()
	mock.StoreID = "new-1"

	doc := &manila.Document{}
	require.NoError(t, doc.Set("name", "Ada"))
	require.NoError(t, doc.StoreTo(ctx, mock, "people"))
	assert.Equal(t, "new-1", doc.ID())
}

func TestStoreSendsTheFullView(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)

	doc, err := registry.Kind("person").New("abc", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, doc.Store(ctx))

	require.Len(t, mock.LastRecords, 1)
	sent := mock.LastRecords[0]
	assert.Equal(t, "abc", sent["_id"])
	assert.Equal(t, "person", sent["type"])
	assert.Equal(t, "Ada", sent["name"])
	assert.Equal(t, "people", mock.LastBucket)
}

func TestLoadMergesStoredRecord(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.LoadedDocument = map[string]any{"_id": "abc", "name": "Ada", "level": 3}

	doc, err := registry.Kind("person").Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.ID())
	assert.Equal(t, "Ada", doc.GetString("name"))
	assert.Equal(t, 3, doc.GetInt("level"))
	assert.Equal(t, "person", doc.Type())
}

func TestLoadMissingRecordIsANoOp(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.LoadedDocument = nil

	doc, err := registry.Kind("person").New("abc", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, doc.Load(ctx))
	assert.Equal(t, "Ada", doc.GetString("name"))
	assert.Equal(t, "abc", doc.ID())
}

func TestLoadRequiresAnID(t *testing.T) {
	ctx := context.Background()
	_, mock := mockRegistry(t)

	doc := &manila.Document{}
	err := doc.LoadFrom(ctx, mock, "people")
	assert.True(t, manila.IsErrMissingID(err))

	registry := manila.NewRegistry()
	require.NoError(t, registry.Hookup("person", mock, "people"))
	_, err = registry.Kind("person").Load(ctx, "")
	assert.True(t, manila.IsErrMissingID(err))
}

func TestInsertReturnsIDsWithoutPropagatingThem(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.AddedIDs = []string{"gen-1"}

	doc := &manila.Document{}
	require.NoError(t, doc.Set("name", "Ada"))

	ids, err := registry.Kind("person").Insert(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-1"}, ids)

	// The generated id stays on the server side, the document keeps none.
	assert.Empty(t, doc.ID())
}

func TestInsertSendsOneRecordPerDocument(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	people := registry.Kind("person")

	ada, err := people.New("a1", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	bob, err := people.New("b1", map[string]any{"name": "Bob"})
	require.NoError(t, err)

	ids, err := people.Insert(ctx, ada, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1"}, ids)
	require.Len(t, mock.LastRecords, 2)
	assert.Equal(t, "Ada", mock.LastRecords[0]["name"])
}

func TestFindInstantiatesDocuments(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.FoundDocuments = []map[string]any{
		{"_id": "a1", "type": "person", "name": "Ada"},
		{"_id": "b1", "type": "person", "name": "Bob"},
	}

	docs, err := registry.Kind("person").Find(ctx, map[string]any{"type": "person"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].ID())
	assert.Equal(t, "Bob", docs[1].GetString("name"))
	assert.Equal(t, "person", docs[0].Type())
	assert.Equal(t, map[string]any{"type": "person"}, mock.LastQuery)
}

func TestFindEmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)
	mock.FoundDocuments = nil

	docs, err := registry.Kind("person").Find(ctx, map[string]any{"name": "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFindForwardsHints(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)

	_, err := registry.Kind("person").Find(ctx, nil,
		manila.Skip(3), manila.Count(10), manila.SortBy("name"), manila.Reverse())
	require.NoError(t, err)
	assert.Equal(t, 3, mock.LastHints.Skip)
	assert.Equal(t, 10, mock.LastHints.Count)
	assert.Equal(t, "name", mock.LastHints.SortKey)
	assert.True(t, mock.LastHints.Descending)
}

func TestRemoveRequiresAnID(t *testing.T) {
	ctx := context.Background()
	_, mock := mockRegistry(t)

	doc := &manila.Document{}
	err := doc.RemoveFrom(ctx, mock, "people")
	assert.True(t, manila.IsErrMissingID(err))
}

func TestRemoveKeepsTheDocumentIntact(t *testing.T) {
	ctx := context.Background()
	registry, mock := mockRegistry(t)

	doc, err := registry.Kind("person").New("abc", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, doc.Remove(ctx))
	assert.Equal(t, "abc", mock.LastID)
	assert.Equal(t, "abc", doc.ID())
	assert.Equal(t, "Ada", doc.GetString("name"))
}

func TestCapabilitySwitchesDecideTheOutcome(t *testing.T) {
	ctx := context.Background()
	registry := manila.NewRegistry()
	mock := &manila.MockServer{}
	require.NoError(t, registry.Hookup("person", mock, "people"))

	doc, err := registry.Kind("person").New("abc", nil)
	require.NoError(t, err)

	assert.True(t, manila.IsErrNotSupported(doc.Store(ctx)))

	mock.CanStore = true
	assert.NoError(t, doc.Store(ctx))
}
