package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Upsert(Chunk{AssistantID: "a1", Content: "We open at 9am", Embedding: []float32{1, 0, 0}})
	store.Upsert(Chunk{AssistantID: "a1", Content: "Parking is free", Embedding: []float32{0.8, 0.6, 0}})
	store.Upsert(Chunk{AssistantID: "a1", Content: "Unrelated", Embedding: []float32{0, 0, 1}})
	store.Upsert(Chunk{AssistantID: "a2", Content: "Other tenant", Embedding: []float32{1, 0, 0}})

	results, err := store.Search(ctx, "a1", SearchOptions{Vector: []float32{1, 0, 0}, Threshold: 0.7, TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "We open at 9am", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "Parking is free", results[1].Content)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)

	results, err = store.Search(ctx, "a1", SearchOptions{Vector: []float32{1, 0, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = store.Search(ctx, "missing", SearchOptions{Vector: []float32{1, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = store.Search(ctx, "a1", SearchOptions{})
	assert.ErrorIs(t, err, ErrVectorRequired)
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	store := NewMemoryStore()
	id := store.Upsert(Chunk{AssistantID: "a1", Content: "v1", Embedding: []float32{1}})
	store.Upsert(Chunk{ID: id, AssistantID: "a1", Content: "v2", Embedding: []float32{1}})
	assert.Equal(t, 1, store.Count("a1"))

	results, err := store.Search(context.Background(), "a1", SearchOptions{Vector: []float32{1}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "v2", results[0].Content)
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float32{1, 2}, []float32{1}))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestQdrantVectorStore_Search(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chunks/points/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"id":1,"score":0.92,"payload":{"content":"Hours are 9 to 5","assistant_id":"a1"}},
			{"id":2,"score":0.71,"payload":{"content":"","assistant_id":"a1"}},
			{"id":3,"score":0.65,"payload":{"content":"too far","assistant_id":"a1"}}
		]}`))
	}))
	defer srv.Close()

	store, err := NewQdrantVectorStore(map[string]interface{}{
		ConfigKeyBaseURL:        srv.URL,
		ConfigKeyApiKey:         "secret",
		ConfigKeyCollectionName: "chunks",
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderQdrant, store.Provider())

	results, err := store.Search(context.Background(), "a1", SearchOptions{Vector: []float32{0.1, 0.2}, Threshold: 0.7, TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hours are 9 to 5", results[0].Content)
	assert.Equal(t, "1", results[0].Source)

	assert.Equal(t, 0.7, gotBody["score_threshold"])
	assert.Equal(t, float64(3), gotBody["limit"])
	filter := gotBody["filter"].(map[string]interface{})
	must := filter["must"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, FieldAssistantID, must["key"])
}

func TestQdrantVectorStore_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store, err := NewQdrantVectorStore(map[string]interface{}{ConfigKeyBaseURL: srv.URL})
	require.NoError(t, err)
	_, err = store.Search(context.Background(), "a1", SearchOptions{Vector: []float32{1}})
	assert.Error(t, err)
}

func TestPineconeVectorStore_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "pk", r.Header.Get("Api-Key"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tenant", body["namespace"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches":[
			{"id":"c1","score":0.88,"metadata":{"content":"Refunds take 5 days"}},
			{"id":"c2","score":0.50,"metadata":{"content":"low"}}
		]}`))
	}))
	defer srv.Close()

	store, err := NewPineconeVectorStore(map[string]interface{}{
		ConfigKeyApiKey:    "pk",
		ConfigKeyIndexHost: srv.URL,
		ConfigKeyNamespace: "tenant",
	})
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "a1", SearchOptions{Vector: []float32{1, 2}, Threshold: 0.7})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Source)
}

func TestPineconeVectorStore_ConfigErrors(t *testing.T) {
	_, err := NewPineconeVectorStore(map[string]interface{}{})
	assert.ErrorIs(t, err, ErrApiKeyRequired)

	_, err = NewPineconeVectorStore(map[string]interface{}{ConfigKeyApiKey: "pk"})
	assert.ErrorIs(t, err, ErrHostRequired)
}

func TestAssistantExpr(t *testing.T) {
	assert.Equal(t, `assistant_id == "a1"`, assistantExpr("a1"))
	assert.Equal(t, `assistant_id == "a\"1"`, assistantExpr(`a"1`))
}

func TestManager_CachesInstances(t *testing.T) {
	m := newManager()
	calls := 0
	m.RegisterProvider("fake", func(config map[string]interface{}) (VectorStore, error) {
		calls++
		return NewMemoryStore(), nil
	})

	a, err := m.GetVectorStore("fake", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	b, err := m.GetVectorStore("fake", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)

	_, err = m.GetVectorStore("fake", map[string]interface{}{"k": "other"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	m.ClearCache()
	_, err = m.GetVectorStore("fake", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	_, err = m.GetVectorStore("nope", nil)
	assert.Error(t, err)
}

func TestDefaultProvidersRegistered(t *testing.T) {
	providers := GetManager().ListProviders()
	assert.Contains(t, providers, ProviderMemory)
	assert.Contains(t, providers, ProviderQdrant)
	assert.Contains(t, providers, ProviderPinecone)
	assert.Contains(t, providers, ProviderMilvus)
}
