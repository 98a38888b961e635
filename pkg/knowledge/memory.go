package knowledge

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
)

// Chunk a stored knowledge chunk
type Chunk struct {
	ID          string
	AssistantID string
	Content     string
	Embedding   []float32
}

// MemoryStore brute-force cosine search held in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]Chunk
	seq    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]Chunk)}
}

// NewMemoryVectorStore factory for the provider registry
func NewMemoryVectorStore(_ map[string]interface{}) (VectorStore, error) {
	return NewMemoryStore(), nil
}

func (m *MemoryStore) Provider() string {
	return ProviderMemory
}

// Upsert adds a chunk, or replaces the one with the same ID, and returns its ID.
func (m *MemoryStore) Upsert(chunk Chunk) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if chunk.ID == "" {
		m.seq++
		chunk.ID = strconv.Itoa(m.seq)
	}
	list := m.chunks[chunk.AssistantID]
	for i := range list {
		if list[i].ID == chunk.ID {
			list[i] = chunk
			return chunk.ID
		}
	}
	m.chunks[chunk.AssistantID] = append(list, chunk)
	return chunk.ID
}

// Count number of chunks stored for an assistant
func (m *MemoryStore) Count(assistantID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks[assistantID])
}

func (m *MemoryStore) Search(ctx context.Context, assistantID string, options SearchOptions) ([]SearchResult, error) {
	options, err := normalizeOptions(options)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	list := m.chunks[assistantID]
	results := make([]SearchResult, 0, len(list))
	for _, c := range list {
		results = append(results, SearchResult{
			Content: c.Content,
			Score:   cosine(options.Vector, c.Embedding),
			Source:  c.ID,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return filterByThreshold(results, options), nil
}

// cosine similarity, 0 for mismatched or zero-length vectors
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func init() {
	RegisterVectorStoreProvider(ProviderMemory, NewMemoryVectorStore)
}
