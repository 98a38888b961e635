package knowledge

import (
	"context"
)

const (
	// ProviderMemory in-process store, used for development and tests
	ProviderMemory = "memory"
	// ProviderMilvus Milvus/Zilliz Vector Database
	ProviderMilvus = "milvus"
	// ProviderPinecone Pinecone Vector Database
	ProviderPinecone = "pinecone"
	// ProviderQdrant Qdrant Vector Database
	ProviderQdrant = "qdrant"
)

var DefaultProvider = ProviderMemory

// SearchResult one knowledge chunk returned by a similarity search
type SearchResult struct {
	// Content chunk text
	Content string `json:"content"`
	// Score similarity (0-1), higher is closer
	Score float64 `json:"score"`
	// Metadata payload stored next to the chunk (optional)
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// Source chunk or document id
	Source string `json:"source,omitempty"`
}

// SearchOptions search options
type SearchOptions struct {
	// Vector query embedding, required
	Vector []float32 `json:"-"`
	// TopK returns top K most relevant results
	TopK int `json:"top_k"`
	// Threshold results scoring below it are dropped
	Threshold float64 `json:"threshold,omitempty"`
}

// VectorStore similarity search over an assistant's knowledge chunks.
// Results are ordered by descending score.
type VectorStore interface {
	Provider() string
	Search(ctx context.Context, assistantID string, options SearchOptions) ([]SearchResult, error)
}

// Manager creates and caches VectorStore instances by provider and config
type Manager interface {
	// GetVectorStore same provider + same config reuses the cached instance
	GetVectorStore(provider string, config map[string]interface{}) (VectorStore, error)
	RegisterProvider(name string, factory Factory)
	ListProviders() []string
	ClearCache()
}

// Factory builds a VectorStore from a provider config map
type Factory func(config map[string]interface{}) (VectorStore, error)

// normalizeOptions applies defaults shared by every provider.
func normalizeOptions(options SearchOptions) (SearchOptions, error) {
	if len(options.Vector) == 0 {
		return options, ErrVectorRequired
	}
	if options.TopK <= 0 {
		options.TopK = DefaultTopK
	}
	return options, nil
}

// filterByThreshold drops results below the threshold and caps at topK.
func filterByThreshold(results []SearchResult, options SearchOptions) []SearchResult {
	out := results[:0]
	for _, r := range results {
		if options.Threshold > 0 && r.Score < options.Threshold {
			continue
		}
		out = append(out, r)
		if len(out) == options.TopK {
			break
		}
	}
	return out
}
