package handlers

import (
	"fmt"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/config"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/embedding"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/knowledge"
)

// getMilvusConfig gets Milvus knowledge base config from config file
func getMilvusConfig(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		knowledge.ConfigKeyAddress:        cfg.MilvusAddress,
		knowledge.ConfigKeyUsername:       cfg.MilvusUsername,
		knowledge.ConfigKeyPassword:       cfg.MilvusPassword,
		knowledge.ConfigKeyCollectionName: cfg.MilvusCollection,
	}
}

// getQdrantConfig gets Qdrant knowledge base config from config file
func getQdrantConfig(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		knowledge.ConfigKeyBaseURL:        cfg.QdrantBaseURL,
		knowledge.ConfigKeyApiKey:         cfg.QdrantAPIKey,
		knowledge.ConfigKeyCollectionName: cfg.QdrantCollection,
		knowledge.ConfigKeyTimeout:        int(cfg.ResolverTimeout.Milliseconds()),
	}
}

// getPineconeConfig gets Pinecone knowledge base config from config file
func getPineconeConfig(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		knowledge.ConfigKeyApiKey:    cfg.PineconeAPIKey,
		knowledge.ConfigKeyIndexHost: cfg.PineconeIndexHost,
		knowledge.ConfigKeyNamespace: cfg.PineconeNamespace,
		knowledge.ConfigKeyTimeout:   int(cfg.ResolverTimeout.Milliseconds()),
	}
}

// KnowledgeStoreConfig returns the provider config for the configured knowledge base.
func KnowledgeStoreConfig(cfg *config.Config) map[string]interface{} {
	switch cfg.KnowledgeBaseProvider {
	case knowledge.ProviderMilvus:
		return getMilvusConfig(cfg)
	case knowledge.ProviderQdrant:
		return getQdrantConfig(cfg)
	case knowledge.ProviderPinecone:
		return getPineconeConfig(cfg)
	default:
		return nil
	}
}

// NewKnowledgeStore returns nil when the knowledge base is disabled.
func NewKnowledgeStore(cfg *config.Config) (knowledge.VectorStore, error) {
	if !cfg.KnowledgeBaseEnabled {
		return nil, nil
	}
	store, err := knowledge.GetVectorStoreByProvider(cfg.KnowledgeBaseProvider, KnowledgeStoreConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init knowledge store %s: %w", cfg.KnowledgeBaseProvider, err)
	}
	return store, nil
}

// NewEmbedder returns an LRU cached OpenAI compatible embedder, or the local
// hashing embedder when no API key is configured and the store is in memory.
func NewEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	if !cfg.KnowledgeBaseEnabled {
		return nil, nil
	}
	var base embedding.Embedder
	if cfg.EmbeddingAPIKey == "" {
		if cfg.KnowledgeBaseProvider != knowledge.ProviderMemory {
			return nil, fmt.Errorf("EMBEDDING_API_KEY is required for knowledge base provider %s", cfg.KnowledgeBaseProvider)
		}
		base = embedding.NewHashingEmbedder(0)
	} else {
		openaiEmbedder, err := embedding.NewOpenAIEmbedder(cfg.EmbeddingAPIKey, cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		base = openaiEmbedder
	}
	if cfg.EmbeddingCacheSize <= 0 {
		return base, nil
	}
	return embedding.NewCachedEmbedder(base, cfg.EmbeddingCacheSize)
}
