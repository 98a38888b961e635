package knowledge

import "errors"

// Config key constants
const (
	ConfigKeyBaseURL        = "base_url"
	ConfigKeyApiKey         = "api_key"
	ConfigKeyCollectionName = "collection_name"
	ConfigKeyIndexHost      = "index_host"
	ConfigKeyNamespace      = "namespace"
	ConfigKeyAddress        = "address"
	ConfigKeyUsername       = "username"
	ConfigKeyPassword       = "password"
	ConfigKeyTimeout        = "timeout_ms"
)

// Default value constants
const (
	DefaultTopK             = 3
	DefaultQdrantBaseURL    = "http://localhost:6333"
	DefaultMilvusAddress    = "localhost:19530"
	DefaultCollectionName   = "knowledge_chunks"
	DefaultHTTPTimeoutMilli = 5000
)

// Payload field names shared by the remote providers
const (
	FieldAssistantID = "assistant_id"
	FieldContent     = "content"
	FieldEmbedding   = "embedding"
	FieldID          = "id"
)

var (
	ErrVectorRequired = errors.New("query vector is required")
	ErrApiKeyRequired = errors.New("api_key is required")
	ErrHostRequired   = errors.New("index_host is required")
)

const ErrUnsupportedProvider = "unsupported knowledge base provider: %s"
