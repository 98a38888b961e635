package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
)

// pineconeVectorStore Pinecone实现，查询直接发往 index host
type pineconeVectorStore struct {
	apiKey     string
	indexHost  string
	namespace  string
	httpClient *http.Client
}

// NewPineconeVectorStore 创建Pinecone实例
func NewPineconeVectorStore(config map[string]interface{}) (VectorStore, error) {
	apiKey := getStringFromConfig(config, ConfigKeyApiKey)
	if apiKey == "" {
		return nil, ErrApiKeyRequired
	}
	indexHost := getStringFromConfig(config, ConfigKeyIndexHost)
	if indexHost == "" {
		return nil, ErrHostRequired
	}
	if !strings.HasPrefix(indexHost, "http://") && !strings.HasPrefix(indexHost, "https://") {
		indexHost = "https://" + indexHost
	}

	timeout := getIntFromConfig(config, ConfigKeyTimeout)
	if timeout <= 0 {
		timeout = DefaultHTTPTimeoutMilli
	}

	return &pineconeVectorStore{
		apiKey:     apiKey,
		indexHost:  strings.TrimRight(indexHost, "/"),
		namespace:  getStringFromConfig(config, ConfigKeyNamespace),
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Millisecond},
	}, nil
}

func (p *pineconeVectorStore) Provider() string {
	return ProviderPinecone
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

func (p *pineconeVectorStore) Search(ctx context.Context, assistantID string, options SearchOptions) ([]SearchResult, error) {
	options, err := normalizeOptions(options)
	if err != nil {
		return nil, err
	}

	queryReq := map[string]interface{}{
		"vector":          options.Vector,
		"topK":            options.TopK,
		"includeMetadata": true,
		"filter": map[string]interface{}{
			FieldAssistantID: map[string]interface{}{"$eq": assistantID},
		},
	}
	if p.namespace != "" {
		queryReq["namespace"] = p.namespace
	}

	var queryResp pineconeQueryResponse
	err = requests.URL(p.indexHost).
		Path("/query").
		Client(p.httpClient).
		Header("Api-Key", p.apiKey).
		BodyJSON(&queryReq).
		ToJSON(&queryResp).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinecone query failed: %w", err)
	}

	results := make([]SearchResult, 0, len(queryResp.Matches))
	for _, match := range queryResp.Matches {
		content, _ := match.Metadata[FieldContent].(string)
		if content == "" {
			continue
		}
		results = append(results, SearchResult{
			Content:  content,
			Score:    match.Score,
			Metadata: match.Metadata,
			Source:   match.ID,
		})
	}
	return filterByThreshold(results, options), nil
}

func init() {
	RegisterVectorStoreProvider(ProviderPinecone, NewPineconeVectorStore)
}
