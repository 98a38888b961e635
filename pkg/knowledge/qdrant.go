package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// qdrantVectorStore Qdrant向量数据库实现，所有助手共用一个 collection，按 assistant_id 过滤
type qdrantVectorStore struct {
	client         *resty.Client
	collectionName string
}

// NewQdrantVectorStore 创建Qdrant实例
func NewQdrantVectorStore(config map[string]interface{}) (VectorStore, error) {
	baseURL := getStringOrDefault(config, ConfigKeyBaseURL, DefaultQdrantBaseURL)
	collectionName := getStringOrDefault(config, ConfigKeyCollectionName, DefaultCollectionName)

	timeout := getIntFromConfig(config, ConfigKeyTimeout)
	if timeout <= 0 {
		timeout = DefaultHTTPTimeoutMilli
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(timeout) * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if apiKey := getStringFromConfig(config, ConfigKeyApiKey); apiKey != "" {
		client.SetHeader("api-key", apiKey)
	}

	return &qdrantVectorStore{
		client:         client,
		collectionName: collectionName,
	}, nil
}

func (q *qdrantVectorStore) Provider() string {
	return ProviderQdrant
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      interface{}            `json:"id"`
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

func (q *qdrantVectorStore) Search(ctx context.Context, assistantID string, options SearchOptions) ([]SearchResult, error) {
	options, err := normalizeOptions(options)
	if err != nil {
		return nil, err
	}

	searchReq := map[string]interface{}{
		"vector":       options.Vector,
		"limit":        options.TopK,
		"with_payload": true,
		"with_vector":  false,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": FieldAssistantID, "match": map[string]interface{}{"value": assistantID}},
			},
		},
	}
	if options.Threshold > 0 {
		searchReq["score_threshold"] = options.Threshold
	}

	var searchResp qdrantSearchResponse
	resp, err := q.client.R().
		SetContext(ctx).
		SetBody(searchReq).
		SetResult(&searchResp).
		Post(fmt.Sprintf("/collections/%s/points/search", q.collectionName))
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("qdrant search failed with status: %d", resp.StatusCode())
	}

	results := make([]SearchResult, 0, len(searchResp.Result))
	for _, hit := range searchResp.Result {
		content, _ := hit.Payload[FieldContent].(string)
		if content == "" {
			continue
		}
		results = append(results, SearchResult{
			Content:  content,
			Score:    hit.Score,
			Metadata: hit.Payload,
			Source:   fmt.Sprintf("%v", hit.ID),
		})
	}
	return filterByThreshold(results, options), nil
}

func init() {
	RegisterVectorStoreProvider(ProviderQdrant, NewQdrantVectorStore)
}
