package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// milvusVectorStore Milvus/Zilliz向量数据库实现
// collection 需要 id、assistant_id、content 和 embedding 字段，索引使用 COSINE
type milvusVectorStore struct {
	client         client.Client
	collectionName string
}

// NewMilvusVectorStore 创建Milvus实例
// 配置选项：
//   - address: Milvus 服务器地址（默认: localhost:19530）
//   - username / password: 可选
//   - collection_name: 集合名称（默认: knowledge_chunks）
func NewMilvusVectorStore(config map[string]interface{}) (VectorStore, error) {
	clientConfig := client.Config{
		Address:  getStringOrDefault(config, ConfigKeyAddress, DefaultMilvusAddress),
		Username: getStringFromConfig(config, ConfigKeyUsername),
		Password: getStringFromConfig(config, ConfigKeyPassword),
	}

	milvusClient, err := client.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		client:         milvusClient,
		collectionName: getStringOrDefault(config, ConfigKeyCollectionName, DefaultCollectionName),
	}, nil
}

func (m *milvusVectorStore) Provider() string {
	return ProviderMilvus
}

func (m *milvusVectorStore) Search(ctx context.Context, assistantID string, options SearchOptions) ([]SearchResult, error) {
	options, err := normalizeOptions(options)
	if err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, err
	}

	searchResults, err := m.client.Search(
		ctx,
		m.collectionName,
		nil,
		assistantExpr(assistantID),
		[]string{FieldID, FieldContent},
		[]entity.Vector{entity.FloatVector(options.Vector)},
		FieldEmbedding,
		entity.COSINE,
		options.TopK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	var results []SearchResult
	for _, sr := range searchResults {
		contentCol := sr.Fields.GetColumn(FieldContent)
		for i := 0; i < sr.ResultCount; i++ {
			content := ""
			if contentCol != nil {
				content, _ = contentCol.GetAsString(i)
			}
			if content == "" {
				continue
			}

			// COSINE metric returns similarity directly
			score := 0.0
			if i < len(sr.Scores) {
				score = float64(sr.Scores[i])
			}

			idStr := ""
			if sr.IDs != nil {
				if idVal, err := sr.IDs.Get(i); err == nil {
					idStr = fmt.Sprintf("%v", idVal)
				}
			}

			results = append(results, SearchResult{
				Content: content,
				Score:   score,
				Source:  idStr,
			})
		}
	}
	return filterByThreshold(results, options), nil
}

// assistantExpr boolean filter restricting the search to one assistant
func assistantExpr(assistantID string) string {
	return FieldAssistantID + " == " + strconv.Quote(assistantID)
}

func init() {
	RegisterVectorStoreProvider(ProviderMilvus, NewMilvusVectorStore)
}
