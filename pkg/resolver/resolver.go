// Package resolver answers a caller's question from an assistant's Q&A pairs,
// falling back to semantic search over its knowledge chunks, and escalates to a
// human when neither source has an answer.
package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/embedding"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/knowledge"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultThreshold = 0.7
	DefaultTopK      = 3
	DefaultTimeout   = 5 * time.Second

	KnowledgePrefix = "Based on our knowledge base: "
	EscalateMessage = "I don't have that information right now. Would you like me to transfer you to a team member who can help?"
	chunkSeparator  = "\n\n"
)

type Outcome string

const (
	OutcomeAnswer   Outcome = "answer"
	OutcomeEscalate Outcome = "escalate"
)

type Source string

const (
	SourceQAPair    Source = "qa_pair"
	SourceKnowledge Source = "knowledge_base"
	SourceNone      Source = "none"
)

// QAPair an explicit question/answer override. Lower Priority is checked first.
type QAPair struct {
	ID          uint   `json:"id"`
	AssistantID string `json:"assistantId"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Priority    int    `json:"priority"`
}

// QAPairSource reads an assistant's pairs
type QAPairSource interface {
	ListQAPairs(ctx context.Context, assistantID string) ([]QAPair, error)
}

// Resolution is either an answer with its source or an escalation marker.
type Resolution struct {
	Outcome   Outcome   `json:"outcome"`
	Answer    string    `json:"answer"`
	Source    Source    `json:"source"`
	MatchRule MatchRule `json:"matchRule,omitempty"`
	QAPairID  uint      `json:"qaPairId,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
}

func (r Resolution) Escalated() bool {
	return r.Outcome == OutcomeEscalate
}

type Config struct {
	Threshold float64
	TopK      int
	// Timeout bounds each embedding and search call separately
	Timeout time.Duration
}

// Resolver embedder and store may be nil, which disables the semantic layer.
type Resolver struct {
	qa       QAPairSource
	embedder embedding.Embedder
	store    knowledge.VectorStore
	cfg      Config
	metrics  *metrics.Metrics
}

func New(qa QAPairSource, embedder embedding.Embedder, store knowledge.VectorStore, cfg Config, m *metrics.Metrics) *Resolver {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Resolver{qa: qa, embedder: embedder, store: store, cfg: cfg, metrics: m}
}

// Resolve never returns an error. Backend failures are logged and degrade to
// the next layer, ending in an escalation.
func (r *Resolver) Resolve(ctx context.Context, assistantID, query string) Resolution {
	start := time.Now()
	res := r.resolve(ctx, assistantID, query)
	r.metrics.RecordResolution(string(res.Source), time.Since(start))
	return res
}

func (r *Resolver) resolve(ctx context.Context, assistantID, query string) Resolution {
	normalized := Normalize(query)

	if r.qa != nil {
		pairs, err := r.qa.ListQAPairs(ctx, assistantID)
		if err != nil {
			logger.Warn("resolver: load qa pairs failed",
				zap.String("assistantId", assistantID), zap.Error(err))
		} else if res, ok := MatchQAPairs(pairs, normalized); ok {
			return res
		}
	}

	if res, ok := r.searchKnowledge(ctx, assistantID, query); ok {
		return res
	}

	return Escalation()
}

// MatchQAPairs walks pairs in ascending priority and returns the first match.
// The query must already be normalized.
func MatchQAPairs(pairs []QAPair, normalizedQuery string) (Resolution, bool) {
	sorted := make([]QAPair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	for _, p := range sorted {
		if rule, ok := matchPair(normalizedQuery, Normalize(p.Question)); ok {
			return Resolution{
				Outcome:   OutcomeAnswer,
				Answer:    p.Answer,
				Source:    SourceQAPair,
				MatchRule: rule,
				QAPairID:  p.ID,
			}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) searchKnowledge(ctx context.Context, assistantID, query string) (Resolution, bool) {
	if r.embedder == nil || r.store == nil || strings.TrimSpace(query) == "" {
		return Resolution{}, false
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	vector, err := r.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		r.externalFailure("embedding", assistantID, err)
		return Resolution{}, false
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	results, err := r.store.Search(searchCtx, assistantID, knowledge.SearchOptions{
		Vector:    vector,
		TopK:      r.cfg.TopK,
		Threshold: r.cfg.Threshold,
	})
	cancel()
	if err != nil {
		r.externalFailure("vector_search", assistantID, err)
		return Resolution{}, false
	}

	contents := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score < r.cfg.Threshold {
			continue
		}
		if c := strings.TrimSpace(res.Content); c != "" {
			contents = append(contents, c)
		}
		if len(contents) == r.cfg.TopK {
			break
		}
	}
	if len(contents) == 0 {
		return Resolution{}, false
	}

	return Resolution{
		Outcome: OutcomeAnswer,
		Answer:  KnowledgePrefix + strings.Join(contents, chunkSeparator),
		Source:  SourceKnowledge,
		Chunks:  len(contents),
	}, true
}

func (r *Resolver) externalFailure(dependency, assistantID string, err error) {
	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	r.metrics.RecordExternalFailure(dependency, reason)
	logger.Warn("resolver: external call failed, degrading",
		zap.String("dependency", dependency),
		zap.String("reason", reason),
		zap.String("assistantId", assistantID),
		zap.Error(err))
}

// Escalation the caller-facing hand-off to a human
func Escalation() Resolution {
	return Resolution{
		Outcome: OutcomeEscalate,
		Answer:  EscalateMessage,
		Source:  SourceNone,
	}
}
