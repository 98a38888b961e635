package bootstrap

import (
	"context"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/embedding"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/knowledge"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DemoAssistantID owns the seeded QA pairs and knowledge chunks
const DemoAssistantID = "demo-assistant"

type SeedService struct {
	db       *gorm.DB
	store    knowledge.VectorStore
	embedder embedding.Embedder
}

func (s *SeedService) SeedAll() error {
	if err := s.seedQAPairs(); err != nil {
		return err
	}

	if err := s.seedKnowledgeChunks(); err != nil {
		return err
	}

	return nil
}

func (s *SeedService) seedQAPairs() error {
	var count int64
	if err := s.db.Model(&models.QAPair{}).Where("assistant_id = ?", DemoAssistantID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []models.QAPair{
		{Question: "What are your opening hours?", Answer: "We are open Monday to Friday from 9am to 6pm, and Saturday from 10am to 2pm.", Priority: 1},
		{Question: "Where are you located?", Answer: "Our office is at 120 Market Street, second floor.", Priority: 2},
		{Question: "Do you offer free consultations?", Answer: "Yes, the first 30 minute consultation is free.", Priority: 3},
		{Question: "How do I cancel an appointment?", Answer: "You can cancel up to 24 hours before your appointment at no charge.", Priority: 4},
	}
	for _, p := range defaults {
		if _, err := models.CreateQAPair(s.db, DemoAssistantID, p.Question, p.Answer, p.Priority); err != nil {
			return err
		}
	}
	logger.Info("seeded demo qa pairs", zap.String("assistantId", DemoAssistantID), zap.Int("count", len(defaults)))
	return nil
}

// seedKnowledgeChunks only writes to the in-memory provider; remote stores
// are populated by their own ingestion pipelines.
func (s *SeedService) seedKnowledgeChunks() error {
	mem, ok := s.store.(*knowledge.MemoryStore)
	if !ok || mem.Count(DemoAssistantID) > 0 {
		return nil
	}
	embedder := s.embedder
	if embedder == nil {
		embedder = embedding.NewHashingEmbedder(0)
	}

	chunks := []string{
		"Parking is free in the lot behind the building. Street parking is metered until 6pm.",
		"We accept all major credit cards, bank transfers and most insurance plans.",
		"New clients should bring a photo ID and arrive ten minutes early to fill in paperwork.",
	}
	ctx := context.Background()
	for _, content := range chunks {
		vec, err := embedder.Embed(ctx, content)
		if err != nil {
			return err
		}
		mem.Upsert(knowledge.Chunk{AssistantID: DemoAssistantID, Content: content, Embedding: vec})
	}
	logger.Info("seeded demo knowledge chunks", zap.String("assistantId", DemoAssistantID), zap.Int("count", len(chunks)))
	return nil
}
