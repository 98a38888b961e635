package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/resolver"
	"gorm.io/gorm"
)

var (
	ErrQAPairNotFound = errors.New("qa pair not found")
	ErrQAPairInvalid  = errors.New("question and answer are required")
)

// QAPair 助手配置的问答对，priority 越小越先匹配
type QAPair struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AssistantID string    `json:"assistantId" gorm:"size:100;index:idx_qa_assistant_priority,priority:1;not null"`
	Question    string    `json:"question" gorm:"type:text;not null"`
	Answer      string    `json:"answer" gorm:"type:text;not null"`
	Priority    int       `json:"priority" gorm:"index:idx_qa_assistant_priority,priority:2"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (QAPair) TableName() string {
	return "qa_pairs"
}

func (p QAPair) ToResolver() resolver.QAPair {
	return resolver.QAPair{
		ID:          p.ID,
		AssistantID: p.AssistantID,
		Question:    p.Question,
		Answer:      p.Answer,
		Priority:    p.Priority,
	}
}

// CreateQAPair 创建问答对
func CreateQAPair(db *gorm.DB, assistantID, question, answer string, priority int) (*QAPair, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if assistantID == "" || question == "" || answer == "" {
		return nil, ErrQAPairInvalid
	}
	pair := &QAPair{
		AssistantID: assistantID,
		Question:    question,
		Answer:      answer,
		Priority:    priority,
	}
	if err := db.Create(pair).Error; err != nil {
		return nil, err
	}
	return pair, nil
}

// ListQAPairs 按优先级升序返回，同优先级按创建顺序
func ListQAPairs(db *gorm.DB, assistantID string) ([]QAPair, error) {
	var pairs []QAPair
	err := db.Where("assistant_id = ?", assistantID).
		Order("priority ASC").
		Order("id ASC").
		Find(&pairs).Error
	return pairs, err
}

// DeleteQAPair 删除问答对，只能删除本助手的
func DeleteQAPair(db *gorm.DB, assistantID string, id uint) error {
	result := db.Where("assistant_id = ?", assistantID).Delete(&QAPair{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQAPairNotFound
	}
	return nil
}

// QAPairStore exposes ListQAPairs to the resolver
type QAPairStore struct {
	db *gorm.DB
}

func NewQAPairStore(db *gorm.DB) *QAPairStore {
	return &QAPairStore{db: db}
}

func (s *QAPairStore) ListQAPairs(ctx context.Context, assistantID string) ([]resolver.QAPair, error) {
	pairs, err := ListQAPairs(s.db.WithContext(ctx), assistantID)
	if err != nil {
		return nil, err
	}
	out := make([]resolver.QAPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.ToResolver())
	}
	return out, nil
}
