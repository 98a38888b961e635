package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analytics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CallStatus 通话状态，只能前进：STARTED -> ACTIVE -> COMPLETED/FAILED
type CallStatus string

const (
	CallStatusStarted   CallStatus = "STARTED"
	CallStatusActive    CallStatus = "ACTIVE"
	CallStatusCompleted CallStatus = "COMPLETED"
	CallStatusFailed    CallStatus = "FAILED"
)

// IsFinal COMPLETED 或 FAILED
func (s CallStatus) IsFinal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// StartSource ranks where StartedAt came from. A higher rank replaces a lower
// one; on a tie the earlier time is kept.
type StartSource int

const (
	StartFromIngest      StartSource = iota // ingestion clock, no time on the event
	StartFromEventTime                      // timestamp of a non-start event
	StartFromCallStarted                    // timestamp of the call-started event
	StartFromPayload                        // explicit call.startedAt
)

// CallRecord 通话记录，每个外部通话 ID 一条
type CallRecord struct {
	ID              int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalCallID  string     `json:"externalCallId" gorm:"uniqueIndex;size:200;not null"`
	AssistantID     string     `json:"assistantId" gorm:"size:100;index"`
	CallerNumber    string     `json:"callerNumber" gorm:"size:64;index"`
	Status          CallStatus `json:"status" gorm:"size:16;index"`
	DurationSeconds int        `json:"durationSeconds"`
	// DurationExplicit is set once the provider reported a duration; until then
	// DurationSeconds is derived from EndedAt-StartedAt.
	DurationExplicit bool                 `json:"-"`
	EndedReason      string               `json:"endedReason,omitempty" gorm:"size:200"`
	Transcript       []analyzer.Utterance `json:"transcript" gorm:"serializer:json;type:text"`
	// Derived is written only when the call is finalized; AnalyzedAt is nil until then.
	Derived     analyzer.Signals `json:"derived" gorm:"embedded;embeddedPrefix:derived_"`
	AnalyzedAt  *time.Time       `json:"analyzedAt,omitempty"`
	TimeOfDay   int              `json:"timeOfDay"`
	DayOfWeek   int              `json:"dayOfWeek"`
	StartedAt   time.Time        `json:"startedAt" gorm:"index"`
	StartSource StartSource      `json:"-"`
	EndedAt     *time.Time       `json:"endedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt" gorm:"index"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// AnalyticsCall projects the record onto the aggregator's input.
func (r *CallRecord) AnalyticsCall() analytics.Call {
	return analytics.Call{
		CallerNumber:    r.CallerNumber,
		Completed:       r.Status == CallStatusCompleted,
		Failed:          r.Status == CallStatusFailed,
		DurationSeconds: r.DurationSeconds,
		StartedAt:       r.StartedAt,
		TimeOfDay:       r.TimeOfDay,
		DayOfWeek:       r.DayOfWeek,
		Analyzed:        r.AnalyzedAt != nil,
		Signals:         r.Derived,
	}
}

// MutateFunc edits rec in place. exists is false when rec is a fresh zero
// record carrying only the external id. Returning changed=false skips the write.
type MutateFunc func(rec *CallRecord, exists bool) (changed bool, err error)

const maxMutateAttempts = 3

var ErrMutateConflict = errors.New("call record: too many concurrent inserts")

// CallRecordStore gorm backed call record persistence
type CallRecordStore struct {
	db *gorm.DB
}

func NewCallRecordStore(db *gorm.DB) *CallRecordStore {
	return &CallRecordStore{db: db}
}

// MutateCall runs fn against the record in one transaction holding a row lock
// (where the dialect supports one). Two first deliveries racing to insert the
// same id are resolved by retrying the loser against the winner's row.
// The returned record is nil when the record does not exist and fn made no change.
func (s *CallRecordStore) MutateCall(ctx context.Context, externalID string, fn MutateFunc) (*CallRecord, error) {
	if externalID == "" {
		return nil, errors.New("call record: empty external id")
	}
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		var out *CallRecord
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var rec CallRecord
			exists := true
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("external_call_id = ?", externalID).
				Take(&rec).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				exists = false
				rec = CallRecord{ExternalCallID: externalID}
			case err != nil:
				return err
			}

			changed, err := fn(&rec, exists)
			if err != nil {
				return err
			}
			if !changed {
				if exists {
					out = &rec
				}
				return nil
			}
			if exists {
				err = tx.Save(&rec).Error
			} else {
				err = tx.Create(&rec).Error
			}
			if err != nil {
				return err
			}
			out = &rec
			return nil
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("mutate call %s: %w", externalID, err)
		}
		return out, nil
	}
	return nil, ErrMutateConflict
}

// GetCallRecord returns gorm.ErrRecordNotFound when absent.
func (s *CallRecordStore) GetCallRecord(ctx context.Context, externalID string) (*CallRecord, error) {
	var rec CallRecord
	if err := s.db.WithContext(ctx).Where("external_call_id = ?", externalID).Take(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByAssistants returns records of the given assistants started within [start, end].
func (s *CallRecordStore) ListByAssistants(ctx context.Context, assistantIDs []string, start, end time.Time) ([]CallRecord, error) {
	var records []CallRecord
	if len(assistantIDs) == 0 {
		return records, nil
	}
	err := s.db.WithContext(ctx).
		Where("assistant_id IN ?", assistantIDs).
		Where("started_at >= ? AND started_at <= ?", start, end).
		Order("started_at ASC").
		Find(&records).Error
	return records, err
}

// ListStaleCalls returns unfinished records not touched since before.
func (s *CallRecordStore) ListStaleCalls(ctx context.Context, before time.Time, limit int) ([]CallRecord, error) {
	var records []CallRecord
	q := s.db.WithContext(ctx).
		Where("status IN ?", []CallStatus{CallStatusStarted, CallStatusActive}).
		Where("updated_at < ?", before).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}
