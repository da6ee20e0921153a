package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreditAccount is the per-user lock row that serializes checked spends.
type CreditAccount struct {
	UserID    string    `gorm:"size:255;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CreditAccount) TableName() string { return "credit_accounts" }

// CreditEntry mirrors the append-only credit_entries table.
type CreditEntry struct {
	EntryID        string    `gorm:"size:36;primaryKey"`
	UserID         string    `gorm:"size:255;not null;index:idx_credit_entries_user_created,priority:1;uniqueIndex:uniq_credit_entries_user_idem,priority:1"`
	Amount         int64     `gorm:"not null"`
	SourceAmount   float64   `gorm:"not null"`
	SourceType     string    `gorm:"size:32;not null"`
	SourceUnit     string    `gorm:"size:32;not null"`
	IdempotencyKey *string   `gorm:"size:255;uniqueIndex:uniq_credit_entries_user_idem,priority:2"`
	CreatedAt      time.Time `gorm:"not null;index:idx_credit_entries_user_created,priority:2"`
}

func (CreditEntry) TableName() string { return "credit_entries" }

func (entry *CreditEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}

// Topic mirrors the topics table. Questions hold a JSON array of {text, order}.
type Topic struct {
	TopicID   string         `gorm:"size:36;primaryKey"`
	UserID    string         `gorm:"size:255;not null;index:idx_topics_user_status,priority:1"`
	Title     string         `gorm:"not null"`
	Overview  string         `gorm:"not null"`
	Questions datatypes.JSON `gorm:"not null"`
	Status    string         `gorm:"size:16;not null;index:idx_topics_user_status,priority:2"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Topic) TableName() string { return "topics" }

func (topic *Topic) BeforeCreate(tx *gorm.DB) error {
	if topic.TopicID == "" {
		topic.TopicID = uuid.NewString()
	}
	return nil
}

// Interview mirrors the interviews table.
type Interview struct {
	InterviewID string    `gorm:"size:36;primaryKey"`
	UserID      string    `gorm:"size:255;not null;index:idx_interviews_user_created,priority:1"`
	TopicID     string    `gorm:"size:36;not null;index"`
	Title       string    `gorm:"not null"`
	Overview    string    `gorm:"not null"`
	Status      string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"not null;index:idx_interviews_user_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Interview) TableName() string { return "interviews" }

func (interview *Interview) BeforeCreate(tx *gorm.DB) error {
	if interview.InterviewID == "" {
		interview.InterviewID = uuid.NewString()
	}
	return nil
}

// Answer mirrors the answers table; one row per (interview, question number).
type Answer struct {
	AnswerID                 string    `gorm:"size:36;primaryKey"`
	InterviewID              string    `gorm:"size:36;not null;uniqueIndex:uniq_answers_interview_question,priority:1"`
	UserID                   string    `gorm:"size:255;not null;index"`
	QuestionNumber           int       `gorm:"not null;uniqueIndex:uniq_answers_interview_question,priority:2"`
	Question                 string    `gorm:"not null"`
	Response                 *string   `gorm:"column:answer"`
	RecordingDurationSeconds *int      `gorm:""`
	CreatedAt                time.Time `gorm:"not null"`
	UpdatedAt                time.Time `gorm:"not null"`
}

func (Answer) TableName() string { return "answers" }

func (answer *Answer) BeforeCreate(tx *gorm.DB) error {
	if answer.AnswerID == "" {
		answer.AnswerID = uuid.NewString()
	}
	return nil
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&CreditAccount{}, &CreditEntry{}, &Topic{}, &Interview{}, &Answer{}}
}
