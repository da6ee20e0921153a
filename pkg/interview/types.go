package interview

import (
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// Question is one prompt of a topic, ordered 1..n.
type Question struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Topic is an AI-suggested interview subject owned by one user.
type Topic struct {
	ID        string
	UserID    identity.UserID
	Title     string
	Overview  string
	Questions []Question
	Status    TopicStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interview is a session started from a topic.
type Interview struct {
	ID        string
	UserID    identity.UserID
	TopicID   string
	Title     string
	Overview  string
	Status    InterviewStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Answer is the response slot for one question of an interview.
type Answer struct {
	ID                       string
	InterviewID              string
	UserID                   identity.UserID
	QuestionNumber           int
	Question                 string
	Response                 *string
	RecordingDurationSeconds *int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Selection is the result of starting an interview from a topic.
type Selection struct {
	Interview Interview
	Answers   []Answer
}

// TopicDraft is a generated topic that has not been stored yet.
type TopicDraft struct {
	Title     string
	Overview  string
	Questions []Question
}

// TopicFilter narrows ListTopics. A nil Status lists every status.
type TopicFilter struct {
	Status *TopicStatus
	Limit  int
}

// AnswerUpdate is the user's response to one question.
type AnswerUpdate struct {
	Response                 string
	RecordingDurationSeconds *int
}
