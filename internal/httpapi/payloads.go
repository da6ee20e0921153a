package httpapi

import (
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
)

type entryPayload struct {
	EntryID      string    `json:"entry_id"`
	Amount       int64     `json:"amount"`
	SourceAmount float64   `json:"source_amount"`
	SourceType   string    `json:"source_type"`
	SourceUnit   string    `json:"source_unit"`
	CreatedAt    time.Time `json:"created_at"`
}

type creditsResponse struct {
	Balance int64          `json:"balance"`
	Entries []entryPayload `json:"entries"`
}

type welcomeResponse struct {
	Granted bool  `json:"granted"`
	Balance int64 `json:"balance"`
}

type usageRequest struct {
	Operation  string `json:"operation" binding:"required"`
	TokensUsed int64  `json:"tokens_used"`
}

type usageResponse struct {
	Entry   entryPayload `json:"entry"`
	Balance int64        `json:"balance"`
}

type topicPayload struct {
	TopicID   string               `json:"topic_id"`
	Title     string               `json:"title"`
	Overview  string               `json:"overview"`
	Questions []interview.Question `json:"questions"`
	Status    string               `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

type createTopicsRequest struct {
	Topics []topicDraftPayload `json:"topics" binding:"required"`
}

type topicDraftPayload struct {
	Title     string               `json:"title"`
	Overview  string               `json:"overview"`
	Questions []interview.Question `json:"questions"`
}

type interviewPayload struct {
	InterviewID string    `json:"interview_id"`
	TopicID     string    `json:"topic_id"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type answerPayload struct {
	AnswerID                 string  `json:"answer_id"`
	QuestionNumber           int     `json:"question_number"`
	Question                 string  `json:"question"`
	Answer                   *string `json:"answer"`
	RecordingDurationSeconds *int    `json:"recording_duration_seconds"`
}

type selectionPayload struct {
	Interview interviewPayload `json:"interview"`
	Answers   []answerPayload  `json:"answers"`
}

type saveAnswerRequest struct {
	Answer                   string `json:"answer"`
	RecordingDurationSeconds *int   `json:"recording_duration_seconds"`
}

func newEntryPayload(entry ledger.Entry) entryPayload {
	return entryPayload{
		EntryID:      entry.ID,
		Amount:       entry.Amount.Int64(),
		SourceAmount: entry.SourceAmount,
		SourceType:   string(entry.SourceType),
		SourceUnit:   entry.SourceUnit,
		CreatedAt:    entry.CreatedAt,
	}
}

func newTopicPayload(topic interview.Topic) topicPayload {
	questions := topic.Questions
	if questions == nil {
		questions = []interview.Question{}
	}
	return topicPayload{
		TopicID:   topic.ID,
		Title:     topic.Title,
		Overview:  topic.Overview,
		Questions: questions,
		Status:    string(topic.Status),
		CreatedAt: topic.CreatedAt,
	}
}

func newInterviewPayload(record interview.Interview) interviewPayload {
	return interviewPayload{
		InterviewID: record.ID,
		TopicID:     record.TopicID,
		Title:       record.Title,
		Overview:    record.Overview,
		Status:      string(record.Status),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func newAnswerPayload(answer interview.Answer) answerPayload {
	return answerPayload{
		AnswerID:                 answer.ID,
		QuestionNumber:           answer.QuestionNumber,
		Question:                 answer.Question,
		Answer:                   answer.Response,
		RecordingDurationSeconds: answer.RecordingDurationSeconds,
	}
}

func newSelectionPayload(selection interview.Selection) selectionPayload {
	answers := make([]answerPayload, 0, len(selection.Answers))
	for _, answer := range selection.Answers {
		answers = append(answers, newAnswerPayload(answer))
	}
	return selectionPayload{Interview: newInterviewPayload(selection.Interview), Answers: answers}
}
