package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

func TestNormalizeDraft(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		draft     TopicDraft
		wantErr   error
		wantOrder []string
	}{
		{
			name:      "assigns orders when absent",
			draft:     TopicDraft{Title: " Work ", Questions: []Question{{Text: "first"}, {Text: "second"}}},
			wantOrder: []string{"first", "second"},
		},
		{
			name:      "sorts explicit orders",
			draft:     TopicDraft{Title: "Work", Questions: []Question{{Text: "b", Order: 2}, {Text: "a", Order: 1}}},
			wantOrder: []string{"a", "b"},
		},
		{
			name:    "duplicate orders",
			draft:   TopicDraft{Title: "Work", Questions: []Question{{Text: "a", Order: 1}, {Text: "b", Order: 1}}},
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "gap in orders",
			draft:   TopicDraft{Title: "Work", Questions: []Question{{Text: "a", Order: 1}, {Text: "b", Order: 3}}},
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "empty title",
			draft:   TopicDraft{Title: "  "},
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "empty question",
			draft:   TopicDraft{Title: "Work", Questions: []Question{{Text: " "}}},
			wantErr: ErrInvalidTopic,
		},
		{
			name:      "no questions",
			draft:     TopicDraft{Title: "Work"},
			wantOrder: []string{},
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			topic, err := NormalizeDraft(testCase.draft)
			if testCase.wantErr != nil {
				if !errors.Is(err, testCase.wantErr) {
					test.Fatalf("expected %v, got %v", testCase.wantErr, err)
				}
				return
			}
			if err != nil {
				test.Fatalf("normalize: %v", err)
			}
			if topic.Title != "Work" {
				test.Fatalf("expected trimmed title, got %q", topic.Title)
			}
			if len(topic.Questions) != len(testCase.wantOrder) {
				test.Fatalf("expected %d questions, got %d", len(testCase.wantOrder), len(topic.Questions))
			}
			for index, text := range testCase.wantOrder {
				if topic.Questions[index].Text != text || topic.Questions[index].Order != index+1 {
					test.Fatalf("question %d: %+v", index, topic.Questions[index])
				}
			}
		})
	}
}

func TestCreateTopicsStoresAvailableTopics(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	service := mustService(test, store)
	userID := mustUserID(test, "user-1")

	topics, err := service.CreateTopics(context.Background(), userID, []TopicDraft{
		{Title: "Family", Questions: []Question{{Text: "Who raised you?"}}},
		{Title: "Career"},
	})
	if err != nil {
		test.Fatalf("create topics: %v", err)
	}
	if len(topics) != 2 {
		test.Fatalf("expected 2 topics, got %d", len(topics))
	}
	for _, topic := range topics {
		if topic.Status != TopicAvailable || topic.UserID != userID || topic.ID == "" {
			test.Fatalf("unexpected topic: %+v", topic)
		}
	}
}

func TestCreateTopicsValidatesBeforeWriting(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	service := mustService(test, store)

	_, err := service.CreateTopics(context.Background(), mustUserID(test, "user-1"), []TopicDraft{
		{Title: "Valid"},
		{Title: ""},
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		test.Fatalf("expected validation error, got %v", err)
	}
	if len(store.topics) != 0 {
		test.Fatalf("expected no topics stored, got %d", len(store.topics))
	}
}

var errTopicWriteFailed = errors.New("topic write failed")

func TestCreateTopicsIsAllOrNothing(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	store.failTopicN = 2
	service := mustService(test, store)

	topics, err := service.CreateTopics(context.Background(), mustUserID(test, "user-1"), []TopicDraft{
		{Title: "Family"},
		{Title: "Career"},
		{Title: "Travel"},
	})
	if !errors.Is(err, errTopicWriteFailed) {
		test.Fatalf("expected topic write failure, got %v", err)
	}
	if topics != nil {
		test.Fatalf("expected no topics returned, got %+v", topics)
	}
	if len(store.topics) != 0 || store.rollbacks != 1 {
		test.Fatalf("expected rolled back batch, got %d topics and %d rollbacks", len(store.topics), store.rollbacks)
	}
}

func TestDismissTopic(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	logger := &recordingEventLogger{}
	service := mustService(test, store, WithEventLogger(logger))
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable)

	dismissed, err := service.DismissTopic(context.Background(), userID, topic.ID)
	if err != nil {
		test.Fatalf("dismiss: %v", err)
	}
	if dismissed.Status != TopicIrrelevant || store.topics[topic.ID].Status != TopicIrrelevant {
		test.Fatalf("expected irrelevant topic, got %s", dismissed.Status)
	}
	if _, err := service.DismissTopic(context.Background(), userID, topic.ID); !errors.Is(err, ErrTopicNotAvailable) {
		test.Fatalf("expected ErrTopicNotAvailable on repeat, got %v", err)
	}
	if len(logger.events) != 2 || logger.events[0].Status != eventStatusOK || logger.events[1].Status != eventStatusError {
		test.Fatalf("unexpected events: %+v", logger.events)
	}
}

func TestListTopicsFiltersByStatus(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	service := mustService(test, store)
	userID := mustUserID(test, "user-1")
	mustTopic(test, store, userID, TopicAvailable)
	mustTopic(test, store, userID, TopicUsed)
	mustTopic(test, store, mustUserID(test, "user-2"), TopicAvailable)

	available := TopicAvailable
	topics, err := service.ListTopics(context.Background(), userID, TopicFilter{Status: &available})
	if err != nil {
		test.Fatalf("list topics: %v", err)
	}
	if len(topics) != 1 || topics[0].Status != TopicAvailable {
		test.Fatalf("expected one available topic, got %+v", topics)
	}
	all, err := service.ListTopics(context.Background(), userID, TopicFilter{})
	if err != nil || len(all) != 2 {
		test.Fatalf("expected two topics for user, got %d (%v)", len(all), err)
	}
	if _, err := service.ListTopics(context.Background(), userID, TopicFilter{Limit: maxListLimit + 1}); !errors.Is(err, ErrInvalidListLimit) {
		test.Fatalf("expected ErrInvalidListLimit, got %v", err)
	}
}

func TestSaveAnswerAndCompleteInterview(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	service := mustService(test, store)
	workflow := mustWorkflow(test, store)
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable,
		Question{Text: "Q1", Order: 1},
		Question{Text: "Q2", Order: 2},
	)
	selection, err := workflow.Select(context.Background(), userID, topic.ID)
	if err != nil {
		test.Fatalf("select: %v", err)
	}
	interviewID := selection.Interview.ID
	duration := 42

	answer, err := service.SaveAnswer(context.Background(), userID, interviewID, 2, AnswerUpdate{Response: " my answer ", RecordingDurationSeconds: &duration})
	if err != nil {
		test.Fatalf("save answer: %v", err)
	}
	if answer.Response == nil || *answer.Response != "my answer" || answer.RecordingDurationSeconds == nil || *answer.RecordingDurationSeconds != 42 {
		test.Fatalf("unexpected answer: %+v", answer)
	}
	if _, err := service.SaveAnswer(context.Background(), userID, interviewID, 9, AnswerUpdate{Response: "x"}); !errors.Is(err, ErrAnswerNotFound) {
		test.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}

	completed, err := service.CompleteInterview(context.Background(), userID, interviewID)
	if err != nil {
		test.Fatalf("complete: %v", err)
	}
	if completed.Status != InterviewCompleted {
		test.Fatalf("expected completed, got %s", completed.Status)
	}
	if _, err := service.SaveAnswer(context.Background(), userID, interviewID, 1, AnswerUpdate{Response: "late"}); !errors.Is(err, ErrInterviewNotEditable) {
		test.Fatalf("expected ErrInterviewNotEditable, got %v", err)
	}
	if _, err := service.CompleteInterview(context.Background(), userID, interviewID); !errors.Is(err, ErrInvalidTransition) {
		test.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	detail, err := service.GetInterview(context.Background(), userID, interviewID)
	if err != nil {
		test.Fatalf("get interview: %v", err)
	}
	if len(detail.Answers) != 2 || detail.Answers[0].QuestionNumber != 1 || detail.Answers[1].QuestionNumber != 2 {
		test.Fatalf("expected ordered answers, got %+v", detail.Answers)
	}
	if _, err := service.GetInterview(context.Background(), mustUserID(test, "user-2"), interviewID); !errors.Is(err, ErrInterviewNotFound) {
		test.Fatalf("expected ErrInterviewNotFound for other user, got %v", err)
	}
}

func TestSaveAnswerValidatesInput(test *testing.T) {
	test.Parallel()
	service := mustService(test, newMemoryStore())
	userID := mustUserID(test, "user-1")
	negative := -1
	if _, err := service.SaveAnswer(context.Background(), userID, "interview-1", 0, AnswerUpdate{}); !errors.Is(err, ErrInvalidAnswer) {
		test.Fatalf("expected ErrInvalidAnswer for question 0, got %v", err)
	}
	if _, err := service.SaveAnswer(context.Background(), userID, "interview-1", 1, AnswerUpdate{RecordingDurationSeconds: &negative}); !errors.Is(err, ErrInvalidAnswer) {
		test.Fatalf("expected ErrInvalidAnswer for negative duration, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewService(ServiceDependencies{}); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}
