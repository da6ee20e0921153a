package interview

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

var errAnswerWriteFailed = errors.New("answer write failed")

func TestSelectCreatesInterviewWithOrderedAnswers(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	logger := &recordingEventLogger{}
	workflow := mustWorkflow(test, store, WithEventLogger(logger))
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable,
		Question{Text: "Q3", Order: 3},
		Question{Text: "Q1", Order: 1},
		Question{Text: "Q2", Order: 2},
	)

	selection, err := workflow.Select(context.Background(), userID, topic.ID)
	if err != nil {
		test.Fatalf("select: %v", err)
	}
	if selection.Interview.Status != InterviewDraft || selection.Interview.TopicID != topic.ID {
		test.Fatalf("unexpected interview: %+v", selection.Interview)
	}
	if selection.Interview.Title != topic.Title || selection.Interview.Overview != topic.Overview {
		test.Fatalf("interview must copy topic title and overview: %+v", selection.Interview)
	}
	if len(selection.Answers) != 3 {
		test.Fatalf("expected 3 answers, got %d", len(selection.Answers))
	}
	for index, answer := range selection.Answers {
		if answer.QuestionNumber != index+1 || answer.Question != "Q"+string(rune('1'+index)) {
			test.Fatalf("answer %d out of order: %+v", index, answer)
		}
		if answer.Response != nil || answer.RecordingDurationSeconds != nil {
			test.Fatalf("placeholder answer must be empty: %+v", answer)
		}
		if answer.InterviewID != selection.Interview.ID || answer.UserID != userID {
			test.Fatalf("answer not linked to interview: %+v", answer)
		}
	}
	if store.topics[topic.ID].Status != TopicUsed {
		test.Fatalf("expected topic used, got %s", store.topics[topic.ID].Status)
	}
	if store.commits != 1 || store.rollbacks != 0 {
		test.Fatalf("expected one commit, got commits=%d rollbacks=%d", store.commits, store.rollbacks)
	}
	if len(logger.events) != 1 || logger.events[0].State != StateCommitted || logger.events[0].InterviewID != selection.Interview.ID {
		test.Fatalf("expected committed event, got %+v", logger.events)
	}
}

func TestSelectZeroQuestionTopic(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	workflow := mustWorkflow(test, store)
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable)

	selection, err := workflow.Select(context.Background(), userID, topic.ID)
	if err != nil {
		test.Fatalf("select: %v", err)
	}
	if len(selection.Answers) != 0 {
		test.Fatalf("expected no answers, got %d", len(selection.Answers))
	}
	if len(store.interviews) != 1 {
		test.Fatalf("expected one interview, got %d", len(store.interviews))
	}
}

func TestSelectRejectsUnavailableTopicWithoutWrites(test *testing.T) {
	test.Parallel()
	for _, status := range []TopicStatus{TopicUsed, TopicIrrelevant} {
		status := status
		test.Run(string(status), func(test *testing.T) {
			test.Parallel()
			store := newMemoryStore()
			logger := &recordingEventLogger{}
			workflow := mustWorkflow(test, store, WithEventLogger(logger))
			userID := mustUserID(test, "user-1")
			topic := mustTopic(test, store, userID, status, Question{Text: "Q1", Order: 1})

			_, err := workflow.Select(context.Background(), userID, topic.ID)
			if !errors.Is(err, ErrTopicNotAvailable) || apperr.KindOf(err) != apperr.KindBadRequest {
				test.Fatalf("expected bad request, got %v", err)
			}
			if len(store.interviews) != 0 || len(store.answers) != 0 {
				test.Fatalf("expected no writes, got %d interviews and %d answers", len(store.interviews), len(store.answers))
			}
			if store.commits+store.rollbacks != 0 {
				test.Fatalf("expected no transaction to start")
			}
			if store.topics[topic.ID].Status != status {
				test.Fatalf("topic status changed to %s", store.topics[topic.ID].Status)
			}
			if len(logger.events) != 1 || logger.events[0].State != StateAborted {
				test.Fatalf("expected aborted event, got %+v", logger.events)
			}
		})
	}
}

func TestSelectUnknownOrForeignTopicIsNotFound(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	workflow := mustWorkflow(test, store)
	owner := mustUserID(test, "owner")
	stranger := mustUserID(test, "stranger")
	topic := mustTopic(test, store, owner, TopicAvailable)

	if _, err := workflow.Select(context.Background(), owner, "missing"); !errors.Is(err, ErrTopicNotFound) {
		test.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
	if _, err := workflow.Select(context.Background(), stranger, topic.ID); apperr.KindOf(err) != apperr.KindNotFound {
		test.Fatalf("expected not found for another user's topic, got %v", err)
	}
	if _, err := workflow.Select(context.Background(), owner, "  "); !errors.Is(err, ErrInvalidID) {
		test.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestSelectMapsLostRaceToConflict(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	workflow := mustWorkflow(test, store)
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable, Question{Text: "Q1", Order: 1})
	store.onUpdate = func() {
		store.mu.Lock()
		raced := store.topics[topic.ID]
		raced.Status = TopicUsed
		store.topics[topic.ID] = raced
		store.mu.Unlock()
	}

	_, err := workflow.Select(context.Background(), userID, topic.ID)
	if !errors.Is(err, ErrSelectionConflict) || apperr.KindOf(err) != apperr.KindConflict {
		test.Fatalf("expected conflict, got %v", err)
	}
	if len(store.interviews) != 0 || len(store.answers) != 0 {
		test.Fatalf("expected no orphan rows, got %d interviews and %d answers", len(store.interviews), len(store.answers))
	}
	if store.rollbacks != 1 {
		test.Fatalf("expected rollback, got %d", store.rollbacks)
	}
}

func TestSelectRollsBackWhenAnAnswerFails(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	workflow := mustWorkflow(test, store)
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable,
		Question{Text: "Q1", Order: 1},
		Question{Text: "Q2", Order: 2},
	)
	store.failAnswerN = 2

	_, err := workflow.Select(context.Background(), userID, topic.ID)
	if !errors.Is(err, errAnswerWriteFailed) {
		test.Fatalf("expected answer failure, got %v", err)
	}
	if store.topics[topic.ID].Status != TopicAvailable {
		test.Fatalf("expected topic to stay available, got %s", store.topics[topic.ID].Status)
	}
	if len(store.interviews) != 0 || len(store.answers) != 0 {
		test.Fatalf("expected rollback of interview and answers")
	}
}

func TestSelectRollsBackOnCancellation(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	workflow := mustWorkflow(test, store)
	userID := mustUserID(test, "user-1")
	topic := mustTopic(test, store, userID, TopicAvailable, Question{Text: "Q1", Order: 1})
	ctx, cancel := context.WithCancel(context.Background())
	store.onUpdate = cancel

	_, err := workflow.Select(ctx, userID, topic.ID)
	if !errors.Is(err, context.Canceled) {
		test.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.topics[topic.ID].Status != TopicAvailable || len(store.interviews) != 0 {
		test.Fatalf("expected nothing committed after cancellation")
	}
}

func TestNewSelectTopicWorkflowRequiresDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewSelectTopicWorkflow(WorkflowDependencies{}); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}
