package interview

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

var fixedNow = time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)

// memoryStore is an in-memory implementation of every repository and the TxManager.
// RunInTx snapshots all tables and restores them when fn fails.
type memoryStore struct {
	mu          sync.Mutex
	topics      map[string]Topic
	interviews  map[string]Interview
	answers     map[string]Answer
	sequence    int
	commits     int
	rollbacks   int
	failAnswerN int
	failTopicN  int
	topicWrites int
	onUpdate    func()
}

type memoryTx struct {
	id string
}

func (tx memoryTx) ID() string { return tx.id }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		topics:     map[string]Topic{},
		interviews: map[string]Interview{},
		answers:    map[string]Answer{},
	}
}

func (store *memoryStore) nextID(prefix string) string {
	store.sequence++
	return prefix + "-" + strconv.Itoa(store.sequence)
}

func (store *memoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	store.mu.Lock()
	topics := copyMap(store.topics)
	interviews := copyMap(store.interviews)
	answers := copyMap(store.answers)
	store.mu.Unlock()

	err := fn(ctx, memoryTx{id: "tx-" + strconv.Itoa(store.sequence)})
	if err == nil {
		err = ctx.Err()
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if err != nil {
		store.topics, store.interviews, store.answers = topics, interviews, answers
		store.rollbacks++
		return err
	}
	store.commits++
	return nil
}

func copyMap[V any](source map[string]V) map[string]V {
	copied := make(map[string]V, len(source))
	for key, value := range source {
		copied[key] = value
	}
	return copied
}

func checkTx(tx Tx) error {
	if _, ok := tx.(memoryTx); !ok {
		return ErrForeignTransaction
	}
	return nil
}

func (store *memoryStore) Create(_ context.Context, topic Topic) (Topic, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.topicWrites++
	if store.failTopicN > 0 && store.topicWrites == store.failTopicN {
		return Topic{}, errTopicWriteFailed
	}
	topic.ID = store.nextID("topic")
	topic.CreatedAt, topic.UpdatedAt = fixedNow, fixedNow
	store.topics[topic.ID] = topic
	return topic, nil
}

func (store *memoryStore) CreateTx(ctx context.Context, tx Tx, topic Topic) (Topic, error) {
	if err := checkTx(tx); err != nil {
		return Topic{}, err
	}
	return store.Create(ctx, topic)
}

func (store *memoryStore) GetByID(_ context.Context, userID identity.UserID, topicID string) (Topic, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	topic, ok := store.topics[topicID]
	if !ok || topic.UserID != userID {
		return Topic{}, ErrTopicNotFound
	}
	return topic, nil
}

func (store *memoryStore) GetByIDTx(ctx context.Context, tx Tx, userID identity.UserID, topicID string) (Topic, error) {
	if err := checkTx(tx); err != nil {
		return Topic{}, err
	}
	return store.GetByID(ctx, userID, topicID)
}

func (store *memoryStore) ListByUser(_ context.Context, userID identity.UserID, filter TopicFilter) ([]Topic, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var topics []Topic
	for _, topic := range store.topics {
		if topic.UserID != userID {
			continue
		}
		if filter.Status != nil && topic.Status != *filter.Status {
			continue
		}
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(left, right int) bool { return topics[left].ID < topics[right].ID })
	return topics, nil
}

func (store *memoryStore) UpdateStatus(_ context.Context, userID identity.UserID, topicID string, transition TopicTransition) error {
	if err := transition.Validate(); err != nil {
		return err
	}
	if store.onUpdate != nil {
		store.onUpdate()
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	topic, ok := store.topics[topicID]
	if !ok || topic.UserID != userID || topic.Status != transition.From() {
		return ErrStatusConflict
	}
	topic.Status = transition.To()
	store.topics[topicID] = topic
	return nil
}

func (store *memoryStore) UpdateStatusTx(ctx context.Context, tx Tx, userID identity.UserID, topicID string, transition TopicTransition) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return store.UpdateStatus(ctx, userID, topicID, transition)
}

type memoryInterviews struct{ *memoryStore }

func (repository memoryInterviews) Create(_ context.Context, interview Interview) (Interview, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	interview.ID = store.nextID("interview")
	interview.CreatedAt, interview.UpdatedAt = fixedNow, fixedNow
	store.interviews[interview.ID] = interview
	return interview, nil
}

func (repository memoryInterviews) CreateTx(ctx context.Context, tx Tx, interview Interview) (Interview, error) {
	if err := checkTx(tx); err != nil {
		return Interview{}, err
	}
	return repository.Create(ctx, interview)
}

func (repository memoryInterviews) GetByID(_ context.Context, userID identity.UserID, interviewID string) (Interview, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	interview, ok := store.interviews[interviewID]
	if !ok || interview.UserID != userID {
		return Interview{}, ErrInterviewNotFound
	}
	return interview, nil
}

func (repository memoryInterviews) ListByUser(_ context.Context, userID identity.UserID, limit int) ([]Interview, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	var interviews []Interview
	for _, interview := range store.interviews {
		if interview.UserID == userID {
			interviews = append(interviews, interview)
		}
	}
	if len(interviews) > limit {
		interviews = interviews[:limit]
	}
	return interviews, nil
}

func (repository memoryInterviews) UpdateStatus(_ context.Context, userID identity.UserID, interviewID string, transition InterviewTransition) error {
	if err := transition.Validate(); err != nil {
		return err
	}
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	interview, ok := store.interviews[interviewID]
	if !ok || interview.UserID != userID || interview.Status != transition.From() {
		return ErrStatusConflict
	}
	interview.Status = transition.To()
	store.interviews[interviewID] = interview
	return nil
}

type memoryAnswers struct{ *memoryStore }

func (repository memoryAnswers) Create(_ context.Context, answer Answer) (Answer, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failAnswerN > 0 && answer.QuestionNumber == store.failAnswerN {
		return Answer{}, errAnswerWriteFailed
	}
	answer.ID = store.nextID("answer")
	answer.CreatedAt, answer.UpdatedAt = fixedNow, fixedNow
	store.answers[answer.ID] = answer
	return answer, nil
}

func (repository memoryAnswers) CreateTx(ctx context.Context, tx Tx, answer Answer) (Answer, error) {
	if err := checkTx(tx); err != nil {
		return Answer{}, err
	}
	return repository.Create(ctx, answer)
}

func (repository memoryAnswers) GetByID(_ context.Context, userID identity.UserID, answerID string) (Answer, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	answer, ok := store.answers[answerID]
	if !ok || answer.UserID != userID {
		return Answer{}, ErrAnswerNotFound
	}
	return answer, nil
}

func (repository memoryAnswers) ListByInterview(_ context.Context, userID identity.UserID, interviewID string) ([]Answer, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	var answers []Answer
	for _, answer := range store.answers {
		if answer.UserID == userID && answer.InterviewID == interviewID {
			answers = append(answers, answer)
		}
	}
	return answers, nil
}

func (repository memoryAnswers) UpdateResponse(_ context.Context, userID identity.UserID, interviewID string, questionNumber int, update AnswerUpdate) (Answer, error) {
	store := repository.memoryStore
	store.mu.Lock()
	defer store.mu.Unlock()
	for id, answer := range store.answers {
		if answer.UserID != userID || answer.InterviewID != interviewID || answer.QuestionNumber != questionNumber {
			continue
		}
		if store.interviews[interviewID].Status != InterviewDraft {
			return Answer{}, ErrStatusConflict
		}
		response := update.Response
		answer.Response = &response
		answer.RecordingDurationSeconds = update.RecordingDurationSeconds
		store.answers[id] = answer
		return answer, nil
	}
	return Answer{}, ErrAnswerNotFound
}

type recordingEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func (logger *recordingEventLogger) LogEvent(_ context.Context, event Event) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.events = append(logger.events, event)
}

func mustUserID(test *testing.T, raw string) identity.UserID {
	test.Helper()
	userID, err := identity.NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return userID
}

func mustWorkflow(test *testing.T, store *memoryStore, options ...Option) *SelectTopicWorkflow {
	test.Helper()
	workflow, err := NewSelectTopicWorkflow(WorkflowDependencies{
		Transactions: store,
		Topics:       store,
		TopicsTx:     store,
		InterviewsTx: memoryInterviews{store},
		AnswersTx:    memoryAnswers{store},
	}, options...)
	if err != nil {
		test.Fatalf("new workflow: %v", err)
	}
	return workflow
}

func mustService(test *testing.T, store *memoryStore, options ...Option) *Service {
	test.Helper()
	options = append([]Option{WithClock(func() time.Time { return fixedNow })}, options...)
	service, err := NewService(ServiceDependencies{
		Transactions: store,
		Topics:       store,
		TopicsTx:     store,
		Interviews:   memoryInterviews{store},
		Answers:      memoryAnswers{store},
	}, options...)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustTopic(test *testing.T, store *memoryStore, userID identity.UserID, status TopicStatus, questions ...Question) Topic {
	test.Helper()
	topic, err := store.Create(context.Background(), Topic{
		UserID:    userID,
		Title:     "Childhood",
		Overview:  "Early memories",
		Questions: questions,
		Status:    status,
	})
	if err != nil {
		test.Fatalf("create topic: %v", err)
	}
	return topic
}
