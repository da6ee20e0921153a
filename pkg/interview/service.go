package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	maxTitleLength     = 200
	maxQuestionsPerSet = 100
)

// ServiceDependencies are the repositories the Service reads and writes through. Topic batches
// are written through TopicsTx inside one Transactions unit.
type ServiceDependencies struct {
	Transactions TxManager
	Topics       TopicRepository
	TopicsTx     TopicTxRepository
	Interviews   InterviewRepository
	Answers      AnswerRepository
}

// Service covers the topic and interview operations outside the select workflow.
type Service struct {
	transactions TxManager
	topics       TopicRepository
	topicsTx     TopicTxRepository
	interviews   InterviewRepository
	answers      AnswerRepository
	settings     settings
}

// NewService wires a Service.
func NewService(dependencies ServiceDependencies, options ...Option) (*Service, error) {
	if dependencies.Transactions == nil {
		return nil, fmt.Errorf("%w: transaction manager is nil", ErrInvalidServiceConfig)
	}
	if dependencies.Topics == nil || dependencies.TopicsTx == nil || dependencies.Interviews == nil || dependencies.Answers == nil {
		return nil, fmt.Errorf("%w: repository dependency is nil", ErrInvalidServiceConfig)
	}
	return &Service{
		transactions: dependencies.Transactions,
		topics:       dependencies.Topics,
		topicsTx:     dependencies.TopicsTx,
		interviews:   dependencies.Interviews,
		answers:      dependencies.Answers,
		settings:     newSettings(options),
	}, nil
}

// CreateTopics validates every draft, then stores the whole batch in one transaction.
func (service *Service) CreateTopics(ctx context.Context, userID identity.UserID, drafts []TopicDraft) ([]Topic, error) {
	topics, err := service.createTopics(ctx, userID, drafts)
	service.settings.logEvent(ctx, Event{Operation: operationCreateTopics, UserID: userID, Error: err})
	return topics, err
}

func (service *Service) createTopics(ctx context.Context, userID identity.UserID, drafts []TopicDraft) ([]Topic, error) {
	if userID.IsZero() {
		return nil, identity.ErrInvalidUserID
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no topics supplied", ErrInvalidTopic)
	}
	pending := make([]Topic, 0, len(drafts))
	for index, draft := range drafts {
		topic, err := NormalizeDraft(draft)
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", index+1, err)
		}
		topic.UserID = userID
		topic.Status = TopicAvailable
		pending = append(pending, topic)
	}
	var created []Topic
	err := service.transactions.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		created = make([]Topic, 0, len(pending))
		for _, topic := range pending {
			stored, err := service.topicsTx.CreateTx(ctx, tx, topic)
			if err != nil {
				return err
			}
			created = append(created, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// NormalizeDraft trims text and numbers questions 1..n. Orders of all zero are assigned in
// the given sequence; otherwise they must already form 1..n in some order.
func NormalizeDraft(draft TopicDraft) (Topic, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Topic{}, fmt.Errorf("%w: title is required", ErrInvalidTopic)
	}
	if len(title) > maxTitleLength {
		return Topic{}, fmt.Errorf("%w: title longer than %d bytes", ErrInvalidTopic, maxTitleLength)
	}
	if len(draft.Questions) > maxQuestionsPerSet {
		return Topic{}, fmt.Errorf("%w: more than %d questions", ErrInvalidTopic, maxQuestionsPerSet)
	}
	questions := make([]Question, 0, len(draft.Questions))
	unnumbered := true
	for _, question := range draft.Questions {
		text := strings.TrimSpace(question.Text)
		if text == "" {
			return Topic{}, fmt.Errorf("%w: question text is required", ErrInvalidTopic)
		}
		if question.Order != 0 {
			unnumbered = false
		}
		questions = append(questions, Question{Text: text, Order: question.Order})
	}
	if unnumbered {
		for index := range questions {
			questions[index].Order = index + 1
		}
	}
	questions = orderedQuestions(questions)
	for index, question := range questions {
		if question.Order != index+1 {
			return Topic{}, fmt.Errorf("%w: question orders must be unique and run from 1 to %d", ErrInvalidTopic, len(questions))
		}
	}
	return Topic{
		Title:     title,
		Overview:  strings.TrimSpace(draft.Overview),
		Questions: questions,
	}, nil
}

// ListTopics lists the user's topics, newest first.
func (service *Service) ListTopics(ctx context.Context, userID identity.UserID, filter TopicFilter) ([]Topic, error) {
	if userID.IsZero() {
		return nil, identity.ErrInvalidUserID
	}
	limit, err := normalizeLimit(filter.Limit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	return service.topics.ListByUser(ctx, userID, filter)
}

// DismissTopic marks an available topic irrelevant.
func (service *Service) DismissTopic(ctx context.Context, userID identity.UserID, topicID string) (Topic, error) {
	topic, err := service.dismissTopic(ctx, userID, topicID)
	service.settings.logEvent(ctx, Event{Operation: operationDismissTopic, UserID: userID, TopicID: topicID, Error: err})
	return topic, err
}

func (service *Service) dismissTopic(ctx context.Context, userID identity.UserID, topicID string) (Topic, error) {
	if userID.IsZero() {
		return Topic{}, identity.ErrInvalidUserID
	}
	topicID, err := requireID(topicID)
	if err != nil {
		return Topic{}, err
	}
	topic, err := service.topics.GetByID(ctx, userID, topicID)
	if err != nil {
		return Topic{}, err
	}
	if topic.Status != TopicDismissed.From() {
		return Topic{}, fmt.Errorf("%w: status %q", ErrTopicNotAvailable, topic.Status)
	}
	if err := service.topics.UpdateStatus(ctx, userID, topicID, TopicDismissed); err != nil {
		return Topic{}, err
	}
	topic.Status = TopicDismissed.To()
	topic.UpdatedAt = service.settings.now().UTC()
	return topic, nil
}

// GetInterview returns the interview with its answers ordered by question number.
func (service *Service) GetInterview(ctx context.Context, userID identity.UserID, interviewID string) (Selection, error) {
	if userID.IsZero() {
		return Selection{}, identity.ErrInvalidUserID
	}
	interviewID, err := requireID(interviewID)
	if err != nil {
		return Selection{}, err
	}
	interview, err := service.interviews.GetByID(ctx, userID, interviewID)
	if err != nil {
		return Selection{}, err
	}
	answers, err := service.answers.ListByInterview(ctx, userID, interviewID)
	if err != nil {
		return Selection{}, err
	}
	sort.SliceStable(answers, func(left, right int) bool {
		return answers[left].QuestionNumber < answers[right].QuestionNumber
	})
	return Selection{Interview: interview, Answers: answers}, nil
}

// ListInterviews lists the user's interviews, newest first.
func (service *Service) ListInterviews(ctx context.Context, userID identity.UserID, limit int) ([]Interview, error) {
	if userID.IsZero() {
		return nil, identity.ErrInvalidUserID
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	return service.interviews.ListByUser(ctx, userID, limit)
}

// SaveAnswer records a response while the interview is still a draft.
func (service *Service) SaveAnswer(ctx context.Context, userID identity.UserID, interviewID string, questionNumber int, update AnswerUpdate) (Answer, error) {
	answer, err := service.saveAnswer(ctx, userID, interviewID, questionNumber, update)
	service.settings.logEvent(ctx, Event{Operation: operationSaveAnswer, UserID: userID, InterviewID: interviewID, Error: err})
	return answer, err
}

func (service *Service) saveAnswer(ctx context.Context, userID identity.UserID, interviewID string, questionNumber int, update AnswerUpdate) (Answer, error) {
	if userID.IsZero() {
		return Answer{}, identity.ErrInvalidUserID
	}
	interviewID, err := requireID(interviewID)
	if err != nil {
		return Answer{}, err
	}
	if questionNumber < 1 {
		return Answer{}, fmt.Errorf("%w: question number must be at least 1", ErrInvalidAnswer)
	}
	if update.RecordingDurationSeconds != nil && *update.RecordingDurationSeconds < 0 {
		return Answer{}, fmt.Errorf("%w: recording duration cannot be negative", ErrInvalidAnswer)
	}
	update.Response = strings.TrimSpace(update.Response)
	interview, err := service.interviews.GetByID(ctx, userID, interviewID)
	if err != nil {
		return Answer{}, err
	}
	if interview.Status != InterviewDraft {
		return Answer{}, ErrInterviewNotEditable
	}
	answer, err := service.answers.UpdateResponse(ctx, userID, interviewID, questionNumber, update)
	if errors.Is(err, ErrStatusConflict) {
		return Answer{}, ErrInterviewNotEditable
	}
	return answer, err
}

// CompleteInterview finalizes a draft interview.
func (service *Service) CompleteInterview(ctx context.Context, userID identity.UserID, interviewID string) (Interview, error) {
	interview, err := service.completeInterview(ctx, userID, interviewID)
	service.settings.logEvent(ctx, Event{Operation: operationCompleteInterview, UserID: userID, InterviewID: interviewID, Error: err})
	return interview, err
}

func (service *Service) completeInterview(ctx context.Context, userID identity.UserID, interviewID string) (Interview, error) {
	if userID.IsZero() {
		return Interview{}, identity.ErrInvalidUserID
	}
	interviewID, err := requireID(interviewID)
	if err != nil {
		return Interview{}, err
	}
	interview, err := service.interviews.GetByID(ctx, userID, interviewID)
	if err != nil {
		return Interview{}, err
	}
	if err := ValidateInterviewTransition(interview.Status, InterviewFinished.To()); err != nil {
		return Interview{}, err
	}
	if err := service.interviews.UpdateStatus(ctx, userID, interviewID, InterviewFinished); err != nil {
		return Interview{}, err
	}
	interview.Status = InterviewFinished.To()
	interview.UpdatedAt = service.settings.now().UTC()
	return interview, nil
}

func requireID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidID)
	}
	return trimmed, nil
}

func normalizeLimit(limit int) (int, error) {
	if limit < 0 || limit > maxListLimit {
		return 0, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidListLimit, maxListLimit)
	}
	if limit == 0 {
		return defaultListLimit, nil
	}
	return limit, nil
}
