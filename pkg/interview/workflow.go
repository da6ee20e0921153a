package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// WorkflowDependencies are the collaborators of SelectTopicWorkflow.
type WorkflowDependencies struct {
	Transactions TxManager
	Topics       TopicRepository
	TopicsTx     TopicTxRepository
	InterviewsTx InterviewTxRepository
	AnswersTx    AnswerTxRepository
}

// SelectTopicWorkflow turns an available topic into a draft interview with one empty answer per question.
type SelectTopicWorkflow struct {
	transactions TxManager
	topics       TopicRepository
	topicsTx     TopicTxRepository
	interviewsTx InterviewTxRepository
	answersTx    AnswerTxRepository
	settings     settings
}

// NewSelectTopicWorkflow wires a SelectTopicWorkflow.
func NewSelectTopicWorkflow(dependencies WorkflowDependencies, options ...Option) (*SelectTopicWorkflow, error) {
	switch {
	case dependencies.Transactions == nil:
		return nil, fmt.Errorf("%w: transaction manager is nil", ErrInvalidServiceConfig)
	case dependencies.Topics == nil, dependencies.TopicsTx == nil:
		return nil, fmt.Errorf("%w: topic repository is nil", ErrInvalidServiceConfig)
	case dependencies.InterviewsTx == nil:
		return nil, fmt.Errorf("%w: interview repository is nil", ErrInvalidServiceConfig)
	case dependencies.AnswersTx == nil:
		return nil, fmt.Errorf("%w: answer repository is nil", ErrInvalidServiceConfig)
	}
	return &SelectTopicWorkflow{
		transactions: dependencies.Transactions,
		topics:       dependencies.Topics,
		topicsTx:     dependencies.TopicsTx,
		interviewsTx: dependencies.InterviewsTx,
		answersTx:    dependencies.AnswersTx,
		settings:     newSettings(options),
	}, nil
}

// Select marks the topic used, creates the interview and its answers in one transaction.
// Either all three writes commit or none do.
func (workflow *SelectTopicWorkflow) Select(ctx context.Context, userID identity.UserID, topicID string) (Selection, error) {
	event := Event{Operation: operationSelectTopic, UserID: userID, TopicID: topicID, State: StateRequested}
	selection, err := workflow.run(ctx, userID, topicID, &event)
	if err != nil {
		event.State = StateAborted
		event.Error = err
		selection = Selection{}
	} else {
		event.State = StateCommitted
		event.InterviewID = selection.Interview.ID
	}
	workflow.settings.logEvent(ctx, event)
	return selection, err
}

func (workflow *SelectTopicWorkflow) run(ctx context.Context, userID identity.UserID, topicID string, event *Event) (Selection, error) {
	if userID.IsZero() {
		return Selection{}, identity.ErrInvalidUserID
	}
	topicID, err := requireID(topicID)
	if err != nil {
		return Selection{}, err
	}
	topic, err := workflow.topics.GetByID(ctx, userID, topicID)
	if err != nil {
		return Selection{}, err
	}
	if topic.Status != TopicAvailable {
		return Selection{}, fmt.Errorf("%w: status %q", ErrTopicNotAvailable, topic.Status)
	}
	event.State = StateTopicValidated

	var selection Selection
	err = workflow.transactions.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		event.State = StateTransacting
		if err := workflow.topicsTx.UpdateStatusTx(ctx, tx, userID, topic.ID, TopicSelected); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return fmt.Errorf("%w: %v", ErrSelectionConflict, err)
			}
			return err
		}
		// Re-read under the row lock taken by the status update.
		locked, err := workflow.topicsTx.GetByIDTx(ctx, tx, userID, topic.ID)
		if err != nil {
			return err
		}
		questions := orderedQuestions(locked.Questions)
		interview, err := workflow.interviewsTx.CreateTx(ctx, tx, Interview{
			UserID:   userID,
			TopicID:  topic.ID,
			Title:    locked.Title,
			Overview: locked.Overview,
			Status:   InterviewDraft,
		})
		if err != nil {
			return err
		}
		answers := make([]Answer, 0, len(questions))
		for _, question := range questions {
			answer, err := workflow.answersTx.CreateTx(ctx, tx, Answer{
				InterviewID:    interview.ID,
				UserID:         userID,
				QuestionNumber: question.Order,
				Question:       question.Text,
			})
			if err != nil {
				return err
			}
			answers = append(answers, answer)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		selection = Selection{Interview: interview, Answers: answers}
		return nil
	})
	if err != nil {
		return Selection{}, err
	}
	return selection, nil
}

func orderedQuestions(questions []Question) []Question {
	ordered := append([]Question(nil), questions...)
	sort.SliceStable(ordered, func(left, right int) bool {
		return ordered[left].Order < ordered[right].Order
	})
	return ordered
}
