package interview

import (
	"context"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// Tx is an open unit of work. Only the TxManager that produced it can interpret it.
type Tx interface {
	ID() string
}

// TxManager runs fn inside one transaction. A nil return commits, anything else rolls back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// TopicRepository is the default, auto-committing topic store. Reads are scoped to the owner.
type TopicRepository interface {
	Create(ctx context.Context, topic Topic) (Topic, error)
	GetByID(ctx context.Context, userID identity.UserID, topicID string) (Topic, error)
	ListByUser(ctx context.Context, userID identity.UserID, filter TopicFilter) ([]Topic, error)
	// UpdateStatus applies transition only when the row still has transition.From(); otherwise ErrStatusConflict.
	UpdateStatus(ctx context.Context, userID identity.UserID, topicID string, transition TopicTransition) error
}

// TopicTxRepository runs topic statements on an explicit transaction.
type TopicTxRepository interface {
	CreateTx(ctx context.Context, tx Tx, topic Topic) (Topic, error)
	GetByIDTx(ctx context.Context, tx Tx, userID identity.UserID, topicID string) (Topic, error)
	UpdateStatusTx(ctx context.Context, tx Tx, userID identity.UserID, topicID string, transition TopicTransition) error
}

type InterviewRepository interface {
	Create(ctx context.Context, interview Interview) (Interview, error)
	GetByID(ctx context.Context, userID identity.UserID, interviewID string) (Interview, error)
	ListByUser(ctx context.Context, userID identity.UserID, limit int) ([]Interview, error)
	UpdateStatus(ctx context.Context, userID identity.UserID, interviewID string, transition InterviewTransition) error
}

type InterviewTxRepository interface {
	CreateTx(ctx context.Context, tx Tx, interview Interview) (Interview, error)
}

type AnswerRepository interface {
	Create(ctx context.Context, answer Answer) (Answer, error)
	GetByID(ctx context.Context, userID identity.UserID, answerID string) (Answer, error)
	// ListByInterview returns answers ordered by question number.
	ListByInterview(ctx context.Context, userID identity.UserID, interviewID string) ([]Answer, error)
	// UpdateResponse writes the response only while the owning interview is a draft; otherwise ErrStatusConflict.
	UpdateResponse(ctx context.Context, userID identity.UserID, interviewID string, questionNumber int, update AnswerUpdate) (Answer, error)
}

type AnswerTxRepository interface {
	CreateTx(ctx context.Context, tx Tx, answer Answer) (Answer, error)
}
