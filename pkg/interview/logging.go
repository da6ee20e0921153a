package interview

import (
	"context"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

const (
	operationSelectTopic       = "select_topic"
	operationCreateTopics      = "create_topics"
	operationDismissTopic      = "dismiss_topic"
	operationSaveAnswer        = "save_answer"
	operationCompleteInterview = "complete_interview"

	eventStatusOK    = "ok"
	eventStatusError = "error"
)

// WorkflowState tracks how far a select-topic run progressed.
type WorkflowState string

const (
	StateRequested      WorkflowState = "requested"
	StateTopicValidated WorkflowState = "topic_validated"
	StateTransacting    WorkflowState = "transacting"
	StateCommitted      WorkflowState = "committed"
	StateAborted        WorkflowState = "aborted"
)

// Event describes a state-changing interview operation.
type Event struct {
	Operation   string
	UserID      identity.UserID
	TopicID     string
	InterviewID string
	// State is the last state reached; set for select_topic only.
	State  WorkflowState
	Status string
	Error  error
}

// EventLogger receives one Event per state-changing call.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event)
}

// Option configures the Service and the SelectTopicWorkflow.
type Option func(*settings)

type settings struct {
	logger EventLogger
	now    func() time.Time
}

// WithEventLogger wires a logger that receives callbacks for every operation.
func WithEventLogger(logger EventLogger) Option {
	return func(current *settings) {
		current.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(current *settings) {
		if now != nil {
			current.now = now
		}
	}
}

func newSettings(options []Option) settings {
	current := settings{now: time.Now}
	for _, option := range options {
		if option != nil {
			option(&current)
		}
	}
	return current
}

func (current settings) logEvent(ctx context.Context, event Event) {
	if current.logger == nil {
		return
	}
	if event.Status == "" {
		if event.Error != nil {
			event.Status = eventStatusError
		} else {
			event.Status = eventStatusOK
		}
	}
	current.logger.LogEvent(ctx, event)
}
