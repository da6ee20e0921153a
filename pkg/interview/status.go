package interview

import (
	"fmt"
	"strings"
)

// TopicStatus is the lifecycle state of a topic.
type TopicStatus string

const (
	TopicAvailable  TopicStatus = "available"
	TopicUsed       TopicStatus = "used"
	TopicIrrelevant TopicStatus = "irrelevant"
)

// InterviewStatus is the lifecycle state of an interview.
type InterviewStatus string

const (
	InterviewDraft     InterviewStatus = "draft"
	InterviewCompleted InterviewStatus = "completed"
)

// ParseTopicStatus validates a raw topic status.
func ParseTopicStatus(raw string) (TopicStatus, error) {
	switch status := TopicStatus(strings.TrimSpace(strings.ToLower(raw))); status {
	case TopicAvailable, TopicUsed, TopicIrrelevant:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// ParseInterviewStatus validates a raw interview status.
func ParseInterviewStatus(raw string) (InterviewStatus, error) {
	switch status := InterviewStatus(strings.TrimSpace(strings.ToLower(raw))); status {
	case InterviewDraft, InterviewCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// TopicTransition is a permitted status change. Values outside this package can only be the
// exported transitions below, so an illegal change cannot be expressed.
type TopicTransition struct {
	from TopicStatus
	to   TopicStatus
}

var (
	TopicSelected  = TopicTransition{from: TopicAvailable, to: TopicUsed}
	TopicDismissed = TopicTransition{from: TopicAvailable, to: TopicIrrelevant}
)

// From is the status the row must currently have.
func (transition TopicTransition) From() TopicStatus { return transition.from }

// To is the status written.
func (transition TopicTransition) To() TopicStatus { return transition.to }

// Validate rejects the zero value.
func (transition TopicTransition) Validate() error {
	return ValidateTopicTransition(transition.from, transition.to)
}

// InterviewTransition is a permitted interview status change.
type InterviewTransition struct {
	from InterviewStatus
	to   InterviewStatus
}

var InterviewFinished = InterviewTransition{from: InterviewDraft, to: InterviewCompleted}

// From is the status the row must currently have.
func (transition InterviewTransition) From() InterviewStatus { return transition.from }

// To is the status written.
func (transition InterviewTransition) To() InterviewStatus { return transition.to }

// Validate rejects the zero value.
func (transition InterviewTransition) Validate() error {
	return ValidateInterviewTransition(transition.from, transition.to)
}

var topicTransitions = map[TopicStatus][]TopicStatus{
	TopicAvailable: {TopicUsed, TopicIrrelevant},
}

var interviewTransitions = map[InterviewStatus][]InterviewStatus{
	InterviewDraft: {InterviewCompleted},
}

// ValidateTopicTransition is the single check every topic write path goes through.
func ValidateTopicTransition(from, to TopicStatus) error {
	for _, allowed := range topicTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: topic %q -> %q", ErrInvalidTransition, from, to)
}

// ValidateInterviewTransition is the single check every interview write path goes through.
func ValidateInterviewTransition(from, to InterviewStatus) error {
	for _, allowed := range interviewTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: interview %q -> %q", ErrInvalidTransition, from, to)
}
