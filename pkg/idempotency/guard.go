// Package idempotency rejects retried mutating requests that have already been processed.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
)

// Decision is the outcome of Admit.
type Decision int

const (
	Admitted Decision = iota + 1
	Rejected
)

// String returns the metric label for the decision.
func (decision Decision) String() string {
	switch decision {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var (
	// ErrDuplicateRequest is surfaced to clients when Admit rejects.
	ErrDuplicateRequest   = fmt.Errorf("%w: request already processed", apperr.ErrDuplicateRequest)
	ErrInvalidSignature   = errors.New("empty idempotency signature")
	ErrInvalidGuardConfig = errors.New("invalid idempotency guard config")
)

// Store keeps idempotency records for at most one TTL window.
//
// Admit returns Admitted for an unknown signature (and records it as in flight) or for a
// signature still in flight; it returns Rejected once MarkProcessed has been called for it.
type Store interface {
	Admit(ctx context.Context, signature string) (Decision, error)
	MarkProcessed(ctx context.Context, signature string) error
}

// DecisionRecorder observes admission decisions.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, decision Decision)
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithDecisionRecorder wires a recorder that receives every decision.
func WithDecisionRecorder(recorder DecisionRecorder) GuardOption {
	return func(guard *Guard) {
		guard.recorder = recorder
	}
}

// Guard is the entry point used by transport middleware.
type Guard struct {
	store    Store
	recorder DecisionRecorder
}

// NewGuard wires a Guard over store.
func NewGuard(store Store, options ...GuardOption) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidGuardConfig)
	}
	guard := &Guard{store: store}
	for _, option := range options {
		if option != nil {
			option(guard)
		}
	}
	return guard, nil
}

// Admit decides whether a request with this signature may run.
func (guard *Guard) Admit(ctx context.Context, signature string) (Decision, error) {
	if strings.TrimSpace(signature) == "" {
		return 0, ErrInvalidSignature
	}
	decision, err := guard.store.Admit(ctx, signature)
	if err != nil {
		return 0, err
	}
	if guard.recorder != nil {
		guard.recorder.RecordDecision(ctx, decision)
	}
	return decision, nil
}

// MarkProcessed flags the signature so repeats within the TTL are rejected.
func (guard *Guard) MarkProcessed(ctx context.Context, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrInvalidSignature
	}
	return guard.store.MarkProcessed(ctx, signature)
}
