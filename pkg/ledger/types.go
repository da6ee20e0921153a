package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// Credits is a signed whole number of credits.
type Credits int64

// Int64 exposes the raw value.
func (credits Credits) Int64() int64 {
	return int64(credits)
}

// SourceType names the origin of a ledger entry.
type SourceType string

const (
	SourceWelcome        SourceType = "welcome"
	SourcePurchase       SourceType = "purchase"
	SourcePromo          SourceType = "promo"
	SourceTranscriber    SourceType = "transcriber"
	SourceExtractor      SourceType = "extractor"
	SourceTopicGenerator SourceType = "topic_generator"
	SourceTopicRanker    SourceType = "topic_ranker"
)

var grantSources = map[SourceType]struct{}{
	SourceWelcome:  {},
	SourcePurchase: {},
	SourcePromo:    {},
}

// ParseSourceType validates a raw source type.
func ParseSourceType(raw string) (SourceType, error) {
	candidate := SourceType(strings.TrimSpace(strings.ToLower(raw)))
	if candidate.IsGrant() || candidate.IsMetered() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSourceType, raw)
}

// IsGrant reports whether the source may add credits.
func (sourceType SourceType) IsGrant() bool {
	_, ok := grantSources[sourceType]
	return ok
}

// IsMetered reports whether the source consumes credits at a fixed rate.
func (sourceType SourceType) IsMetered() bool {
	_, ok := meteredRates[sourceType]
	return ok
}

// EntryInput is an entry that has not been persisted yet.
type EntryInput struct {
	UserID         identity.UserID
	Amount         Credits
	SourceAmount   float64
	SourceType     SourceType
	SourceUnit     string
	IdempotencyKey string
	CreatedAt      time.Time
}

func newEntryInput(userID identity.UserID, amount Credits, charge Charge, sourceType SourceType, idempotencyKey string, createdAt time.Time) (EntryInput, error) {
	if userID.IsZero() {
		return EntryInput{}, identity.ErrInvalidUserID
	}
	if amount == 0 {
		return EntryInput{}, fmt.Errorf("%w: entry amount cannot be zero", ErrInvalidAmount)
	}
	return EntryInput{
		UserID:         userID,
		Amount:         amount,
		SourceAmount:   charge.SourceAmount,
		SourceType:     sourceType,
		SourceUnit:     charge.SourceUnit,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
		CreatedAt:      createdAt.UTC(),
	}, nil
}

// Entry is a single immutable line in the ledger.
type Entry struct {
	ID             string
	UserID         identity.UserID
	Amount         Credits
	SourceAmount   float64
	SourceType     SourceType
	SourceUnit     string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Usage is what an AI call reports after completion.
type Usage struct {
	TokensUsed int64
	Operation  SourceType
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	// LockAccount creates the user's account row when missing and holds a row lock until the transaction ends.
	LockAccount(ctx context.Context, userID identity.UserID) error
	InsertEntry(ctx context.Context, entry EntryInput) (Entry, error)
	SumBalance(ctx context.Context, userID identity.UserID) (Credits, error)
	ListEntries(ctx context.Context, userID identity.UserID, before time.Time, limit int) ([]Entry, error)
}
