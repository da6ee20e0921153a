package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// RecordUsage charges the user for a completed AI call.
func (service *Service) RecordUsage(ctx context.Context, userID identity.UserID, usage Usage) (Entry, error) {
	return service.Spend(ctx, userID, usage.TokensUsed, usage.Operation)
}

// RequireCredits fails with ErrInsufficientCredits when the balance is below minimum.
// It is a pre-flight check; Spend remains authoritative.
func (service *Service) RequireCredits(ctx context.Context, userID identity.UserID, minimum Credits) error {
	if minimum <= 0 {
		return fmt.Errorf("%w: minimum must be greater than zero", ErrInvalidAmount)
	}
	balance, err := service.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < minimum {
		return fmt.Errorf("%w: balance %d, required %d", ErrInsufficientCredits, balance, minimum)
	}
	return nil
}

// GrantWelcome grants the one-time welcome bonus. A repeat call reports granted=false without error.
func (service *Service) GrantWelcome(ctx context.Context, userID identity.UserID, amount Credits) (Entry, bool, error) {
	idempotencyKey := welcomeKeyPrefix + userID.String()
	request := grantRequest{sourceAmount: float64(amount), sourceUnit: grantSourceUnit, idempotencyKey: idempotencyKey}
	entry, err := service.grant(ctx, userID, amount, SourceWelcome, request)
	logEntry := OperationLog{
		Operation:      operationGrantWelcome,
		UserID:         userID,
		SourceType:     SourceWelcome,
		Amount:         amount,
		EntryID:        entry.ID,
		IdempotencyKey: idempotencyKey,
		Error:          err,
	}
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		logEntry.Error = nil
		logEntry.Status = operationStatusDuplicate
		service.logOperation(ctx, logEntry)
		return Entry{}, false, nil
	}
	service.logOperation(ctx, logEntry)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// ListEntries lists entries newest first, strictly before the cutoff. A zero cutoff means now.
func (service *Service) ListEntries(ctx context.Context, userID identity.UserID, before time.Time, limit int) ([]Entry, error) {
	if userID.IsZero() {
		return nil, identity.ErrInvalidUserID
	}
	if limit < 0 || limit > maxListLimit {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidListLimit, maxListLimit)
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if before.IsZero() {
		before = service.nowFn().Add(time.Nanosecond)
	}
	return service.store.ListEntries(ctx, userID, before.UTC(), limit)
}
