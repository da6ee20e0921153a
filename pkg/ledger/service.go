package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
)

// Service contains the domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// GrantOption customizes a grant entry.
type GrantOption func(*grantRequest)

type grantRequest struct {
	sourceAmount   float64
	sourceUnit     string
	idempotencyKey string
}

// WithSourceAmount records what the grant was bought with, e.g. 5 "usd".
func WithSourceAmount(amount float64, unit string) GrantOption {
	return func(request *grantRequest) {
		request.sourceAmount = amount
		if trimmed := strings.TrimSpace(unit); trimmed != "" {
			request.sourceUnit = trimmed
		}
	}
}

// WithIdempotencyKey makes the grant unique per user and key.
func WithIdempotencyKey(key string) GrantOption {
	return func(request *grantRequest) {
		request.idempotencyKey = key
	}
}

// Balance returns the sum of all entries for the user.
func (service *Service) Balance(ctx context.Context, userID identity.UserID) (Credits, error) {
	if userID.IsZero() {
		return 0, identity.ErrInvalidUserID
	}
	return service.store.SumBalance(ctx, userID)
}

// Grant appends a positive entry from a grant source.
func (service *Service) Grant(ctx context.Context, userID identity.UserID, amount Credits, sourceType SourceType, options ...GrantOption) (Entry, error) {
	request := grantRequest{sourceAmount: float64(amount), sourceUnit: grantSourceUnit}
	for _, option := range options {
		if option != nil {
			option(&request)
		}
	}
	entry, operationError := service.grant(ctx, userID, amount, sourceType, request)
	service.logOperation(ctx, OperationLog{
		Operation:      operationGrant,
		UserID:         userID,
		SourceType:     sourceType,
		Amount:         amount,
		EntryID:        entry.ID,
		IdempotencyKey: request.idempotencyKey,
		Error:          operationError,
	})
	return entry, operationError
}

func (service *Service) grant(ctx context.Context, userID identity.UserID, amount Credits, sourceType SourceType, request grantRequest) (Entry, error) {
	if amount <= 0 {
		return Entry{}, fmt.Errorf("%w: grant must be greater than zero", ErrInvalidAmount)
	}
	if !sourceType.IsGrant() {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotGrantSource, sourceType)
	}
	charge := Charge{SourceAmount: request.sourceAmount, SourceUnit: request.sourceUnit, Credits: amount}
	entryInput, err := newEntryInput(userID, amount, charge, sourceType, request.idempotencyKey, service.nowFn())
	if err != nil {
		return Entry{}, err
	}
	return service.store.InsertEntry(ctx, entryInput)
}

// Consume appends a debit for metered usage without checking the balance.
func (service *Service) Consume(ctx context.Context, userID identity.UserID, rawUsage int64, sourceType SourceType) (Entry, error) {
	var charged Credits
	entry, operationError := func() (Entry, error) {
		charge, err := PriceUsage(rawUsage, sourceType)
		if err != nil {
			return Entry{}, err
		}
		charged = charge.Credits
		entryInput, err := newEntryInput(userID, -charge.Credits, charge, sourceType, "", service.nowFn())
		if err != nil {
			return Entry{}, err
		}
		return service.store.InsertEntry(ctx, entryInput)
	}()
	service.logOperation(ctx, OperationLog{
		Operation:  operationConsume,
		UserID:     userID,
		SourceType: sourceType,
		Amount:     charged,
		EntryID:    entry.ID,
		Error:      operationError,
	})
	return entry, operationError
}

// Spend debits metered usage only when the balance covers it. The account row lock serializes
// concurrent spends for the same user so the balance never goes negative through this path.
func (service *Service) Spend(ctx context.Context, userID identity.UserID, rawUsage int64, sourceType SourceType) (Entry, error) {
	var (
		charged Credits
		entry   Entry
	)
	operationError := func() error {
		charge, err := PriceUsage(rawUsage, sourceType)
		if err != nil {
			return err
		}
		charged = charge.Credits
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if err := transactionStore.LockAccount(ctx, userID); err != nil {
				return err
			}
			balance, err := transactionStore.SumBalance(ctx, userID)
			if err != nil {
				return err
			}
			if balance-charge.Credits < 0 {
				return fmt.Errorf("%w: balance %d, required %d", ErrInsufficientCredits, balance, charge.Credits)
			}
			entryInput, err := newEntryInput(userID, -charge.Credits, charge, sourceType, "", service.nowFn())
			if err != nil {
				return err
			}
			entry, err = transactionStore.InsertEntry(ctx, entryInput)
			return err
		})
	}()
	if operationError != nil {
		entry = Entry{}
	}
	service.logOperation(ctx, OperationLog{
		Operation:  operationSpend,
		UserID:     userID,
		SourceType: sourceType,
		Amount:     charged,
		EntryID:    entry.ID,
		Error:      operationError,
	})
	return entry, operationError
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
