package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore implements ledger.Store using GORM.
type LedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore returns a LedgerStore backed by gorm.DB.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *LedgerStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &LedgerStore{db: transaction})
	})
}

// LockAccount upserts the account row and takes SELECT ... FOR UPDATE on it.
// SQLite has no row locks; its single writer gives the same serialization.
func (store *LedgerStore) LockAccount(ctx context.Context, userID identity.UserID) error {
	db := store.db.WithContext(ctx)
	account := CreditAccount{UserID: userID.String(), CreatedAt: time.Now().UTC()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error; err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	var locked CreditAccount
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID.String()).
		Take(&locked).Error
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeLock, err)
	}
	return nil
}

func (store *LedgerStore) InsertEntry(ctx context.Context, entryInput ledger.EntryInput) (ledger.Entry, error) {
	var idempotencyKey *string
	if entryInput.IdempotencyKey != "" {
		value := entryInput.IdempotencyKey
		idempotencyKey = &value
	}
	entry := CreditEntry{
		UserID:         entryInput.UserID.String(),
		Amount:         entryInput.Amount.Int64(),
		SourceAmount:   entryInput.SourceAmount,
		SourceType:     string(entryInput.SourceType),
		SourceUnit:     entryInput.SourceUnit,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      entryInput.CreatedAt.UTC(),
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&entry).Error
	if isUniqueViolation(err, constraintEntryIdempotencyKey) {
		return ledger.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeDuplicate, ledger.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return ledger.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	mapped, err := mapCreditEntry(entry)
	if err != nil {
		return ledger.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *LedgerStore) SumBalance(ctx context.Context, userID identity.UserID) (ledger.Credits, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&CreditEntry{}).
		Select("coalesce(sum(amount),0) as total").
		Where("user_id = ?", userID.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return ledger.Credits(sum.Total), nil
}

func (store *LedgerStore) ListEntries(ctx context.Context, userID identity.UserID, before time.Time, limit int) ([]ledger.Entry, error) {
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Second)
	}
	var rows []CreditEntry
	err := store.db.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID.String(), before.UTC()).
		Order("created_at DESC").
		Order("entry_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	entries := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapCreditEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type sqlSum struct {
	Total int64
}

var errZeroAmountRow = errors.New("stored entry has zero amount")

func mapCreditEntry(row CreditEntry) (ledger.Entry, error) {
	userID, err := identity.NewUserID(row.UserID)
	if err != nil {
		return ledger.Entry{}, err
	}
	sourceType, err := ledger.ParseSourceType(row.SourceType)
	if err != nil {
		return ledger.Entry{}, err
	}
	if row.Amount == 0 {
		return ledger.Entry{}, errZeroAmountRow
	}
	entry := ledger.Entry{
		ID:           row.EntryID,
		UserID:       userID,
		Amount:       ledger.Credits(row.Amount),
		SourceAmount: row.SourceAmount,
		SourceType:   sourceType,
		SourceUnit:   row.SourceUnit,
		CreatedAt:    row.CreatedAt.UTC(),
	}
	if row.IdempotencyKey != nil {
		entry.IdempotencyKey = *row.IdempotencyKey
	}
	return entry, nil
}
