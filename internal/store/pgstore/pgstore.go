// Package pgstore implements ledger.Store directly on a pgx pool for deployments that run the
// ledger on Postgres without gorm.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintEntryIdempotencyKey = "uniq_credit_entries_user_idem"
	pgUniqueViolationCode         = "23505"
	errorOperationStore           = "pgstore"
	errorSubjectAccount           = "account"
	errorSubjectBalance           = "balance"
	errorSubjectEntry             = "entry"
	errorSubjectTransaction       = "transaction"
	errorCodeBegin                = "begin"
	errorCodeCommit               = "commit"
	errorCodeDuplicate            = "duplicate"
	errorCodeInsert               = "insert"
	errorCodeInvalid              = "invalid"
	errorCodeList                 = "list"
	errorCodeLock                 = "lock"
	errorCodeSum                  = "sum"

	sqlUpsertAccount = `
		insert into credit_accounts(user_id, created_at) values($1, now())
		on conflict (user_id) do nothing
	`

	sqlLockAccount = `
		select user_id from credit_accounts where user_id = $1 for update
	`

	sqlInsertEntry = `
		insert into credit_entries(
			entry_id, user_id, amount, source_amount, source_type, source_unit, idempotency_key, created_at
		)
		values($1, $2, $3, $4, $5, $6, nullif($7, ''), $8)
	`

	sqlSumBalance = `
		select coalesce(sum(amount), 0) from credit_entries where user_id = $1
	`

	sqlListEntriesBefore = `
		select entry_id, user_id, amount, source_amount, source_type, source_unit, coalesce(idempotency_key, ''), created_at
		from credit_entries
		where user_id = $1 and created_at < $2
		order by created_at desc, entry_id desc
		limit $3
	`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ledger.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
	queries
}

// TxStore implements ledger.Store for an active transaction.
type TxStore struct {
	queries
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: queries{db: pool}}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, &TxStore{queries: queries{db: tx}}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return fn(ctx, store)
}

type queries struct {
	db querier
}

// LockAccount holds the account row until the surrounding transaction ends. Outside a
// transaction the lock is released immediately.
func (q queries) LockAccount(ctx context.Context, userID identity.UserID) error {
	if _, err := q.db.Exec(ctx, sqlUpsertAccount, userID.String()); err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeLock, err)
	}
	var locked string
	if err := q.db.QueryRow(ctx, sqlLockAccount, userID.String()).Scan(&locked); err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeLock, err)
	}
	return nil
}

func (q queries) InsertEntry(ctx context.Context, entryInput ledger.EntryInput) (ledger.Entry, error) {
	createdAt := entryInput.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	entry := ledger.Entry{
		ID:             uuid.NewString(),
		UserID:         entryInput.UserID,
		Amount:         entryInput.Amount,
		SourceAmount:   entryInput.SourceAmount,
		SourceType:     entryInput.SourceType,
		SourceUnit:     entryInput.SourceUnit,
		IdempotencyKey: entryInput.IdempotencyKey,
		CreatedAt:      createdAt,
	}
	_, err := q.db.Exec(ctx, sqlInsertEntry,
		entry.ID,
		entry.UserID.String(),
		entry.Amount.Int64(),
		entry.SourceAmount,
		string(entry.SourceType),
		entry.SourceUnit,
		entry.IdempotencyKey,
		entry.CreatedAt,
	)
	if isIdempotencyConflict(err) {
		return ledger.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeDuplicate, ledger.ErrDuplicateIdempotencyKey)
	}
	if err != nil {
		return ledger.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return entry, nil
}

func (q queries) SumBalance(ctx context.Context, userID identity.UserID) (ledger.Credits, error) {
	var sum int64
	if err := q.db.QueryRow(ctx, sqlSumBalance, userID.String()).Scan(&sum); err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return ledger.Credits(sum), nil
}

func (q queries) ListEntries(ctx context.Context, userID identity.UserID, before time.Time, limit int) ([]ledger.Entry, error) {
	rows, err := q.db.Query(ctx, sqlListEntriesBefore, userID.String(), before.UTC(), limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return entries, nil
}

func scanEntries(rows pgx.Rows) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	for rows.Next() {
		var (
			entryID        string
			userValue      string
			amount         int64
			sourceAmount   float64
			sourceValue    string
			sourceUnit     string
			idempotencyKey string
			createdAt      time.Time
		)
		if err := rows.Scan(&entryID, &userValue, &amount, &sourceAmount, &sourceValue, &sourceUnit, &idempotencyKey, &createdAt); err != nil {
			return nil, err
		}
		userID, err := identity.NewUserID(userValue)
		if err != nil {
			return nil, err
		}
		sourceType, err := ledger.ParseSourceType(sourceValue)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ledger.Entry{
			ID:             entryID,
			UserID:         userID,
			Amount:         ledger.Credits(amount),
			SourceAmount:   sourceAmount,
			SourceType:     sourceType,
			SourceUnit:     sourceUnit,
			IdempotencyKey: idempotencyKey,
			CreatedAt:      createdAt.UTC(),
		})
	}
	return entries, rows.Err()
}

func isIdempotencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintEntryIdempotencyKey
}

func wrapStoreError(subject string, code string, err error) error {
	return apperr.WrapError(errorOperationStore, subject, code, err)
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Store = (*TxStore)(nil)
)
