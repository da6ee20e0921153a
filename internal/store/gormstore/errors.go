package gormstore

import (
	"errors"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/apperr"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintEntryIdempotencyKey = "uniq_credit_entries_user_idem"
	constraintAnswerQuestion      = "uniq_answers_interview_question"
	pgUniqueViolationCode         = "23505"
	sqliteConstraintCode          = 19
	errorOperationStore           = "store"
	errorSubjectAccount           = "account"
	errorSubjectBalance           = "balance"
	errorSubjectEntry             = "entry"
	errorSubjectTopic             = "topic"
	errorSubjectInterview         = "interview"
	errorSubjectAnswer            = "answer"
	errorSubjectTransaction       = "transaction"
	errorCodeCreate               = "create"
	errorCodeDuplicate            = "duplicate"
	errorCodeGet                  = "get"
	errorCodeInsert               = "insert"
	errorCodeInvalid              = "invalid"
	errorCodeList                 = "list"
	errorCodeLock                 = "lock"
	errorCodeSum                  = "sum"
	errorCodeUpdate               = "update"
	errorCodeUpdateStatus         = "update_status"
)

func wrapStoreError(subject string, code string, err error) error {
	return apperr.WrapError(errorOperationStore, subject, code, err)
}

// isUniqueViolation recognizes duplicate keys from gorm's translated error, Postgres and SQLite.
// Postgres errors are matched on constraint; SQLite does not report one.
func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraint
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
