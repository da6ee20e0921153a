package gormstore

import (
	"context"
	"fmt"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/interview"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tx is the gorm-backed interview.Tx handle.
type Tx struct {
	db *gorm.DB
	id string
}

// ID identifies the transaction in logs.
func (tx *Tx) ID() string {
	return tx.id
}

// TxManager implements interview.TxManager.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager returns a TxManager over db.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise, including when ctx is cancelled.
func (manager *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, tx interview.Tx) error) error {
	return manager.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := fn(ctx, &Tx{db: transaction, id: uuid.NewString()}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

func transactionDB(ctx context.Context, tx interview.Tx) (*gorm.DB, error) {
	gormTx, ok := tx.(*Tx)
	if !ok || gormTx == nil || gormTx.db == nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, fmt.Errorf("%w: %T", interview.ErrForeignTransaction, tx))
	}
	return gormTx.db.WithContext(ctx), nil
}
