package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/MarkoPoloResearchLab/interviewledger/pkg/ledger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLedgerStoreBalanceMatchesEntries(t *testing.T) {
	db := openTestDatabase(t)
	service := newLedgerService(t, db)
	ctx := context.Background()
	userID := mustUserID(t, "ledger-user")

	if _, err := service.Grant(ctx, userID, 10, ledger.SourcePromo); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := service.Consume(ctx, userID, 999, ledger.SourceExtractor); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := service.Spend(ctx, userID, 3000, ledger.SourceTranscriber); err != nil {
		t.Fatalf("spend: %v", err)
	}

	balance, err := service.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 6 {
		t.Fatalf("expected balance 6, got %d", balance)
	}
	var rows []CreditEntry
	if err := db.Where("user_id = ?", userID.String()).Find(&rows).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	var sum int64
	for _, row := range rows {
		if row.Amount == 0 {
			t.Fatalf("zero-amount entry stored: %+v", row)
		}
		sum += row.Amount
	}
	if sum != balance.Int64() {
		t.Fatalf("balance %d differs from entry sum %d", balance, sum)
	}
	var accounts int64
	db.Model(&CreditAccount{}).Where("user_id = ?", userID.String()).Count(&accounts)
	if accounts != 1 {
		t.Fatalf("expected spend to create the account row, got %d", accounts)
	}
}

func TestLedgerStoreSpendRejectsOverdraft(t *testing.T) {
	db := openTestDatabase(t)
	service := newLedgerService(t, db)
	ctx := context.Background()
	userID := mustUserID(t, "overdraft-user")

	_, err := service.Spend(ctx, userID, 1000, ledger.SourceTranscriber)
	if !errors.Is(err, ledger.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	var count int64
	db.Model(&CreditEntry{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no entries, got %d", count)
	}
}

func TestLedgerStoreConcurrentSpendsNeverOverdraw(t *testing.T) {
	db := openTestDatabase(t)
	service := newLedgerService(t, db)
	ctx := context.Background()
	userID := mustUserID(t, "race-user")
	if _, err := service.Grant(ctx, userID, 1, ledger.SourcePromo); err != nil {
		t.Fatalf("grant: %v", err)
	}

	const workers = 4
	results := make(chan error, workers)
	var waitGroup sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			_, err := service.Spend(ctx, userID, 1000, ledger.SourceTranscriber)
			results <- err
		}()
	}
	waitGroup.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ledger.ErrInsufficientCredits):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful spend, got %d", successes)
	}
	balance, err := service.Balance(ctx, userID)
	if err != nil || balance != 0 {
		t.Fatalf("expected zero balance, got %d (%v)", balance, err)
	}
}

func TestLedgerStoreWelcomeUsesUniqueIndex(t *testing.T) {
	db := openTestDatabase(t)
	service := newLedgerService(t, db)
	ctx := context.Background()
	userID := mustUserID(t, "welcome-user")

	if _, granted, err := service.GrantWelcome(ctx, userID, 25); err != nil || !granted {
		t.Fatalf("expected welcome grant, got granted=%v err=%v", granted, err)
	}
	if _, granted, err := service.GrantWelcome(ctx, userID, 25); err != nil || granted {
		t.Fatalf("expected duplicate welcome to be ignored, got granted=%v err=%v", granted, err)
	}
	other := mustUserID(t, "other-user")
	if _, granted, err := service.GrantWelcome(ctx, other, 25); err != nil || !granted {
		t.Fatalf("expected welcome for a second user, got granted=%v err=%v", granted, err)
	}
	if _, err := service.Grant(ctx, userID, 5, ledger.SourcePromo); err != nil {
		t.Fatalf("entries without keys must not collide: %v", err)
	}
	if _, err := service.Grant(ctx, userID, 5, ledger.SourcePromo); err != nil {
		t.Fatalf("entries without keys must not collide: %v", err)
	}
	balance, _ := service.Balance(ctx, userID)
	if balance != 35 {
		t.Fatalf("expected balance 35, got %d", balance)
	}
}

func TestLedgerStoreListEntriesNewestFirst(t *testing.T) {
	db := openTestDatabase(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	userID := mustUserID(t, "history-user")
	base := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	for offset := 0; offset < 3; offset++ {
		_, err := store.InsertEntry(ctx, ledger.EntryInput{
			UserID:     userID,
			Amount:     ledger.Credits(offset + 1),
			SourceType: ledger.SourcePromo,
			SourceUnit: "credits",
			CreatedAt:  base.Add(time.Duration(offset) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	entries, err := store.ListEntries(ctx, userID, base.Add(2*time.Minute), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Amount != 2 || entries[1].Amount != 1 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if !entries[0].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected timestamp %v", entries[0].CreatedAt)
	}
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "interviews.db")), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newLedgerService(t *testing.T, db *gorm.DB) *ledger.Service {
	t.Helper()
	service, err := ledger.NewService(NewLedgerStore(db), func() time.Time { return time.Now().UTC() })
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	return service
}

func mustUserID(t *testing.T, raw string) identity.UserID {
	t.Helper()
	userID, err := identity.NewUserID(raw)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return userID
}
