package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps in-flight and processed signatures in two bounded LRUs whose entries expire
// after ttl. Only newer processed signatures can evict a processed one. It only deduplicates
// within one process.
type MemoryStore struct {
	mu        sync.Mutex
	inFlight  *expirable.LRU[string, time.Time]
	processed *expirable.LRU[string, time.Time]
	now       func() time.Time
}

// NewMemoryStore builds a MemoryStore holding at most capacity signatures of each kind.
func NewMemoryStore(ttl time.Duration, capacity int) *MemoryStore {
	return &MemoryStore{
		inFlight:  expirable.NewLRU[string, time.Time](capacity, nil, ttl),
		processed: expirable.NewLRU[string, time.Time](capacity, nil, ttl),
		now:       time.Now,
	}
}

// Admit implements Store.
func (store *MemoryStore) Admit(_ context.Context, signature string) (Decision, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.processed.Get(signature); ok {
		return Rejected, nil
	}
	if !store.inFlight.Contains(signature) {
		store.inFlight.Add(signature, store.now())
	}
	return Admitted, nil
}

// MarkProcessed implements Store. An already processed signature keeps its original expiry.
func (store *MemoryStore) MarkProcessed(_ context.Context, signature string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.inFlight.Remove(signature)
	if store.processed.Contains(signature) {
		return nil
	}
	store.processed.Add(signature, store.now())
	return nil
}

// Len reports how many live records are held.
func (store *MemoryStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.inFlight.Len() + store.processed.Len()
}
