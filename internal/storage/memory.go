package storage

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/nerdneilsfield/inkwash-card/internal/card"
)

type memoryEntry struct {
	rec       card.Record
	expiresAt time.Time
	elem      *list.Element
}

// MemoryStore keeps cards in process memory. Everything is lost on restart
// and other instances never see it. Entries past the TTL read as missing;
// beyond maxEntries the oldest card is evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	order      *list.List // 按插入顺序，最旧的在前
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store. ttl <= 0 keeps cards forever and
// maxEntries <= 0 means unbounded.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, rec card.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[rec.ID]; ok {
		if !s.expired(e) {
			return card.ErrDuplicateID
		}
		s.removeLocked(rec.ID)
	}

	e := &memoryEntry{rec: rec}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	e.elem = s.order.PushBack(rec.ID)
	s.entries[rec.ID] = e

	for s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		oldest := s.order.Front()
		s.removeLocked(oldest.Value.(string))
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (card.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return card.Record{}, card.ErrNotFound
	}
	return e.rec, nil
}

// Len returns the number of entries held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *MemoryStore) removeLocked(id string) {
	if e, ok := s.entries[id]; ok {
		s.order.Remove(e.elem)
		delete(s.entries, id)
	}
}

// PurgeExpired drops expired entries. With a fixed TTL they sit at the front
// of the insertion order.
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		id := elem.Value.(string)
		if !s.expired(s.entries[id]) {
			break
		}
		s.removeLocked(id)
		n++
		elem = next
	}
	return n, nil
}
