package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_PurgeExpired(t *testing.T) {
	s := NewMemoryStore(time.Minute, 0)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleRecord("card_1_a")))
	require.NoError(t, s.Put(ctx, sampleRecord("card_1_b")))
	now = now.Add(30 * time.Second)
	require.NoError(t, s.Put(ctx, sampleRecord("card_1_c")))

	now = now.Add(45 * time.Second)
	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, s.Len())

	_, err = s.Get(ctx, "card_1_c")
	assert.NoError(t, err)
}

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeExpired(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestRunPurger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &countingPurger{}

	done := make(chan error, 1)
	go func() { done <- RunPurger(ctx, p, 5*time.Millisecond, zap.NewNop()) }()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

var (
	_ Purger = (*MemoryStore)(nil)
	_ Purger = (*GormCardStore)(nil)
)
