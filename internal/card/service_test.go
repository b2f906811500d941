package card

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mapStore struct {
	mu      sync.Mutex
	records map[string]Record
	putErr  error
}

func newMapStore() *mapStore { return &mapStore{records: make(map[string]Record)} }

func (m *mapStore) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if _, ok := m.records[rec.ID]; ok {
		return ErrDuplicateID
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mapStore) Get(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func boolPtr(b bool) *bool { return &b }

func fixedClock() time.Time { return time.UnixMilli(1767225600123) }

func TestSave_RequiresImage(t *testing.T) {
	svc := NewService(newMapStore(), nil)
	for _, img := range []string{"", "  "} {
		_, err := svc.Save(context.Background(), Payload{Image: img, Recipient: "Alice"})
		assert.ErrorIs(t, err, ErrMissingImage)
	}
}

func TestSave_AppliesDefaults(t *testing.T) {
	svc := NewService(newMapStore(), nil, WithClock(fixedClock))

	id, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,BBBB"})
	require.NoError(t, err)

	rec, err := svc.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Record{
		ID:         id,
		Image:      "data:image/png;base64,BBBB",
		Recipient:  "你",
		Sender:     "好友",
		Greeting:   "马到成功，新春大吉！",
		ShowSender: true,
		Template:   "1",
		CreatedAt:  fixedClock(),
	}, rec)
}

func TestSave_LoadReturnsSavedFields(t *testing.T) {
	svc := NewService(newMapStore(), nil, WithClock(fixedClock))

	payloads := []Payload{
		{Image: "data:image/png;base64,AAAA", Recipient: "妈妈", Sender: "小明", Greeting: "新年快乐", ShowSender: boolPtr(false), Template: "3"},
		{Image: "data:image/jpeg;base64,AAAA", ShowSender: boolPtr(true), Template: "2"},
		{Image: "data:image/png;base64,AAAA", Sender: "Bob"},
	}
	for _, p := range payloads {
		id, err := svc.Save(context.Background(), p)
		require.NoError(t, err)

		want := ChineseDefaults.Apply(p)
		want.ID = id
		want.CreatedAt = fixedClock()

		got, err := svc.Load(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSaveWith_CustomDefaults(t *testing.T) {
	en := Defaults{Recipient: "you", Sender: "a friend", Greeting: "Happy New Year!"}
	svc := NewService(newMapStore(), nil)

	id, err := svc.SaveWith(context.Background(), Payload{Image: "data:image/png;base64,AAAA"}, en)
	require.NoError(t, err)
	rec, err := svc.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "you", rec.Recipient)
	assert.Equal(t, "a friend", rec.Sender)
	assert.Equal(t, "Happy New Year!", rec.Greeting)
	assert.Equal(t, DefaultTemplate, rec.Template)
}

func TestSaveRecord_ReturnsStoredRecord(t *testing.T) {
	svc := NewService(newMapStore(), nil)
	en := Defaults{Recipient: "you", Sender: "a friend", Greeting: "Happy New Year!", Template: "3"}

	saved, err := svc.SaveRecord(context.Background(), Payload{Image: "data:image/png;base64,AAAA", Sender: "Bob"}, en)
	require.NoError(t, err)
	assert.Equal(t, "you", saved.Recipient)
	assert.Equal(t, "Bob", saved.Sender)

	loaded, err := svc.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, loaded, saved)

	_, err = svc.SaveRecord(context.Background(), Payload{}, en)
	assert.ErrorIs(t, err, ErrMissingImage)
}

func TestLoad_UnknownID(t *testing.T) {
	svc := NewService(newMapStore(), nil)
	_, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	for _, id := range []string{"", "card_1_deadbeef", "nope"} {
		_, err := svc.Load(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestSave_IDsNeverCollide(t *testing.T) {
	store := newMapStore()
	// Same millisecond for every save: only the random half separates ids.
	svc := NewService(store, nil, WithClock(fixedClock))

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, store.records, 10000)
}

func TestSave_RetriesOnDuplicateID(t *testing.T) {
	store := newMapStore()
	ids := []string{"card_1_a", "card_1_a", "card_1_b"}
	next := 0
	svc := NewService(store, nil, WithIDFunc(func(time.Time) string {
		id := ids[next]
		next++
		return id
	}))

	first, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	second, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,BBBB"})
	require.NoError(t, err)

	assert.Equal(t, "card_1_a", first)
	assert.Equal(t, "card_1_b", second)
}

func TestSave_GivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newMapStore()
	svc := NewService(store, nil, WithIDFunc(func(time.Time) string { return "card_1_same" }))

	_, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestSave_StoreError(t *testing.T) {
	store := newMapStore()
	store.putErr = errors.New("disk full")
	svc := NewService(store, nil)

	_, err := svc.Save(context.Background(), Payload{Image: "data:image/png;base64,AAAA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, ErrMissingImage)
}

func TestRecordJSON(t *testing.T) {
	rec := Record{
		ID: "card_1_a", Image: "data:image/png;base64,AAAA", Recipient: "你", Sender: "好友",
		Greeting: "hi", ShowSender: true, Template: "1", CreatedAt: fixedClock(),
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"createdAt":1767225600123`)
	assert.Contains(t, string(b), `"showSender":true`)

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rec, back)
}

func TestNewIDFormat(t *testing.T) {
	id := NewID(fixedClock())
	assert.Regexp(t, `^card_1767225600123_[0-9a-f]{16}$`, id)
	assert.True(t, LooksLikeID(id))
	assert.True(t, LooksLikeID(LocalID(fixedClock())))
	assert.False(t, LooksLikeID("../etc/passwd"))
	assert.False(t, LooksLikeID("card_ABC"))
}

func TestETag(t *testing.T) {
	rec := Record{ID: "card_1_a", Image: "data:image/png;base64,AAAA", ShowSender: true, CreatedAt: fixedClock()}
	a, err := ETag(rec)
	require.NoError(t, err)
	b, err := ETag(rec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^"[0-9a-f]{32}"$`, a)

	rec.ShowSender = false
	c, err := ETag(rec)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
