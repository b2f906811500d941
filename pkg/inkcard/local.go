package inkcard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// LocalStore keeps cards on the client side.
type LocalStore interface {
	Put(id string, card Card) error
	// Get reports found=false for unknown ids.
	Get(id string) (card Card, found bool, err error)
}

type MemoryLocalStore struct {
	mu    sync.RWMutex
	cards map[string]Card
}

func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{cards: make(map[string]Card)}
}

func (s *MemoryLocalStore) Put(id string, card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[id] = card
	return nil
}

func (s *MemoryLocalStore) Get(id string) (Card, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	return card, ok, nil
}

var localIDRe = regexp.MustCompile(`^card_[0-9a-z_]{1,59}$`)

// DirLocalStore writes one JSON file per card into a directory.
type DirLocalStore struct {
	dir string
	mu  sync.Mutex
}

func NewDirLocalStore(dir string) (*DirLocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("inkcard: failed to create local store dir: %w", err)
	}
	return &DirLocalStore{dir: dir}, nil
}

func (s *DirLocalStore) path(id string) (string, error) {
	if !localIDRe.MatchString(id) {
		return "", fmt.Errorf("inkcard: invalid card id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *DirLocalStore) Put(id string, card Card) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(card)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *DirLocalStore) Get(id string) (Card, bool, error) {
	path, err := s.path(id)
	if err != nil {
		// an id we could never have written is simply unknown
		return Card{}, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Card{}, false, nil
		}
		return Card{}, false, err
	}
	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return Card{}, false, fmt.Errorf("inkcard: corrupt local card %s: %w", id, err)
	}
	return card, true, nil
}
