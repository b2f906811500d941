package card

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxIDAttempts bounds how often Save re-mints an id after ErrDuplicateID.
const maxIDAttempts = 3

type Service struct {
	store    Store
	defaults Defaults
	newID    func(time.Time) string
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Service)

func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithIDFunc replaces NewID, mainly for tests.
func WithIDFunc(f func(time.Time) string) Option {
	return func(s *Service) { s.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		defaults: ChineseDefaults,
		newID:    NewID,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Defaults() Defaults { return s.defaults }

// Save stores p with the service defaults and returns the new card id.
func (s *Service) Save(ctx context.Context, p Payload) (string, error) {
	return s.SaveWith(ctx, p, s.defaults)
}

// SaveWith stores p, filling omitted fields from d.
func (s *Service) SaveWith(ctx context.Context, p Payload, d Defaults) (string, error) {
	rec, err := s.SaveRecord(ctx, p, d)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// SaveRecord is SaveWith returning the record exactly as stored.
func (s *Service) SaveRecord(ctx context.Context, p Payload, d Defaults) (Record, error) {
	if strings.TrimSpace(p.Image) == "" {
		return Record{}, ErrMissingImage
	}

	rec := d.Apply(p)
	// 毫秒精度，与存储后端保持一致
	rec.CreatedAt = time.UnixMilli(s.now().UnixMilli())

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		rec.ID = s.newID(rec.CreatedAt)
		err := s.store.Put(ctx, rec)
		if err == nil {
			s.logger.Info("Card saved",
				zap.String("card_id", rec.ID),
				zap.String("template", rec.Template),
				zap.Int("image_len", len(rec.Image)),
			)
			return rec, nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			s.logger.Error("Failed to save card", zap.String("card_id", rec.ID), zap.Error(err))
			return Record{}, fmt.Errorf("failed to save card: %w", err)
		}
		s.logger.Warn("Card id collision, minting a new one", zap.String("card_id", rec.ID), zap.Int("attempt", attempt))
	}
	return Record{}, fmt.Errorf("failed to save card: %w after %d attempts", ErrDuplicateID, maxIDAttempts)
}

// Load returns the record saved under id, or ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("Card not found", zap.String("card_id", id))
			return Record{}, ErrNotFound
		}
		s.logger.Error("Failed to load card", zap.String("card_id", id), zap.Error(err))
		return Record{}, fmt.Errorf("failed to load card: %w", err)
	}
	return rec, nil
}
