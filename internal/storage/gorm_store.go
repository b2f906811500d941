package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerdneilsfield/inkwash-card/internal/card"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCardStore 使用 GORM 存储贺卡
type GormCardStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewGormCardStore(db *gorm.DB, ttl time.Duration) *GormCardStore {
	return &GormCardStore{db: db, ttl: ttl, now: time.Now}
}

// Put 插入新贺卡；id 已存在时返回 card.ErrDuplicateID
func (s *GormCardStore) Put(ctx context.Context, rec card.Record) error {
	m := toModel(rec, s.ttl)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if result.Error != nil {
		return fmt.Errorf("failed to insert card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return card.ErrDuplicateID
	}
	return nil
}

func (s *GormCardStore) Get(ctx context.Context, id string) (card.Record, error) {
	var m CardModel
	result := s.db.WithContext(ctx).First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return card.Record{}, card.ErrNotFound
		}
		zap.L().Error("Failed to get card from DB", zap.String("card_id", id), zap.Error(result.Error))
		return card.Record{}, fmt.Errorf("failed to query card: %w", result.Error)
	}
	if m.expired(s.now()) {
		return card.Record{}, card.ErrNotFound
	}
	return m.toRecord(), nil
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (s *GormCardStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <> 0 AND expires_at <= ?", s.now().UnixMilli()).
		Delete(&CardModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired cards: %w", result.Error)
	}
	return result.RowsAffected, nil
}
