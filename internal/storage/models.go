package storage

import (
	"time"

	"github.com/nerdneilsfield/inkwash-card/internal/card"
)

// CardModel is the table row for a card. Timestamps are unix milliseconds so
// a record reads back exactly as it was saved.
type CardModel struct {
	ID         string `gorm:"primaryKey;size:64" db:"id" json:"id"`
	Image      string `gorm:"type:text;not null" db:"image" json:"image"`
	Recipient  string `gorm:"size:255;not null" db:"recipient" json:"recipient"`
	Sender     string `gorm:"size:255;not null" db:"sender" json:"sender"`
	Greeting   string `gorm:"type:text;not null" db:"greeting" json:"greeting"`
	ShowSender bool   `gorm:"not null" db:"show_sender" json:"showSender"`
	Template   string `gorm:"size:32;not null" db:"template" json:"template"`
	CreatedAt  int64  `gorm:"autoCreateTime:false;not null" db:"created_at" json:"createdAt"`
	// 0 表示永不过期
	ExpiresAt int64 `gorm:"index;not null;default:0" db:"expires_at" json:"expiresAt"`
}

func (CardModel) TableName() string { return "cards" }

func toModel(rec card.Record, ttl time.Duration) CardModel {
	m := CardModel{
		ID:         rec.ID,
		Image:      rec.Image,
		Recipient:  rec.Recipient,
		Sender:     rec.Sender,
		Greeting:   rec.Greeting,
		ShowSender: rec.ShowSender,
		Template:   rec.Template,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
	}
	if ttl > 0 {
		m.ExpiresAt = rec.CreatedAt.Add(ttl).UnixMilli()
	}
	return m
}

func (m CardModel) toRecord() card.Record {
	return card.Record{
		ID:         m.ID,
		Image:      m.Image,
		Recipient:  m.Recipient,
		Sender:     m.Sender,
		Greeting:   m.Greeting,
		ShowSender: m.ShowSender,
		Template:   m.Template,
		CreatedAt:  time.UnixMilli(m.CreatedAt),
	}
}

func (m CardModel) expired(now time.Time) bool {
	return m.ExpiresAt != 0 && now.UnixMilli() >= m.ExpiresAt
}
