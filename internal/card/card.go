// Package card saves and resolves shareable greeting cards.
package card

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMissingImage is returned by Save when the payload has no image.
	ErrMissingImage = errors.New("card image is required")
	// ErrNotFound means the store does not know the id. It does not prove the
	// card was never saved: backends are allowed to forget.
	ErrNotFound = errors.New("card not found")
	// ErrDuplicateID is returned by Store.Put for an id already present.
	ErrDuplicateID = errors.New("card id already exists")
)

// Record is one saved card. It is never modified after Save.
type Record struct {
	ID         string    `json:"id"`
	Image      string    `json:"image"`
	Recipient  string    `json:"recipient"`
	Sender     string    `json:"sender"`
	Greeting   string    `json:"greeting"`
	ShowSender bool      `json:"showSender"`
	Template   string    `json:"template"`
	CreatedAt  time.Time `json:"-"`
}

type recordJSON struct {
	ID         string `json:"id"`
	Image      string `json:"image"`
	Recipient  string `json:"recipient"`
	Sender     string `json:"sender"`
	Greeting   string `json:"greeting"`
	ShowSender bool   `json:"showSender"`
	Template   string `json:"template"`
	CreatedAt  int64  `json:"createdAt"`
}

// MarshalJSON encodes CreatedAt as unix milliseconds.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:         r.ID,
		Image:      r.Image,
		Recipient:  r.Recipient,
		Sender:     r.Sender,
		Greeting:   r.Greeting,
		ShowSender: r.ShowSender,
		Template:   r.Template,
		CreatedAt:  r.CreatedAt.UnixMilli(),
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Record{
		ID:         raw.ID,
		Image:      raw.Image,
		Recipient:  raw.Recipient,
		Sender:     raw.Sender,
		Greeting:   raw.Greeting,
		ShowSender: raw.ShowSender,
		Template:   raw.Template,
		CreatedAt:  time.UnixMilli(raw.CreatedAt),
	}
	return nil
}

// Payload is a save request. Empty strings and a nil ShowSender take the
// defaults.
type Payload struct {
	Image      string
	Recipient  string
	Sender     string
	Greeting   string
	ShowSender *bool
	Template   string
}

// Defaults are the values used for omitted payload fields.
type Defaults struct {
	Recipient string
	Sender    string
	Greeting  string
	Template  string
}

// DefaultTemplate is the card template used when none is chosen.
const DefaultTemplate = "1"

// ChineseDefaults are the stock defaults.
var ChineseDefaults = Defaults{
	Recipient: "你",
	Sender:    "好友",
	Greeting:  "马到成功，新春大吉！",
	Template:  DefaultTemplate,
}

// Apply fills a record from p, substituting defaults. ID and CreatedAt are
// left for the caller.
func (d Defaults) Apply(p Payload) Record {
	showSender := true
	if p.ShowSender != nil {
		showSender = *p.ShowSender
	}
	return Record{
		Image:      p.Image,
		Recipient:  orDefault(p.Recipient, d.Recipient),
		Sender:     orDefault(p.Sender, d.Sender),
		Greeting:   orDefault(p.Greeting, d.Greeting),
		ShowSender: showSender,
		Template:   orDefault(p.Template, orDefault(d.Template, DefaultTemplate)),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Store persists records. Implementations may lose records at any time
// (process restart, eviction, expiry) but must never return a record under
// an id it was not saved with.
type Store interface {
	// Put inserts rec, failing with ErrDuplicateID if rec.ID exists.
	Put(ctx context.Context, rec Record) error
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
}
