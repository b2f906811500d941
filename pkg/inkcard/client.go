// Package inkcard is a Go client for the ink wash greeting card service. It
// mirrors what the web front end does: generate, save with a local fallback,
// and load with a local fallback.
package inkcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultTimeout = 150 * time.Second

var (
	ErrMissingImage = errors.New("inkcard: image is required")
	ErrMissingID    = errors.New("inkcard: card id is required")
	// ErrCardMissing means neither the server nor the local store has the card.
	ErrCardMissing = errors.New("inkcard: card not found")
)

// APIError is a non-success envelope returned by the service.
type APIError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inkcard: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("inkcard: %s (status %d)", e.Message, e.StatusCode)
}

// NoImageError is returned by Generate when the model answered with text only.
type NoImageError struct {
	Reason string
	Text   string
}

func (e *NoImageError) Error() string {
	return fmt.Sprintf("inkcard: %s: %s", e.Reason, e.Text)
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Image   string          `json:"image,omitempty"`
	CardID  string          `json:"cardId,omitempty"`
	Card    *Card           `json:"card,omitempty"`
	Title   string          `json:"title,omitempty"`
}

type Client struct {
	http        *resty.Client
	baseURL     string
	local       LocalStore
	defaults    Defaults
	defaultsSet bool
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Client)

// WithLocalStore enables the local fallback for SaveCard and LoadCard.
func WithLocalStore(s LocalStore) Option {
	return func(c *Client) { c.local = s }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLanguage sets Accept-Language, which picks the language of error
// messages and server-side card defaults. Local-only cards follow it too
// unless WithDefaults is given.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.http.SetHeader("Accept-Language", lang)
		if !c.defaultsSet {
			c.defaults = DefaultsFor(lang)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDefaults replaces the defaults applied to cards saved only locally.
func WithDefaults(d Defaults) Option {
	return func(c *Client) {
		c.defaults = d
		c.defaultsSet = true
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Content-Type", "application/json"),
		baseURL:  baseURL,
		defaults: ChineseDefaults,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Generate turns a photo data URI into an ink wash painting and returns it as
// a data URI. A text-only reply yields *NoImageError, any other failure an
// *APIError or a transport error.
func (c *Client) Generate(ctx context.Context, image, style string) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", ErrMissingImage
	}

	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"image": image, "style": style}).
		SetResult(&env).
		SetError(&env).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("inkcard: generate request failed: %w", err)
	}

	if env.Success && env.Image != "" {
		return env.Image, nil
	}
	if !resp.IsError() && env.Message != "" {
		return "", &NoImageError{Reason: env.Error, Text: env.Message}
	}
	return "", &APIError{StatusCode: resp.StatusCode(), Message: env.Error, Details: env.Details}
}
