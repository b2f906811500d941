package inkcard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Card is a saved greeting card as the service returns it.
type Card struct {
	ID         string `json:"id,omitempty"`
	Image      string `json:"image"`
	Recipient  string `json:"recipient"`
	Sender     string `json:"sender"`
	Greeting   string `json:"greeting"`
	ShowSender bool   `json:"showSender"`
	Template   string `json:"template"`
	CreatedAt  int64  `json:"createdAt"` // unix ms
}

// CardInput is what the caller fills in. Empty fields take defaults.
type CardInput struct {
	Image      string `json:"image"`
	Recipient  string `json:"recipient,omitempty"`
	Sender     string `json:"sender,omitempty"`
	Greeting   string `json:"greeting,omitempty"`
	ShowSender *bool  `json:"showSender,omitempty"`
	Template   string `json:"template,omitempty"`
}

type Defaults struct {
	Recipient string
	Sender    string
	Greeting  string
	Template  string
}

var ChineseDefaults = Defaults{
	Recipient: "你",
	Sender:    "好友",
	Greeting:  "马到成功，新春大吉！",
	Template:  "1",
}

var EnglishDefaults = Defaults{
	Recipient: "you",
	Sender:    "a friend",
	Greeting:  "Happy New Year, and may every step bring success!",
	Template:  "1",
}

// DefaultsFor picks the defaults matching an Accept-Language value. Only
// English and Chinese are known; anything else gets Chinese.
func DefaultsFor(acceptLanguage string) Defaults {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case tag == "en" || strings.HasPrefix(tag, "en-"):
			return EnglishDefaults
		case tag == "zh" || strings.HasPrefix(tag, "zh-"):
			return ChineseDefaults
		}
	}
	return ChineseDefaults
}

func (d Defaults) apply(in CardInput) Card {
	show := true
	if in.ShowSender != nil {
		show = *in.ShowSender
	}
	return Card{
		Image:      in.Image,
		Recipient:  orDefault(in.Recipient, d.Recipient),
		Sender:     orDefault(in.Sender, d.Sender),
		Greeting:   orDefault(in.Greeting, d.Greeting),
		ShowSender: show,
		Template:   orDefault(in.Template, d.Template),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

type SaveResult struct {
	ID string
	// Local is set when the server save failed and the card only exists in
	// the local store. ServerErr then holds the cause.
	Local     bool
	ServerErr error
}

// SaveCard stores the card on the server. If that fails and a local store is
// configured, the card is kept locally under a freshly minted "card_<ms>" id
// and the call still succeeds.
func (c *Client) SaveCard(ctx context.Context, in CardInput) (*SaveResult, error) {
	if strings.TrimSpace(in.Image) == "" {
		return nil, ErrMissingImage
	}

	id, saved, serverErr := c.saveRemote(ctx, in)
	if serverErr == nil {
		if c.local != nil {
			// 本地副本以服务端实际保存的记录为准
			var kept Card
			if saved != nil && saved.ID == id {
				kept = *saved
			} else {
				kept = c.defaults.apply(in)
				kept.ID = id
				kept.CreatedAt = c.now().UnixMilli()
			}
			if err := c.local.Put(id, kept); err != nil {
				c.logger.Warn("Failed to keep local copy of card", zap.String("card_id", id), zap.Error(err))
			}
		}
		return &SaveResult{ID: id}, nil
	}

	if c.local == nil {
		return nil, serverErr
	}

	c.logger.Warn("Saving card on server failed, keeping it locally", zap.Error(serverErr))
	local := c.defaults.apply(in)
	local.CreatedAt = c.now().UnixMilli()
	id, err := c.mintLocalID()
	if err != nil {
		return nil, errors.Join(serverErr, err)
	}
	local.ID = id
	if err := c.local.Put(id, local); err != nil {
		return nil, errors.Join(serverErr, fmt.Errorf("inkcard: local save failed: %w", err))
	}
	return &SaveResult{ID: id, Local: true, ServerErr: serverErr}, nil
}

func (c *Client) saveRemote(ctx context.Context, in CardInput) (string, *Card, error) {
	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&env).
		SetError(&env).
		Post("/api/save-card")
	if err != nil {
		return "", nil, fmt.Errorf("inkcard: save request failed: %w", err)
	}
	if resp.IsError() || !env.Success || env.CardID == "" {
		return "", nil, &APIError{StatusCode: resp.StatusCode(), Message: env.Error, Details: env.Details}
	}
	return env.CardID, env.Card, nil
}

// mintLocalID returns "card_<ms>", moving forward a millisecond at a time
// past ids the local store already holds.
func (c *Client) mintLocalID() (string, error) {
	ms := c.now().UnixMilli()
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("card_%d", ms+int64(i))
		_, found, err := c.local.Get(id)
		if err != nil {
			return "", err
		}
		if !found {
			return id, nil
		}
	}
	return "", errors.New("inkcard: could not mint a free local card id")
}

type LoadedCard struct {
	Card  Card
	Title string
	// Local is set when the card came from the local store.
	Local bool
}

// LoadCard asks the server first and falls back to the local store. A miss
// on both is ErrCardMissing.
func (c *Client) LoadCard(ctx context.Context, id string) (*LoadedCard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}

	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", id).
		SetResult(&env).
		SetError(&env).
		Get("/api/get-card")
	switch {
	case err != nil:
		c.logger.Debug("Loading card from server failed", zap.String("card_id", id), zap.Error(err))
	case !resp.IsError() && env.Success && env.Card != nil:
		title := env.Title
		if title == "" {
			title = Title(*env.Card)
		}
		return &LoadedCard{Card: *env.Card, Title: title}, nil
	default:
		c.logger.Debug("Card not on server, trying local store", zap.String("card_id", id), zap.Int("status", resp.StatusCode()))
	}

	if c.local != nil {
		card, found, err := c.local.Get(id)
		if err != nil {
			return nil, fmt.Errorf("inkcard: local load failed: %w", err)
		}
		if found {
			return &LoadedCard{Card: card, Title: Title(card), Local: true}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCardMissing, id)
}

// ShareURL is the link a recipient opens.
func (c *Client) ShareURL(id string) string {
	return ShareURL(c.baseURL, id)
}

func ShareURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/card.html?id=" + url.QueryEscape(id)
}

// Title is the card heading shown to the recipient.
func Title(card Card) string {
	if card.ShowSender {
		return fmt.Sprintf("有一张来自 %s 的贺卡待签收", card.Sender)
	}
	return "有一张神秘贺卡待签收"
}

// CreatedTime converts CreatedAt to a time.Time.
func (c Card) CreatedTime() time.Time {
	return time.UnixMilli(c.CreatedAt)
}
