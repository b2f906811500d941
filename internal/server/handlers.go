package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nerdneilsfield/inkwash-card/internal/card"
	"github.com/nerdneilsfield/inkwash-card/internal/gateway"
	"go.uber.org/zap"
)

type generateRequest struct {
	Image string `json:"image"`
	Style string `json:"style" binding:"max=64"`
}

type saveCardRequest struct {
	Image      string `json:"image" binding:"omitempty,imagedata"`
	Recipient  string `json:"recipient" binding:"max=100"`
	Sender     string `json:"sender" binding:"max=100"`
	Greeting   string `json:"greeting" binding:"max=500"`
	ShowSender *bool  `json:"showSender"`
	Template   string `json:"template" binding:"max=32"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !emptyBody(err) {
		s.badRequest(c, err)
		return
	}

	result, err := s.gateway.Generate(c.Request.Context(), req.Image, req.Style)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrMisconfigured):
			s.logger.Error("Generation requested but no api key is configured")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": s.t(c, "error_api_key")})
		case strings.TrimSpace(req.Image) == "":
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": s.t(c, "error_missing_image")})
		case errors.Is(err, gateway.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": s.t(c, "error_invalid_request"), "details": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": s.t(c, "error_generation_failed_reason", "Reason", err.Error())})
		}
		return
	}

	switch r := result.(type) {
	case gateway.Success:
		c.JSON(http.StatusOK, gin.H{"success": true, "image": r.Image})
	case gateway.TextOnly:
		c.JSON(http.StatusOK, gin.H{"success": false, "error": s.t(c, "error_no_image_text"), "message": r.Message})
	case gateway.Failure:
		c.JSON(http.StatusInternalServerError, s.failureBody(c, r))
	default:
		s.logger.Error("Unexpected generation result", zap.String("type", fmt.Sprintf("%T", result)))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": s.t(c, "error_generation_failed")})
	}
}

func (s *Server) failureBody(c *gin.Context, f gateway.Failure) gin.H {
	var msg string
	switch f.Kind {
	case gateway.FailureUpstream:
		msg = f.Reason
		if msg == "" {
			msg = s.t(c, "error_generation_failed")
		}
	case gateway.FailureNoValidResponse:
		msg = s.t(c, "error_no_valid_response")
	default:
		msg = s.t(c, "error_generation_failed_reason", "Reason", f.Reason)
	}

	body := gin.H{"success": false, "error": msg}
	if f.Details != nil {
		body["details"] = f.Details
	}
	return body
}

func (s *Server) handleSaveCard(c *gin.Context) {
	var req saveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil && !emptyBody(err) {
		s.badRequest(c, err)
		return
	}

	lang := c.GetString(langKey)
	defaults := card.Defaults{
		Recipient: s.i18n.T(lang, "card_default_recipient"),
		Sender:    s.i18n.T(lang, "card_default_sender"),
		Greeting:  s.i18n.T(lang, "card_default_greeting"),
		Template:  s.cards.Defaults().Template,
	}

	rec, err := s.cards.SaveRecord(c.Request.Context(), card.Payload{
		Image:      req.Image,
		Recipient:  req.Recipient,
		Sender:     req.Sender,
		Greeting:   req.Greeting,
		ShowSender: req.ShowSender,
		Template:   req.Template,
	}, defaults)
	if err != nil {
		if errors.Is(err, card.ErrMissingImage) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": s.t(c, "error_card_missing_image")})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": s.t(c, "error_save_failed", "Reason", err.Error())})
		return
	}

	// card 是实际存下的记录，客户端据此保留本地副本
	body := gin.H{"success": true, "cardId": rec.ID, "card": rec}
	if s.opts.PublicBaseURL != "" {
		body["shareUrl"] = shareURL(s.opts.PublicBaseURL, rec.ID)
	}
	c.JSON(http.StatusOK, body)
}

func shareURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/card.html?id=" + url.QueryEscape(id)
}

func (s *Server) handleGetCard(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": s.t(c, "error_card_missing_id")})
		return
	}
	if !card.LooksLikeID(id) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": s.t(c, "error_card_not_found")})
		return
	}

	rec, err := s.cards.Load(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, card.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": s.t(c, "error_card_not_found")})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": s.t(c, "error_load_failed", "Reason", err.Error())})
		return
	}

	c.Header("Vary", "Accept-Language")
	if etag, err := card.ETag(rec); err == nil {
		c.Header("ETag", etag)
		c.Header("Cache-Control", "private, no-cache")
		if etagMatches(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	} else {
		s.logger.Warn("Failed to compute card etag", zap.String("card_id", id), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card": rec, "title": s.cardTitle(c, rec)})
}

func (s *Server) cardTitle(c *gin.Context, rec card.Record) string {
	if rec.ShowSender {
		return s.t(c, "card_title_sender", "Sender", rec.Sender)
	}
	return s.t(c, "card_title_anonymous")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "generator": s.gateway.Configured()})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": s.t(c, "error_invalid_request"), "details": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": s.t(c, "error_invalid_request"), "details": bindErrorDetails(err)})
}

// etagMatches implements the If-None-Match list comparison, ignoring weak
// validators.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
