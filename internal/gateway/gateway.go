// Package gateway turns a photo plus a style id into an ink wash painting by
// calling an external image model, and normalizes the model's reply.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerdneilsfield/inkwash-card/internal/datauri"
	"github.com/nerdneilsfield/inkwash-card/internal/style"
	"go.uber.org/zap"
)

type Gateway struct {
	model  Model
	styles *style.Table
	logger *zap.Logger
}

// New creates a Gateway. A nil model is allowed: every Generate call with an
// image then fails with ErrMisconfigured.
func New(model Model, styles *style.Table, logger *zap.Logger) *Gateway {
	if styles == nil {
		styles = style.MustDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{model: model, styles: styles, logger: logger}
}

func (g *Gateway) Configured() bool { return g.model != nil }

func (g *Gateway) Styles() *style.Table { return g.styles }

// Generate performs exactly one model call. Input and configuration problems
// are returned as errors (ErrInvalidRequest, ErrMisconfigured); everything
// that happens once the call is attempted is reported through Result.
func (g *Gateway) Generate(ctx context.Context, image, styleID string) (Result, error) {
	if strings.TrimSpace(image) == "" {
		return nil, fmt.Errorf("%w: no image supplied", ErrInvalidRequest)
	}
	if g.model == nil {
		return nil, ErrMisconfigured
	}

	src, err := datauri.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	raw, err := src.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	prompt, found := g.styles.Prompt(styleID)
	if !found {
		g.logger.Debug("Unknown style, using default", zap.String("style", styleID), zap.String("default", g.styles.DefaultID()))
	}

	logger := g.logger.With(
		zap.String("model", g.model.Name()),
		zap.String("style", g.styles.Resolve(styleID)),
		zap.String("mime_type", src.MIMEType()),
		zap.Int("image_bytes", len(raw)),
	)
	logger.Info("Calling image model...")

	start := time.Now()
	reply, err := g.model.GenerateContent(ctx, ModelRequest{Image: src, ImageBytes: raw, Prompt: prompt})
	if err != nil {
		logger.Error("Image model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Failure{Kind: FailureTransport, Reason: err.Error()}, nil
	}

	result := Interpret(reply)
	logger.Info("Image model replied",
		zap.Int("status", reply.StatusCode),
		zap.String("outcome", outcome(result)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Interpret applies the reply precedence: a non-success status is a Failure;
// otherwise the first inline image wins, then the first text part; a reply
// with neither is a Failure.
func Interpret(reply *ModelReply) Result {
	if reply == nil {
		return Failure{Kind: FailureNoValidResponse, Reason: ReasonNoValidResponse}
	}
	if !reply.OK {
		return Failure{
			Kind:       FailureUpstream,
			Reason:     reply.ErrorMessage,
			StatusCode: reply.StatusCode,
			Details:    reply.Raw,
		}
	}

	for _, part := range reply.Parts {
		if part.Image != nil {
			return Success{Image: datauri.Encode(part.Image.MIMEType, part.Image.Data)}
		}
	}
	for _, part := range reply.Parts {
		if part.Text != "" {
			return TextOnly{Message: part.Text}
		}
	}

	return Failure{
		Kind:       FailureNoValidResponse,
		Reason:     ReasonNoValidResponse,
		StatusCode: reply.StatusCode,
		Details:    reply.Raw,
	}
}

func outcome(r Result) string {
	switch v := r.(type) {
	case Success:
		return "image"
	case TextOnly:
		return "text_only"
	case Failure:
		return "failure:" + v.Kind.String()
	default:
		return "unknown"
	}
}
