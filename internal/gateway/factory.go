package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nerdneilsfield/inkwash-card/pkg/gemini"
	"go.uber.org/zap"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

type ModelOptions struct {
	Backend    string
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

// NewModel builds the configured model backend. It returns ErrMisconfigured
// when no API key is set, so callers can still start without one.
func NewModel(ctx context.Context, opts ModelOptions, logger *zap.Logger) (Model, error) {
	if opts.APIKey == "" {
		return nil, ErrMisconfigured
	}
	if opts.Model == "" {
		opts.Model = gemini.DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = gemini.DefaultTimeout
	}

	switch opts.Backend {
	case "", BackendREST:
		client, err := gemini.NewClient(opts.APIKey, logger,
			gemini.WithBaseURL(opts.BaseURL),
			gemini.WithAPIVersion(opts.APIVersion),
			gemini.WithModel(opts.Model),
			gemini.WithHTTPClient(newHTTPClient(opts.Timeout)),
		)
		if err != nil {
			return nil, err
		}
		return NewRESTModel(client), nil
	case BackendSDK:
		m, err := NewSDKModel(ctx, SDKOptions{
			APIKey:     opts.APIKey,
			Model:      opts.Model,
			BaseURL:    opts.BaseURL,
			APIVersion: opts.APIVersion,
			Timeout:    opts.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", opts.Backend)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
