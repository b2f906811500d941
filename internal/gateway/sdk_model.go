package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// SDKModel calls Gemini through the official genai SDK.
type SDKModel struct {
	client *genai.Client
	model  string
}

type SDKOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

func NewSDKModel(ctx context.Context, opts SDKOptions) (*SDKModel, error) {
	if opts.APIKey == "" {
		return nil, ErrMisconfigured
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = opts.BaseURL
	}
	if opts.APIVersion != "" {
		cc.HTTPOptions.APIVersion = opts.APIVersion
	}
	if opts.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &SDKModel{client: client, model: opts.Model}, nil
}

func (m *SDKModel) Name() string { return "genai:" + m.model }

func (m *SDKModel) GenerateContent(ctx context.Context, req ModelRequest) (*ModelReply, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.ImageBytes, req.Image.MIMEType()),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		if apiErr, ok := asAPIError(err); ok {
			return &ModelReply{
				StatusCode:   apiErr.Code,
				ErrorMessage: apiErr.Message,
				Raw:          apiErr,
			}, nil
		}
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	reply := &ModelReply{OK: true, StatusCode: http.StatusOK, Raw: resp}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p == nil {
				continue
			}
			part := ReplyPart{Text: p.Text}
			if p.InlineData != nil {
				part.Image = &InlineImage{
					MIMEType: p.InlineData.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
				}
			}
			reply.Parts = append(reply.Parts, part)
		}
	}
	return reply, nil
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
