package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// --- Request/Response Structs ---

type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"` // "TEXT", "IMAGE"
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part carries either text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64 encoded inline data.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// UnmarshalJSON accepts both the camelCase and the snake_case spelling the
// API has used for inline data.
func (p *Part) UnmarshalJSON(b []byte) error {
	var raw struct {
		Text            string `json:"text"`
		InlineData      *Blob  `json:"inlineData"`
		InlineDataSnake *Blob  `json:"inline_data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Text = raw.Text
	p.InlineData = raw.InlineData
	if p.InlineData == nil {
		p.InlineData = raw.InlineDataSnake
	}
	return nil
}

func (bl *Blob) UnmarshalJSON(b []byte) error {
	var raw struct {
		MIMEType      string `json:"mimeType"`
		MIMETypeSnake string `json:"mime_type"`
		Data          string `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	bl.MIMEType = raw.MIMEType
	if bl.MIMEType == "" {
		bl.MIMEType = raw.MIMETypeSnake
	}
	bl.Data = raw.Data
	return nil
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Reply is one generateContent exchange. Response is nil when the body was
// not valid JSON.
type Reply struct {
	StatusCode int
	Body       []byte
	Response   *GenerateContentResponse
}

func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrorMessage returns the service's error message, if it sent one.
func (r *Reply) ErrorMessage() string {
	if r.Response != nil && r.Response.Error != nil {
		return r.Response.Error.Message
	}
	return ""
}

// Parts returns the parts of the first candidate.
func (r *Reply) Parts() []Part {
	if r.Response == nil || len(r.Response.Candidates) == 0 || r.Response.Candidates[0].Content == nil {
		return nil
	}
	return r.Response.Candidates[0].Content.Parts
}

// NewImageEditRequest builds a request carrying one image and an instruction,
// asking for both text and image output.
func NewImageEditRequest(mimeType, b64Image, prompt string) GenerateContentRequest {
	return GenerateContentRequest{
		Contents: []Content{
			{
				Parts: []Part{
					{InlineData: &Blob{MIMEType: mimeType, Data: b64Image}},
					{Text: prompt},
				},
			},
		},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
}

// --- API Call Functions ---

// GenerateContent performs a single generateContent call. A non-nil error
// means no reply was received; any HTTP reply, failed or not, is returned.
func (c *Client) GenerateContent(ctx context.Context, payload GenerateContentRequest) (*Reply, error) {
	endpoint, err := c.generateURL()
	if err != nil {
		return nil, fmt.Errorf("failed to construct generate URL: %w", err)
	}

	c.logger.Debug("Calling generateContent", zap.String("model", c.model), zap.Int("parts", countParts(payload)))
	raw, err := c.doPostRequest(ctx, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("generateContent failed: %w", err)
	}

	reply := &Reply{StatusCode: raw.StatusCode, Body: raw.Body}
	var parsed GenerateContentResponse
	if err := json.Unmarshal(raw.Body, &parsed); err != nil {
		c.logger.Warn("failed to unmarshal generateContent response", zap.Error(err), zap.Int("status", raw.StatusCode))
	} else {
		reply.Response = &parsed
	}

	c.logger.Debug("generateContent response", zap.Int("status", reply.StatusCode), zap.Int("parts", len(reply.Parts())))
	return reply, nil
}

func countParts(req GenerateContentRequest) int {
	n := 0
	for _, c := range req.Contents {
		n += len(c.Parts)
	}
	return n
}
