package gateway

import (
	"context"

	"github.com/nerdneilsfield/inkwash-card/internal/datauri"
)

// ModelRequest is what the gateway hands to an image model.
type ModelRequest struct {
	Image datauri.DataURI
	// ImageBytes is Image decoded.
	ImageBytes []byte
	Prompt     string
}

// ReplyPart is one content part of a model reply: text, inline image, or
// neither (parts the gateway does not understand).
type ReplyPart struct {
	Text  string
	Image *InlineImage
}

type InlineImage struct {
	MIMEType string
	// Data is base64 text.
	Data string
}

// ModelReply is a reply the model service actually sent, successful or not.
type ModelReply struct {
	OK           bool
	StatusCode   int
	ErrorMessage string
	Parts        []ReplyPart
	// Raw is the decoded reply body for diagnostics.
	Raw interface{}
}

// Model is an external generative image service. Implementations return an
// error only when no reply was received.
type Model interface {
	GenerateContent(ctx context.Context, req ModelRequest) (*ModelReply, error)
	Name() string
}
