package gateway

import (
	"context"
	"encoding/json"

	"github.com/nerdneilsfield/inkwash-card/pkg/gemini"
)

// RESTModel calls the Gemini REST API directly, which keeps the raw reply
// body available for diagnostics.
type RESTModel struct {
	client *gemini.Client
}

func NewRESTModel(client *gemini.Client) *RESTModel {
	return &RESTModel{client: client}
}

func (m *RESTModel) Name() string { return "rest:" + m.client.Model() }

func (m *RESTModel) GenerateContent(ctx context.Context, req ModelRequest) (*ModelReply, error) {
	reply, err := m.client.GenerateContent(ctx, gemini.NewImageEditRequest(req.Image.MIMEType(), req.Image.Data, req.Prompt))
	if err != nil {
		return nil, err
	}

	out := &ModelReply{
		OK:           reply.OK(),
		StatusCode:   reply.StatusCode,
		ErrorMessage: reply.ErrorMessage(),
		Raw:          rawBody(reply.Body),
	}
	for _, p := range reply.Parts() {
		part := ReplyPart{Text: p.Text}
		if p.InlineData != nil {
			part.Image = &InlineImage{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		out.Parts = append(out.Parts, part)
	}
	return out, nil
}

// rawBody keeps JSON bodies as JSON and anything else as text.
func rawBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
