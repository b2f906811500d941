package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/nerdneilsfield/inkwash-card/internal/style"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply *ModelReply
	err   error
	calls []ModelRequest
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) GenerateContent(ctx context.Context, req ModelRequest) (*ModelReply, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func okReply(parts ...ReplyPart) *ModelReply {
	return &ModelReply{OK: true, StatusCode: 200, Parts: parts}
}

func TestGenerate_MissingImage(t *testing.T) {
	g := New(&fakeModel{}, nil, nil)
	for _, img := range []string{"", "   "} {
		_, err := g.Generate(context.Background(), img, "cute")
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestGenerate_ImageCheckedBeforeCredential(t *testing.T) {
	g := New(nil, nil, nil)
	assert.False(t, g.Configured())

	_, err := g.Generate(context.Background(), "", "cute")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = g.Generate(context.Background(), "data:image/png;base64,AAAA", "cute")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestGenerate_RejectsUnsupportedImages(t *testing.T) {
	model := &fakeModel{reply: okReply()}
	g := New(model, nil, nil)

	for _, img := range []string{
		"AAAA",
		"data:image/gif;base64,R0lGOD",
		"data:image/png;base64,@@@",
	} {
		_, err := g.Generate(context.Background(), img, "cute")
		assert.ErrorIs(t, err, ErrInvalidRequest, img)
	}
	assert.Empty(t, model.calls, "invalid input must not reach the model")
}

func TestGenerate_PromptSelection(t *testing.T) {
	table := style.MustDefault()
	cases := map[string]string{
		style.Elegant: style.Elegant,
		style.Cute:    style.Cute,
		"":            style.DefaultID,
		"watercolor":  style.DefaultID,
	}
	for id, want := range cases {
		model := &fakeModel{reply: okReply(ReplyPart{Text: "hi"})}
		g := New(model, table, nil)
		_, err := g.Generate(context.Background(), "data:image/jpeg;base64,AAAA", id)
		require.NoError(t, err)
		require.Len(t, model.calls, 1)

		wantPrompt, _ := table.Prompt(want)
		assert.Equal(t, wantPrompt, model.calls[0].Prompt, "style %q", id)
	}
}

func TestGenerate_StripsPrefixAndForwardsBytes(t *testing.T) {
	model := &fakeModel{reply: okReply(ReplyPart{Image: &InlineImage{MIMEType: "image/png", Data: "BBBB"}})}
	g := New(model, nil, nil)

	res, err := g.Generate(context.Background(), "data:image/jpg;base64,AAAA", "elegant")
	require.NoError(t, err)
	assert.Equal(t, Success{Image: "data:image/png;base64,BBBB"}, res)

	req := model.calls[0]
	assert.Equal(t, "AAAA", req.Image.Data)
	assert.Equal(t, "image/jpeg", req.Image.MIMEType())
	assert.Equal(t, []byte{0, 0, 0}, req.ImageBytes)
}

func TestGenerate_TransportErrorIsFailure(t *testing.T) {
	g := New(&fakeModel{err: errors.New("dial tcp: connection refused")}, nil, nil)

	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "cute")
	require.NoError(t, err)
	f, ok := res.(Failure)
	require.True(t, ok)
	assert.Equal(t, FailureTransport, f.Kind)
	assert.Contains(t, f.Reason, "connection refused")
}

func TestInterpret_ImageBeatsText(t *testing.T) {
	res := Interpret(okReply(
		ReplyPart{Image: &InlineImage{MIMEType: "image/png", Data: "BBBB"}},
		ReplyPart{Text: "here you go"},
	))
	assert.Equal(t, Success{Image: "data:image/png;base64,BBBB"}, res)
}

func TestInterpret_ImageAfterTextStillWins(t *testing.T) {
	res := Interpret(okReply(
		ReplyPart{Text: "here you go"},
		ReplyPart{Image: &InlineImage{MIMEType: "image/jpeg", Data: "CCCC"}},
	))
	assert.Equal(t, Success{Image: "data:image/jpeg;base64,CCCC"}, res)
}

func TestInterpret_TextOnly(t *testing.T) {
	res := Interpret(okReply(ReplyPart{}, ReplyPart{Text: "I cannot draw that"}))
	assert.Equal(t, TextOnly{Message: "I cannot draw that"}, res)
}

func TestInterpret_UpstreamError(t *testing.T) {
	raw := map[string]interface{}{"error": map[string]interface{}{"message": "quota exceeded"}}
	res := Interpret(&ModelReply{StatusCode: 429, ErrorMessage: "quota exceeded", Raw: raw})

	f, ok := res.(Failure)
	require.True(t, ok)
	assert.Equal(t, FailureUpstream, f.Kind)
	assert.Equal(t, "quota exceeded", f.Reason)
	assert.Equal(t, 429, f.StatusCode)
	assert.Equal(t, raw, f.Details)
}

func TestInterpret_UpstreamErrorIgnoresParts(t *testing.T) {
	res := Interpret(&ModelReply{
		StatusCode: 500,
		Parts:      []ReplyPart{{Image: &InlineImage{MIMEType: "image/png", Data: "BBBB"}}},
	})
	assert.IsType(t, Failure{}, res)
}

func TestInterpret_NoValidResponse(t *testing.T) {
	for _, reply := range []*ModelReply{nil, okReply(), okReply(ReplyPart{})} {
		f, ok := Interpret(reply).(Failure)
		require.True(t, ok)
		assert.Equal(t, FailureNoValidResponse, f.Kind)
		assert.Equal(t, ReasonNoValidResponse, f.Reason)
	}
}
