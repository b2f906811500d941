package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	path string
	body map[string]interface{}
}

func newModelServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func newTestModel(t *testing.T, backend, baseURL string) Model {
	t.Helper()
	m, err := NewModel(context.Background(), ModelOptions{
		Backend: backend,
		APIKey:  "test-key-1234",
		BaseURL: baseURL,
		Model:   "test-model",
	}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestNewModel_Misconfigured(t *testing.T) {
	_, err := NewModel(context.Background(), ModelOptions{Backend: BackendREST}, zap.NewNop())
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewModel(context.Background(), ModelOptions{Backend: "carrier-pigeon", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}

// End to end through the REST backend: a png upload in the cute style comes
// back as the model's inline image.
func TestGateway_REST_EndToEnd(t *testing.T) {
	server, captured := newModelServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"BBBB"}}]}}]}`)

	g := New(newTestModel(t, BackendREST, server.URL), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "cute")
	require.NoError(t, err)
	assert.Equal(t, Success{Image: "data:image/png;base64,BBBB"}, res)

	assert.Equal(t, "/v1beta/models/test-model:generateContent", captured.path)
	parts := captured.body["contents"].([]interface{})[0].(map[string]interface{})["parts"].([]interface{})
	inline := parts[0].(map[string]interface{})["inlineData"].(map[string]interface{})
	assert.Equal(t, "AAAA", inline["data"])
	prompt, _ := g.Styles().Prompt("cute")
	assert.Equal(t, prompt, parts[1].(map[string]interface{})["text"])
}

func TestGateway_REST_TextOnly(t *testing.T) {
	server, _ := newModelServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"I only describe photos"}]}}]}`)

	g := New(newTestModel(t, BackendREST, server.URL), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "elegant")
	require.NoError(t, err)
	assert.Equal(t, TextOnly{Message: "I only describe photos"}, res)
}

func TestGateway_REST_QuotaExceeded(t *testing.T) {
	const body = `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`
	server, _ := newModelServer(t, http.StatusTooManyRequests, body)

	g := New(newTestModel(t, BackendREST, server.URL), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "elegant")
	require.NoError(t, err)

	f, ok := res.(Failure)
	require.True(t, ok)
	assert.Equal(t, FailureUpstream, f.Kind)
	assert.Equal(t, "quota exceeded", f.Reason)
	raw, ok := f.Details.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, body, string(raw))
}

func TestGateway_REST_EmptyCandidates(t *testing.T) {
	server, _ := newModelServer(t, http.StatusOK, `{"candidates":[]}`)

	g := New(newTestModel(t, BackendREST, server.URL), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "elegant")
	require.NoError(t, err)
	f, ok := res.(Failure)
	require.True(t, ok)
	assert.Equal(t, FailureNoValidResponse, f.Kind)
}

func TestGateway_SDK_Image(t *testing.T) {
	server, _ := newModelServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"done"},{"inlineData":{"mimeType":"image/png","data":"BBBB"}}]}}]}`)

	g := New(newTestModel(t, BackendSDK, server.URL+"/"), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "cute")
	require.NoError(t, err)
	assert.Equal(t, Success{Image: "data:image/png;base64,BBBB"}, res)
}

func TestGateway_SDK_QuotaExceeded(t *testing.T) {
	server, _ := newModelServer(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"quota exceeded","status":"FAILED_PRECONDITION"}}`)

	g := New(newTestModel(t, BackendSDK, server.URL+"/"), nil, zap.NewNop())
	res, err := g.Generate(context.Background(), "data:image/png;base64,AAAA", "cute")
	require.NoError(t, err)

	f, ok := res.(Failure)
	require.True(t, ok)
	assert.Equal(t, FailureUpstream, f.Kind)
	assert.Equal(t, "quota exceeded", f.Reason)
}
