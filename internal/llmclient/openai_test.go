package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestServer(t *testing.T, status int, body string, capture *[]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		if capture != nil {
			data, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			*capture = data
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIClient_Generate_Success(t *testing.T) {
	var captured []byte
	server := newOpenAITestServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`,
		&captured)

	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL
	client, err := NewOpenAIClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), Request{
		SystemPrompt: "be terse",
		UserPrompt:   "say hello",
		Options:      Options{Temperature: 0.1, ForceJSON: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	var sent openAIRequest
	require.NoError(t, json.Unmarshal(captured, &sent))
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "system", sent.Messages[0].Role)
	assert.Equal(t, "be terse", sent.Messages[0].Content)
	assert.Equal(t, "user", sent.Messages[1].Role)
	require.NotNil(t, sent.ResponseFormat)
	assert.Equal(t, "json_object", sent.ResponseFormat.Type)
}

func TestOpenAIClient_Generate_APIError(t *testing.T) {
	server := newOpenAITestServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, nil)

	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL
	client, err := NewOpenAIClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{UserPrompt: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestOpenAIClient_Generate_NoChoices(t *testing.T) {
	server := newOpenAITestServer(t, http.StatusOK, `{"choices":[]}`, nil)

	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL
	client, err := NewOpenAIClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{UserPrompt: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
