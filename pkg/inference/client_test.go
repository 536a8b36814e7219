package inference_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/canvasflow/pkg/inference"
	"github.com/dukex/canvasflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	t.Parallel()

	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "llama3.1",
			"response": "four",
			"thinking": "2+2 is four",
			"done":     true,
		})
	}))
	defer server.Close()

	client, err := inference.New(server.URL, log.WithModule("test"))
	require.NoError(t, err)

	result, err := client.Generate(context.Background(), "llama3.1", 0.7, "what is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, "four", result.Response)
	assert.Equal(t, "2+2 is four", result.Thinking)

	assert.Equal(t, "llama3.1", captured["model"])
	assert.Equal(t, "what is 2+2?", captured["prompt"])
	assert.Equal(t, false, captured["stream"])

	options, ok := captured["options"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.7, options["temperature"], 0.001)
}

func TestClient_GenerateErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := inference.New(server.URL, log.WithModule("test"))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "missing", 0.2, "hello")
	assert.Error(t, err)
}

func TestNew_InvalidHost(t *testing.T) {
	t.Parallel()

	_, err := inference.New("://nope", log.WithModule("test"))
	assert.Error(t, err)
}
