// Package inference wraps the local Ollama generate endpoint behind the
// single stateless call the coordinator needs.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Result is the textual output of one generation call. Thinking carries the
// chain-of-thought text when the model emits one; it feeds the thinking
// sidecar and is otherwise ignored.
type Result struct {
	Response string
	Thinking string
}

// Generator is the coordinator-facing contract.
type Generator interface {
	Generate(ctx context.Context, model string, temperature float64, prompt string) (*Result, error)
}

// Client calls a local Ollama server. It keeps no per-call state.
type Client struct {
	api    *api.Client
	logger *slog.Logger
}

// New builds a client for the given host URL.
func New(host string, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid inference host %q: %w", host, err)
	}

	return &Client{
		api:    api.NewClient(base, http.DefaultClient),
		logger: logger.With("module", "inference"),
	}, nil
}

// Generate performs one non-streaming generation. Request shape is fixed:
// {model, prompt, stream:false, options:{temperature}}. Any transport or
// non-success response surfaces as an error and aborts the caller's run.
func (c *Client) Generate(ctx context.Context, model string, temperature float64, prompt string) (*Result, error) {
	c.logger.DebugContext(ctx, "Sending generate request", "model", model, "prompt_chars", len(prompt))

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
		},
	}

	var result Result

	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		result.Response += resp.Response
		result.Thinking += resp.Thinking

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate call failed for model %s: %w", model, err)
	}

	return &result, nil
}
