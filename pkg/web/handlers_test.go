package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/dukex/canvasflow/pkg/inference"
	"github.com/dukex/canvasflow/pkg/persistence/file"
	"github.com/dukex/canvasflow/pkg/runner"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _ string, _ float64, prompt string) (*inference.Result, error) {
	return &inference.Result{Response: "echo: " + prompt}, nil
}

type noopRunner struct{}

func (noopRunner) Run(_ context.Context, code, _ string) (string, error) { return code, nil }
func (noopRunner) Terminate() error                                      { return nil }

func setupTestApp(t *testing.T) (*fiber.App, *file.Store) {
	t.Helper()

	store := file.NewStore(t.TempDir())
	service := runner.NewService(store, config.Default(), echoGenerator{}, slog.Default(),
		runner.WithKernelFactory(func(string) runner.CodeRunner { return noopRunner{} }))

	handlers := NewAPIHandlers(service, store, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	ws := app.Group("/workspaces")
	ws.Get("/", handlers.ListWorkspaces)
	ws.Post("/:key/runs", handlers.StartRun)
	ws.Get("/:key/state", handlers.GetState)
	ws.Get("/:key/document", handlers.GetDocument)
	ws.Delete("/:key", handlers.CloseWorkspace)
	ws.Post("/:key/kernel/restart", handlers.RestartKernel)

	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func saveTestDoc(t *testing.T, store *file.Store) {
	t.Helper()

	doc := &canvas.Document{
		Nodes: []*canvas.Node{
			{ID: "a", Type: canvas.NodeTypeText, Width: 200, Height: 60, Color: "3", Text: "hello"},
			{ID: "b", Type: canvas.NodeTypeText, Y: 200, Width: 200, Height: 60, Color: "3", Text: "world"},
		},
		Edges: []*canvas.Edge{
			{ID: "e1", FromNode: "a", ToNode: "b"},
		},
	}

	require.NoError(t, store.Save(context.Background(), "board.canvas", doc))
}

func TestStartRunCompletes(t *testing.T) {
	app, store := setupTestApp(t)
	saveTestDoc(t, store)

	body := strings.NewReader(`{"mode": "chain", "node_id": "b"}`)
	req := httptest.NewRequest(http.MethodPost, "/workspaces/board.canvas/runs", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var run RunResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "completed", run.Status)
}

func TestStartRunValidatesMode(t *testing.T) {
	app, store := setupTestApp(t)
	saveTestDoc(t, store)

	body := strings.NewReader(`{"mode": "everything"}`)
	req := httptest.NewRequest(http.MethodPost, "/workspaces/board.canvas/runs", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartRunMissingDocument(t *testing.T) {
	app, _ := setupTestApp(t)

	body := strings.NewReader(`{"mode": "graph"}`)
	req := httptest.NewRequest(http.MethodPost, "/workspaces/nope.canvas/runs", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartRunUnrunnableTarget(t *testing.T) {
	app, store := setupTestApp(t)

	doc := &canvas.Document{Nodes: []*canvas.Node{
		{ID: "plain", Type: canvas.NodeTypeText, Text: "no role"},
	}}
	require.NoError(t, store.Save(context.Background(), "board.canvas", doc))

	body := strings.NewReader(`{"mode": "node", "node_id": "plain"}`)
	req := httptest.NewRequest(http.MethodPost, "/workspaces/board.canvas/runs", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGetStateAfterRun(t *testing.T) {
	app, store := setupTestApp(t)
	saveTestDoc(t, store)

	body := strings.NewReader(`{"mode": "graph"}`)
	req := httptest.NewRequest(http.MethodPost, "/workspaces/board.canvas/runs", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	req = httptest.NewRequest(http.MethodGet, "/workspaces/board.canvas/state", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st StateResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "hello", st.Results["a"])
	assert.Contains(t, st.Results, "b")
	assert.Empty(t, st.Queued)
}

func TestGetDocument(t *testing.T) {
	app, store := setupTestApp(t)
	saveTestDoc(t, store)

	req := httptest.NewRequest(http.MethodGet, "/workspaces/board.canvas/document", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc canvas.Document

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Len(t, doc.Nodes, 2)
}

func TestGetDocumentNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/workspaces/missing.canvas/document", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCloseWorkspaceAndRestartKernel(t *testing.T) {
	app, store := setupTestApp(t)
	saveTestDoc(t, store)

	req := httptest.NewRequest(http.MethodDelete, "/workspaces/board.canvas", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/workspaces/board.canvas/kernel/restart", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
