// Package web provides the HTTP handlers the API server exposes over the
// execution coordinator.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/canvasflow/pkg/persistence"
	"github.com/dukex/canvasflow/pkg/runner"
)

type APIHandlers struct {
	service   *runner.Service
	store     persistence.Store
	validator *validator.Validate
}

func NewAPIHandlers(service *runner.Service, store persistence.Store, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		service:   service,
		store:     store,
		validator: validator,
	}
}

// StartRun kicks off a run for one workspace. When another run holds the
// global slot the request is deferred and answered with 202.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Workspace key is required")
	}

	var req RunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var err error

	switch req.Mode {
	case "node":
		err = h.service.RunNode(c.Context(), key, req.NodeID)
	case "chain":
		err = h.service.RunChain(c.Context(), key, req.NodeID)
	default:
		err = h.service.RunGraph(c.Context(), key)
	}

	if errors.Is(err, runner.ErrQueued) {
		return c.Status(fiber.StatusAccepted).JSON(RunResponse{
			Status: "queued",
			Mode:   req.Mode,
			NodeID: req.NodeID,
		})
	}

	if err != nil {
		return handleRunError(c, err)
	}

	return c.JSON(RunResponse{
		Status: "completed",
		Mode:   req.Mode,
		NodeID: req.NodeID,
	})
}

// GetState returns the cached results, edge modes and run metrics of a
// workspace.
func (h *APIHandlers) GetState(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Workspace key is required")
	}

	st := h.service.State(key)

	resp := StateResponse{
		Workspace: key,
		Results:   st.Results(),
		EdgeModes: make(map[string]string),
		Durations: make(map[string]int64),
		Queued:    st.QueuedNodes(),
	}

	if running, ok := st.Running(); ok {
		resp.Running = running
	}

	for nodeID, d := range st.Durations() {
		resp.Durations[nodeID] = d.Milliseconds()
	}

	for edgeID, mode := range st.EdgeModes() {
		resp.EdgeModes[edgeID] = string(mode)
	}

	return c.JSON(resp)
}

// GetDocument returns the persisted canvas document.
func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Workspace key is required")
	}

	doc, err := h.store.Load(c.Context(), key)
	if err != nil {
		if persistence.IsDocumentNotFound(err) {
			return notFound(c, "Canvas document not found")
		}

		return internalError(c, err)
	}

	return c.JSON(doc)
}

// CloseWorkspace terminates the workspace's interpreter and drops its state.
func (h *APIHandlers) CloseWorkspace(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Workspace key is required")
	}

	if err := h.service.CloseWorkspace(key); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RestartKernel kills the workspace's interpreter; the next code node gets a
// fresh one.
func (h *APIHandlers) RestartKernel(c fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Workspace key is required")
	}

	if err := h.service.RestartKernel(key); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListWorkspaces returns the workspace keys with live run state.
func (h *APIHandlers) ListWorkspaces(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"workspaces": h.service.Workspaces(),
		"busy":       h.service.Busy(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeErr := h.store.HealthCheck(c.Context())

	status := "healthy"
	message := "Canvasflow API is healthy"
	httpStatus := http.StatusOK

	if storeErr != nil {
		status = "unhealthy"
		message = "Canvasflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"store": storeErr == nil,
		},
		"timestamp": time.Now().UTC(),
	})
}
