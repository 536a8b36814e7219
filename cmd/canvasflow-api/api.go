// Package main provides the canvasflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/canvasflow/pkg/persistence"
	"github.com/dukex/canvasflow/pkg/runner"
	"github.com/dukex/canvasflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	service  *runner.Service
	store    persistence.Store
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, service *runner.Service, store persistence.Store) *API {
	return &API{
		logger:   logger,
		service:  service,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.service, a.store, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Canvasflow API")
	})

	ws := app.Group("/workspaces")
	ws.Get("/", handlers.ListWorkspaces)
	ws.Post("/:key/runs", handlers.StartRun)
	ws.Get("/:key/state", handlers.GetState)
	ws.Get("/:key/document", handlers.GetDocument)
	ws.Delete("/:key", handlers.CloseWorkspace)
	ws.Post("/:key/kernel/restart", handlers.RestartKernel)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
