package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/canvasflow/pkg/persistence"
	"github.com/dukex/canvasflow/pkg/runner"
	"github.com/dukex/canvasflow/pkg/scheduler"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleRunError maps coordinator errors to problem responses.
func handleRunError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsDocumentNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("document_not_found").
			WithDetail("canvas document not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsInvalidDocument(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("invalid_document").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, runner.ErrNotRunnable), errors.Is(err, scheduler.ErrNotExecutable):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("not_runnable").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case errors.Is(err, scheduler.ErrCycle), errors.Is(err, scheduler.ErrUnreachable):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("graph_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	default:
		return internalError(c, err)
	}
}
