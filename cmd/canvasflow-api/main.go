package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/canvasflow/pkg/cmd"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/dukex/canvasflow/pkg/inference"
	"github.com/dukex/canvasflow/pkg/log"
	"github.com/dukex/canvasflow/pkg/otelhelper"
	"github.com/dukex/canvasflow/pkg/runner"
)

const defaultPort = 9810

func main() {
	_ = godotenv.Load()

	command := &cli.Command{
		Name:                  "canvasflow-api",
		Usage:                 "Serve canvas execution over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "data-root",
				Usage:   "Directory holding the canvas documents",
				Value:   "./data",
				Sources: cli.EnvVars("DATA_ROOT"),
			},
			&cli.StringFlag{
				Name:    "settings",
				Aliases: []string{"s"},
				Usage:   "Path to the settings YAML file",
				Sources: cli.EnvVars("CANVASFLOW_SETTINGS"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (memory, none)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("CANVASFLOW_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Canvasflow API")

			settings, err := config.Load(command.String("settings"))
			if err != nil {
				return err
			}

			store := cmd.NewStore(command.String("data-root"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close store", "error", err)
				}
			}()

			generator, err := inference.New(settings.Inference.Host, logger)
			if err != nil {
				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			opts := []runner.Option{}
			if eventBus != nil {
				opts = append(opts, runner.WithEventBus(eventBus))
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "canvasflow-api")
				if err != nil {
					return err
				}

				opts = append(opts, runner.WithTracer(tracer))
			}

			service := runner.NewService(store, settings, generator, logger, opts...)
			defer func() {
				if err := service.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close service", "error", err)
				}
			}()

			api := NewAPI(logger, service, store)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
