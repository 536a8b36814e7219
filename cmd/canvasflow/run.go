package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/canvasflow/pkg/cmd"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/dukex/canvasflow/pkg/inference"
	"github.com/dukex/canvasflow/pkg/log"
	"github.com/dukex/canvasflow/pkg/runner"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute part of a canvas",
		Commands: []*cli.Command{
			{
				Name:      "node",
				Usage:     "Run a single node in isolation",
				ArgsUsage: "<workspace> <node-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAction(ctx, command, func(ctx context.Context, svc *runner.Service, workspace string, args []string) error {
						if len(args) != 1 {
							return fmt.Errorf("usage: canvasflow run node <workspace> <node-id>")
						}

						return svc.RunNode(ctx, workspace, args[0])
					})
				},
			},
			{
				Name:      "chain",
				Usage:     "Run a node and every ancestor it depends on",
				ArgsUsage: "<workspace> <node-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAction(ctx, command, func(ctx context.Context, svc *runner.Service, workspace string, args []string) error {
						if len(args) != 1 {
							return fmt.Errorf("usage: canvasflow run chain <workspace> <node-id>")
						}

						return svc.RunChain(ctx, workspace, args[0])
					})
				},
			},
			{
				Name:      "graph",
				Usage:     "Run every runnable node in the canvas",
				ArgsUsage: "<workspace>",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runAction(ctx, command, func(ctx context.Context, svc *runner.Service, workspace string, _ []string) error {
						return svc.RunGraph(ctx, workspace)
					})
				},
			},
		},
	}
}

func runAction(ctx context.Context, command *cli.Command, run func(context.Context, *runner.Service, string, []string) error) error {
	log.Setup(command.String("log-level"))

	args := command.Args().Slice()
	if len(args) < 1 {
		return fmt.Errorf("a workspace key is required")
	}

	workspace := args[0]
	logger := log.WithModule("cli")

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

	service := runner.NewService(store, settings, generator, logger)

	defer func() {
		if err := service.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close service", "error", err)
		}
	}()

	if err := run(ctx, service, workspace, args[1:]); err != nil {
		return err
	}

	printResults(service, workspace)

	return nil
}

// printResults writes the run's cached results and timings to stdout, sorted
// by node id for stable output.
func printResults(service *runner.Service, workspace string) {
	st := service.State(workspace)
	results := st.Results()
	durations := st.Durations()

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		fmt.Printf("=== %s", id)

		if d, ok := durations[id]; ok {
			fmt.Printf(" (%s)", d.Round(time.Millisecond))
		}

		fmt.Printf(" ===\n%s\n\n", results[id])
	}
}
