package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/cmd"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/dukex/canvasflow/pkg/log"
	"github.com/dukex/canvasflow/pkg/scheduler"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check a canvas document and report its execution order",
		ArgsUsage: "<workspace>",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			args := command.Args().Slice()
			if len(args) != 1 {
				return fmt.Errorf("usage: canvasflow validate <workspace>")
			}

			settings, err := config.Load(command.String("settings"))
			if err != nil {
				return err
			}

			store := cmd.NewStore(command.String("data-root"))

			doc, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}

			graph := canvas.NewGraph(doc, settings.RoleTable())

			order, err := scheduler.New(graph).FullOrder()
			if err != nil {
				return err
			}

			fmt.Printf("document valid: %d nodes, %d edges\n", len(doc.Nodes), len(doc.Edges))
			fmt.Printf("execution order (%d runnable):\n", len(order))

			for i, id := range order {
				role, _ := graph.Role(id)
				fmt.Printf("  %2d. %s [%s]\n", i+1, id, role)
			}

			return nil
		},
	}
}
