// Package main provides the canvasflow command line interface: run nodes,
// chains or whole canvases and validate documents from a terminal.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/canvasflow/pkg/log"
)

func main() {
	_ = godotenv.Load()

	command := &cli.Command{
		Name:                  "canvasflow",
		Usage:                 "Execute canvas graphs against local models and a Python kernel",
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("command failed", "error", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
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
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}
