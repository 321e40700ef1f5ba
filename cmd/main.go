package main

import (
	"context"
	"os"

	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(nil)})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		runner.logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytplay",
		Usage:   "Search, stream and manage a personal music library",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("YTPLAY_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file instead of stderr",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}
