package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nmoreras/fuelradar/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "fuelradar",
		Usage: "Track fuel station prices and find nearby stations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			updateCommand(),
			nearbyCommand(),
			statusCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	if !c.Bool("verbose") {
		return slog.New(slog.DiscardHandler)
	}
	cfg := config.New(config.WithLogLevel("debug"))
	return cfg.NewLogger()
}
