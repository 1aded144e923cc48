package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/nmoreras/fuelradar/internal/ingest"
	"github.com/nmoreras/fuelradar/internal/storage"
	"github.com/nmoreras/fuelradar/pkg/terpel"
)

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Fetch the provider feed and refresh the station database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Database file",
				Required: false,
				Value:    "stations.db",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Provider feed to ingest",
				Value: terpel.Source,
			},
		},
		Action: updateAction,
	}
}

func updateAction(c *cli.Context) error {
	ctx := c.Context
	log := newLogger(c)

	store, err := storage.NewStorage(ctx, c.String("db"), log)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer store.Close()

	report, err := ingest.FromProvider(ctx, c.String("provider"), store, log)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d stations (%d failed)\n", report.Succeeded, report.Failed)
	for _, recErr := range report.Errors {
		fmt.Printf("  skipped: %v\n", recErr)
	}
	return nil
}
