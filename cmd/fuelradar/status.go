package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nmoreras/fuelradar/internal/storage"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the station count and the last feed update",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Database file",
				Required: false,
				Value:    "stations.db",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show a single station by id instead",
			},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	ctx := c.Context

	store, err := storage.NewStorage(ctx, c.String("db"), newLogger(c))
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer store.Close()

	if id := c.String("id"); id != "" {
		return printStation(c, store, id)
	}

	count, err := store.CountStations(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("No stations in database.")
		return nil
	}

	last, err := store.LastUpdate(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Stations: %d\n", count)
	if last != nil {
		fmt.Printf("Last update: %s\n", last.Format(time.RFC3339))
	}
	return nil
}

func printStation(c *cli.Context, store *storage.Storage, id string) error {
	st, err := store.GetStation(c.Context, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", st.Name, st.ID)
	if st.Address != "" {
		fmt.Printf("  %s, %s\n", st.Address, st.City)
	}
	fmt.Printf("  Lat: %.6f, Lng: %.6f\n", st.Lat, st.Lng)
	for fuel, price := range st.Prices {
		fmt.Printf("  %s: %.2f\n", fuel, price)
	}
	fmt.Printf("  Updated: %s\n", st.UpdatedAt.Format(time.RFC3339))
	return nil
}
