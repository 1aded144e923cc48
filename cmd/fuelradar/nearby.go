package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/muesli/gominatim"
	"github.com/urfave/cli/v2"

	"github.com/nmoreras/fuelradar/internal/station"
	"github.com/nmoreras/fuelradar/internal/storage"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-nearby",
		Usage: "List nearby fuel stations ranked by distance and price",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "location",
				Usage:    "Location to search",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Database file",
				Required: false,
				Value:    "stations.db",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   station.DefaultRadiusKm,
			},
			&cli.StringFlag{
				Name:    "fuel",
				Aliases: []string{"f"},
				Usage:   "Fuel type to rank by",
				Value:   station.DefaultFuelType,
			},
		},
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	lat := c.Float64("lat")
	lng := c.Float64("long")
	loc := c.String("location")

	if loc != "" {
		var err error
		lat, lng, err = geocode(loc)
		if err != nil {
			return err
		}
	} else if lat == 0 && lng == 0 {
		return errors.New("location or latitude and longitude are required")
	}

	return listNearbyStations(c, lat, lng)
}

func geocode(name string) (lat, lng float64, err error) {
	gominatim.SetServer("https://nominatim.openstreetmap.org/")
	qry := gominatim.SearchQuery{
		Q: name,
	}

	resp, err := qry.Get()
	if err != nil {
		return 0, 0, err
	}
	if len(resp) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", name)
	}
	fmt.Println("Location found:", resp[0].DisplayName)

	lat, err = strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err = strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func listNearbyStations(c *cli.Context, lat, lng float64) error {
	ctx := c.Context

	store, err := storage.NewStorage(ctx, c.String("db"), newLogger(c))
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer store.Close()

	all, err := store.ListAllStations(ctx)
	if err != nil {
		return fmt.Errorf("error listing stations: %w", err)
	}

	result, err := station.SearchNearby(station.Query{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: c.Float64("radius"),
		FuelType: c.String("fuel"),
	}, all)
	if err != nil {
		return err
	}

	for i, st := range result.Stations {
		fmt.Printf("%d. %s (%s)\n", i+1, st.Name, st.Address)
		fmt.Printf("   City: %s\n", st.City)
		fmt.Printf("   Distance: %.2f km\n", st.DistanceKm)
		if st.Price != nil {
			fmt.Printf("   %s: %.2f\n", result.FuelType, *st.Price)
		} else {
			fmt.Printf("   %s: not available\n", result.FuelType)
		}
		fmt.Printf("   Coordinates: %f, %f\n\n", st.Lat, st.Lng)
	}

	fmt.Printf("Found %d stations within %g km radius\n", result.Count, result.RadiusKm)
	return nil
}
