package terpel

import (
	"strings"
	"time"

	"github.com/nmoreras/fuelradar/internal/station"
)

// Normalize turns one raw feed record into a canonical Station. It
// fails with a *station.NormalizationError when the name is missing or
// a coordinate is missing or non-numeric; everything else is optional.
//
// The id is derived from the name and the coordinate text exactly as
// served, so re-ingesting the same station always updates the same row.
func Normalize(raw RawStation) (station.Station, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return station.Station{}, &station.NormalizationError{Reason: "missing station name"}
	}

	lat, err := raw.Lat.Float64()
	if err != nil {
		return station.Station{}, &station.NormalizationError{Name: name, Reason: "bad latitude", Err: err}
	}
	lng, err := raw.Lon.Float64()
	if err != nil {
		return station.Station{}, &station.NormalizationError{Name: name, Reason: "bad longitude", Err: err}
	}

	return station.Station{
		ID:        station.SlugID(Source, raw.Name, raw.Lat.String(), raw.Lon.String()),
		Brand:     brand,
		Name:      name,
		Address:   raw.Address,
		City:      raw.City,
		Region:    raw.Department,
		Country:   raw.Country,
		Lat:       lat,
		Lng:       lng,
		Prices:    normalizePrices(raw.Prices),
		Services:  itemNames(raw.Services),
		Programs:  itemNames(raw.Programs),
		Source:    Source,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// normalizePrices maps the feed's product names onto canonical fuel
// codes. Classification is a case-insensitive substring match, first
// rule wins; unrecognized products keep their name as a slug. Malformed
// entries are skipped without affecting the rest, and a duplicate code
// keeps the later entry's price.
func normalizePrices(entries []RawPrice) station.PriceMap {
	prices := station.PriceMap{}

	for _, entry := range entries {
		product := strings.ToLower(entry.ProductName)
		if product == "" {
			continue
		}
		value, err := entry.RetailPrice.Float64()
		if err != nil {
			continue
		}

		var key string
		switch {
		case strings.Contains(product, "corriente"):
			key = "corriente"
		case strings.Contains(product, "acpm"), strings.Contains(product, "diesel"):
			key = "acpm"
		default:
			key = strings.ReplaceAll(product, " ", "_")
		}
		prices[key] = value
	}

	return prices
}

func itemNames(items []NamedItem) []string {
	var names []string
	for _, item := range items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return names
}
