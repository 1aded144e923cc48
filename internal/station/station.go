// Package station holds the canonical fuel station model shared by the
// ingestion pipeline, the persistence layer and the nearby search.
package station

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// PriceMap maps a canonical fuel-type code (lowercase) to its current price.
type PriceMap map[string]float64

// Station is the canonical record of one physical fuel outlet and its
// current prices. It is the only structural contract the persistence
// layer has to honor.
type Station struct {
	ID        string    `json:"id"`
	Brand     string    `json:"brand"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Region    string    `json:"region,omitempty"`
	Country   string    `json:"country,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Prices    PriceMap  `json:"prices"`
	Services  []string  `json:"services,omitempty"`
	Programs  []string  `json:"programs,omitempty"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price returns the price for the given fuel type, or nil when the
// station does not list it. Lookup is case-insensitive.
func (s *Station) Price(fuelType string) *float64 {
	if s.Prices == nil {
		return nil
	}
	p, ok := s.Prices[strings.ToLower(fuelType)]
	if !ok {
		return nil
	}
	return &p
}

// Repository is the storage contract consumed by the ingestion batcher
// and read by the search path. UpsertStation inserts a new station or,
// when the id already exists, overwrites prices, services, programs and
// updated_at. Writes become durable on Flush.
type Repository interface {
	UpsertStation(ctx context.Context, st Station) error
	Flush(ctx context.Context) error
	ListAllStations(ctx context.Context) ([]Station, error)
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SlugID derives a stable station identity from a source tag and the
// raw provider fields. The parts are joined with "-", lowercased, runs
// of characters outside [a-z0-9] collapse to a single underscore and
// leading/trailing underscores are stripped, so near-duplicate
// formatting of the same station produces the same id. The source tag
// prefix keeps ids from different providers apart.
func SlugID(source string, parts ...string) string {
	base := strings.ToLower(strings.Join(parts, "-"))
	base = slugNonAlnum.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	return source + "_" + base
}
