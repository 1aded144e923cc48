package station

import (
	"math"
	"sort"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	// DefaultRadiusKm is the search radius callers should apply when the
	// request carries no radius. SearchNearby itself never substitutes
	// it: a zero radius is rejected, not silently widened.
	DefaultRadiusKm = 5.0
	// DefaultFuelType is the fuel code used when the caller does not
	// provide one.
	DefaultFuelType = "corriente"

	maxResults  = 5
	metersPerKm = 1000.0
)

// Query holds the parameters of one nearby-station search.
type Query struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	FuelType string
}

// RankedStation is a search hit: a station plus its distance to the
// query point and the price of the requested fuel type. Price is nil
// when the station does not list that fuel.
type RankedStation struct {
	Station
	DistanceKm float64  `json:"distance_km"`
	Price      *float64 `json:"price"`
}

// RankedResult is the ordered outcome of a nearby search, echoing the
// effective query parameters.
type RankedResult struct {
	Count    int             `json:"count"`
	FuelType string          `json:"fuel_type"`
	RadiusKm float64         `json:"radius_km"`
	Stations []RankedStation `json:"stations"`
}

// SearchNearby ranks stations around a query point. Stations within the
// radius (inclusive) are ordered by distance, truncated to the five
// nearest, then re-ordered by price for the requested fuel type with
// unpriced stations last. Distance stays the tie-break among equal or
// missing prices. A station without the requested fuel is kept, with a
// nil price. The radius must be positive; an empty fuel type falls back
// to DefaultFuelType.
func SearchNearby(q Query, all []Station) (*RankedResult, error) {
	if q.FuelType == "" {
		q.FuelType = DefaultFuelType
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	fuel := strings.ToLower(q.FuelType)

	var hits []RankedStation
	for _, st := range all {
		distKm := gpx.Distance2D(q.Lat, q.Lng, st.Lat, st.Lng, true) / metersPerKm
		if distKm > q.RadiusKm {
			continue
		}
		hits = append(hits, RankedStation{
			Station:    st,
			DistanceKm: roundKm(distKm),
			Price:      st.Price(fuel),
		})
	}

	// Nearest first; input order breaks ties.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].DistanceKm < hits[j].DistanceKm
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	// Cheapest first among the shortlist, nil prices after every priced
	// station. The distance order above survives as secondary order.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Price == nil {
			return false
		}
		if hits[j].Price == nil {
			return true
		}
		return *hits[i].Price < *hits[j].Price
	})

	return &RankedResult{
		Count:    len(hits),
		FuelType: q.FuelType,
		RadiusKm: q.RadiusKm,
		Stations: hits,
	}, nil
}

func (q Query) validate() error {
	switch {
	case math.IsNaN(q.Lat) || q.Lat < -90 || q.Lat > 90:
		return &InputError{Param: "latitude", Reason: "must be a number between -90 and 90"}
	case math.IsNaN(q.Lng) || q.Lng < -180 || q.Lng > 180:
		return &InputError{Param: "longitude", Reason: "must be a number between -180 and 180"}
	case math.IsNaN(q.RadiusKm) || q.RadiusKm <= 0:
		return &InputError{Param: "radius", Reason: "must be a positive number of kilometers"}
	}
	return nil
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
