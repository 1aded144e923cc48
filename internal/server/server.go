// Package server exposes the station queries and the ingestion trigger
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"

	"github.com/nmoreras/fuelradar/internal/ingest"
	"github.com/nmoreras/fuelradar/internal/station"
	"github.com/nmoreras/fuelradar/internal/storage"
	"github.com/nmoreras/fuelradar/pkg/terpel"
)

const (
	geocodeCacheExpiry  = 30 * time.Minute
	geocodeCacheCleanup = 90 * time.Minute

	nominatimServer = "https://nominatim.openstreetmap.org/"
)

// Store is what the server needs from the persistence layer: the
// ingestion repository plus the read-only status queries.
type Store interface {
	station.Repository
	GetStation(ctx context.Context, id string) (*station.Station, error)
	CountStations(ctx context.Context) (int, error)
	LastUpdate(ctx context.Context) (*time.Time, error)
}

// Server wires the store into the HTTP routes.
type Server struct {
	store     Store
	log       *httplog.Logger
	geocache  *cache.Cache
	rateLimit int

	ingestMu sync.Mutex // one ingestion run at a time
}

// New creates a server on top of the given store.
func New(store Store, logger *httplog.Logger, rateLimit int) *Server {
	return &Server{
		store:     store,
		log:       logger,
		geocache:  cache.New(geocodeCacheExpiry, geocodeCacheCleanup),
		rateLimit: rateLimit,
	}
}

// Ingest runs one provider ingestion against the store. Runs are
// serialized so the background refresher and HTTP-triggered ingestions
// never interleave records within a checkpoint group.
func (s *Server) Ingest(ctx context.Context, provider string) (ingest.Report, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	return ingest.FromProvider(ctx, provider, s.store, s.log.Logger)
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	if s.rateLimit > 0 {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/stations/nearby", s.handleNearby)
	r.Get("/stations/{id}", s.handleGetStation)
	r.Post("/ingest/{provider}", s.handleIngest)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Stations   int        `json:"stations"`
	LastUpdate *time.Time `json:"last_update"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountStations(r.Context())
	if err != nil {
		s.log.Error("counting stations", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading status")
		return
	}
	last, err := s.store.LastUpdate(r.Context())
	if err != nil {
		s.log.Error("reading last update", "error", err)
		writeError(w, http.StatusInternalServerError, "error reading status")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Stations: count, LastUpdate: last})
}

func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := s.store.GetStation(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error("loading station", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "error loading station")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := station.Query{
		RadiusKm: station.DefaultRadiusKm,
		FuelType: station.DefaultFuelType,
	}
	if fuel := query.Get("fuel_type"); fuel != "" {
		q.FuelType = fuel
	}
	if radiusStr := query.Get("radius_km"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid radius_km value")
			return
		}
		q.RadiusKm = radius
	}

	if location := query.Get("location"); location != "" {
		lat, lng, err := s.geocodeLocation(location)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		q.Lat, q.Lng = lat, lng
	} else {
		var err error
		q.Lat, err = strconv.ParseFloat(query.Get("lat"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid lat value")
			return
		}
		q.Lng, err = strconv.ParseFloat(query.Get("lng"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid lng value")
			return
		}
	}

	all, err := s.store.ListAllStations(r.Context())
	if err != nil {
		s.log.Error("listing stations", "error", err)
		writeError(w, http.StatusInternalServerError, "error listing stations")
		return
	}

	result, err := station.SearchNearby(q, all)
	if err != nil {
		var ierr *station.InputError
		if errors.As(err, &ierr) {
			writeError(w, http.StatusBadRequest, ierr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	report, err := s.Ingest(r.Context(), provider)
	if err != nil {
		var ferr *terpel.FetchError
		switch {
		case errors.Is(err, ingest.ErrUnknownProvider):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &ferr):
			s.log.Error("feed fetch failed", "provider", provider, "error", err)
			writeError(w, http.StatusBadGateway, "provider feed unavailable")
		default:
			s.log.Error("ingestion failed", "provider", provider, "error", err)
			writeError(w, http.StatusInternalServerError, "ingestion failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) geocodeLocation(location string) (lat, lng float64, err error) {
	gominatim.SetServer(nominatimServer)
	if cached, ok := s.geocache.Get(location); ok {
		result := cached.(gominatim.SearchResult)
		return gominatimResultToLatLon(result)
	}

	query := gominatim.SearchQuery{
		Q: url.QueryEscape(location),
	}

	results, err := query.Get()
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", location)
	}
	s.geocache.Set(location, results[0], cache.DefaultExpiration)

	return gominatimResultToLatLon(results[0])
}

func gominatimResultToLatLon(result gominatim.SearchResult) (lat, lng float64, err error) {
	lat, err = strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing latitude: %w", err)
	}

	lng, err = strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing longitude: %w", err)
	}

	return lat, lng, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
