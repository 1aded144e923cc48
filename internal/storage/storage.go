// Package storage implements the station repository on SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"

	"github.com/nmoreras/fuelradar/internal/station"
)

const (
	cacheDefaultExpiry = 5 * time.Minute
	cacheCleanupTime   = 10 * time.Minute

	defaultCacheSize = -1024 * 1024 // negative value for pages
	defaultPageSize  = 4096

	stationsCacheKey = "all_stations"
)

// PersistenceError reports a storage failure on a single upsert. The
// record's savepoint has already been rolled back; the rest of the
// checkpoint group is unaffected.
type PersistenceError struct {
	StationID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting station %s: %v", e.StationID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Storage is a SQLite-backed station.Repository. Upserts accumulate in
// one open transaction per checkpoint group, with a savepoint around
// each record so a single failure rolls back only itself; Flush commits
// the group. The write path is safe for concurrent callers; a mutex
// serializes access to the open group. Reads always see the last
// committed snapshot.
type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger

	mu    sync.Mutex
	tx    *sql.Tx // open checkpoint group, nil between groups
	spSeq int
}

// ErrNotFound reports a station id with no stored row.
var ErrNotFound = errors.New("station not found")

// NewStorage opens (creating if needed) the station database.
func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Storage{
		db:    db,
		cache: cache.New(cacheDefaultExpiry, cacheCleanupTime),
		log:   logger,
	}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		brand TEXT,
		name TEXT NOT NULL,
		address TEXT,
		city TEXT,
		region TEXT,
		country TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		prices TEXT NOT NULL DEFAULT '{}',
		services TEXT NOT NULL DEFAULT '[]',
		programs TEXT NOT NULL DEFAULT '[]',
		source TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stations_lat_lng ON stations(lat, lng);
	CREATE INDEX IF NOT EXISTS idx_stations_source ON stations(source);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

// Close rolls back any uncommitted checkpoint group and closes the
// database.
func (s *Storage) Close() error {
	s.mu.Lock()
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.log.Warn("rollback on close", "error", err)
		}
		s.tx = nil
	}
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// UpsertStation writes one station into the current checkpoint group,
// starting a new group if none is open. An existing row keeps its
// identity and display fields; prices, services, programs and
// updated_at are overwritten.
func (s *Storage) UpsertStation(ctx context.Context, st station.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("starting transaction: %w", err)}
		}
		s.tx = tx
	}

	prices, err := json.Marshal(st.Prices)
	if err != nil {
		return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("marshaling prices: %w", err)}
	}
	services, err := json.Marshal(st.Services)
	if err != nil {
		return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("marshaling services: %w", err)}
	}
	programs, err := json.Marshal(st.Programs)
	if err != nil {
		return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("marshaling programs: %w", err)}
	}

	// One savepoint per record keeps a failed upsert from taking the
	// whole group down with it.
	s.spSeq++
	sp := fmt.Sprintf("upsert_%d", s.spSeq)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("creating savepoint: %w", err)}
	}

	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO stations
			(id, brand, name, address, city, region, country,
			 lat, lng, prices, services, programs, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prices = excluded.prices,
			services = excluded.services,
			programs = excluded.programs,
			updated_at = excluded.updated_at
	`, st.ID, st.Brand, st.Name, st.Address, st.City, st.Region, st.Country,
		st.Lat, st.Lng, string(prices), string(services), string(programs),
		st.Source, st.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO "+sp); rbErr != nil {
			s.log.Warn("savepoint rollback failed", "station", st.ID, "error", rbErr)
		}
		_, _ = s.tx.ExecContext(ctx, "RELEASE "+sp)
		return &PersistenceError{StationID: st.ID, Err: err}
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE "+sp); err != nil {
		return &PersistenceError{StationID: st.ID, Err: fmt.Errorf("releasing savepoint: %w", err)}
	}
	return nil
}

// Flush commits the open checkpoint group, making its upserts durable
// and visible to readers. Flushing with no open group is a no-op.
func (s *Storage) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Delete(stationsCacheKey)
	return nil
}

// ListAllStations returns the full committed station set. Results are
// cached briefly; every Flush invalidates the cache.
func (s *Storage) ListAllStations(ctx context.Context) ([]station.Station, error) {
	if cached, found := s.cache.Get(stationsCacheKey); found {
		s.log.Debug("using cached station list", "key", stationsCacheKey)
		return cached.([]station.Station), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, brand, name, address, city, region, country,
		       lat, lng, prices, services, programs, source, updated_at
		FROM stations
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying stations: %w", err)
	}
	defer rows.Close()

	var stations []station.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	s.cache.Set(stationsCacheKey, stations, cache.DefaultExpiration)
	return stations, nil
}

// GetStation looks up a single station by id.
func (s *Storage) GetStation(ctx context.Context, id string) (*station.Station, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, brand, name, address, city, region, country,
		       lat, lng, prices, services, programs, source, updated_at
		FROM stations WHERE id = ?
	`, id)

	st, err := scanStation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CountStations returns the number of stored stations.
func (s *Storage) CountStations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting stations: %w", err)
	}
	return count, nil
}

// LastUpdate returns the most recent updated_at across all stations, or
// nil when the database is empty.
func (s *Storage) LastUpdate(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM stations").Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("error querying last update: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil, fmt.Errorf("error parsing updated_at %s: %w", raw.String, err)
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (station.Station, error) {
	var st station.Station
	var address, city, region, country sql.NullString
	var prices, services, programs, updatedAt string

	err := row.Scan(&st.ID, &st.Brand, &st.Name, &address, &city, &region, &country,
		&st.Lat, &st.Lng, &prices, &services, &programs, &st.Source, &updatedAt)
	if err != nil {
		return station.Station{}, err
	}

	st.Address = address.String
	st.City = city.String
	st.Region = region.String
	st.Country = country.String

	if err := json.Unmarshal([]byte(prices), &st.Prices); err != nil {
		return station.Station{}, fmt.Errorf("error unmarshaling prices for %s: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(services), &st.Services); err != nil {
		return station.Station{}, fmt.Errorf("error unmarshaling services for %s: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(programs), &st.Programs); err != nil {
		return station.Station{}, fmt.Errorf("error unmarshaling programs for %s: %w", st.ID, err)
	}

	st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return station.Station{}, fmt.Errorf("error parsing updated_at for %s: %w", st.ID, err)
	}

	return st, nil
}

func configureSQLitePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000;"); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA cache_size = %d;", defaultCacheSize)); err != nil {
		return fmt.Errorf("error setting cache size: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA page_size = %d;", defaultPageSize)); err != nil {
		return fmt.Errorf("error setting page size: %w", err)
	}

	return nil
}
