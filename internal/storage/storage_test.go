package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreras/fuelradar/internal/station"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := NewStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testStation(id string) station.Station {
	return station.Station{
		ID:        id,
		Brand:     "Terpel",
		Name:      "EDS " + id,
		Address:   "Cra 45 # 100-20",
		City:      "Bogotá",
		Region:    "Cundinamarca",
		Country:   "Colombia",
		Lat:       4.6871,
		Lng:       -74.0499,
		Prices:    station.PriceMap{"corriente": 16250, "acpm": 10480},
		Services:  []string{"Tienda"},
		Programs:  []string{"Club Terpel"},
		Source:    "terpel",
		UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.UpsertStation(ctx, testStation("terpel_a")))
	require.NoError(t, s.UpsertStation(ctx, testStation("terpel_b")))
	require.NoError(t, s.Flush(ctx))

	all, err := s.ListAllStations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := s.GetStation(ctx, "terpel_a")
	require.NoError(t, err)
	assert.Equal(t, testStation("terpel_a"), *got)
}

func TestUpsertUpdatesOnlyVolatileFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	original := testStation("terpel_a")
	require.NoError(t, s.UpsertStation(ctx, original))
	require.NoError(t, s.Flush(ctx))

	// Same id, different everything: only prices, services, programs and
	// updated_at may change.
	updated := original
	updated.Name = "EDS Renombrada"
	updated.Address = "Otra dirección"
	updated.Lat = 5.0
	updated.Prices = station.PriceMap{"corriente": 17000}
	updated.Services = []string{"Lavadero"}
	updated.Programs = nil
	updated.UpdatedAt = original.UpdatedAt.Add(time.Hour)

	require.NoError(t, s.UpsertStation(ctx, updated))
	require.NoError(t, s.Flush(ctx))

	got, err := s.GetStation(ctx, "terpel_a")
	require.NoError(t, err)

	assert.Equal(t, original.Name, got.Name, "display fields keep their first-ingested values")
	assert.Equal(t, original.Address, got.Address)
	assert.Equal(t, original.Lat, got.Lat)
	assert.Equal(t, station.PriceMap{"corriente": 17000}, got.Prices)
	assert.Equal(t, []string{"Lavadero"}, got.Services)
	assert.Empty(t, got.Programs)
	assert.Equal(t, updated.UpdatedAt, got.UpdatedAt)

	count, err := s.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-ingestion updates rather than duplicates")
}

func TestFlushMakesWritesVisible(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	// Warm the cache with the empty set.
	all, err := s.ListAllStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.UpsertStation(ctx, testStation("terpel_a")))
	require.NoError(t, s.Flush(ctx))

	all, err = s.ListAllStations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "flush must invalidate the cached snapshot")
}

func TestFlushWithoutWritesIsNoop(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Flush(context.Background()))
}

func TestCloseDiscardsOpenGroup(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewStorage(ctx, dbPath, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, s.UpsertStation(ctx, testStation("terpel_a")))
	// Close without Flush: the uncommitted group is rolled back.
	require.NoError(t, s.Close())

	s, err = NewStorage(ctx, dbPath, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer s.Close()

	count, err := s.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetStationNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetStation(context.Background(), "terpel_nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentIngestionRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	const perRun = 30
	var wg sync.WaitGroup
	for run := 0; run < 2; run++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()
			for i := 0; i < perRun; i++ {
				st := testStation(fmt.Sprintf("terpel_%d_%d", run, i))
				if err := s.UpsertStation(ctx, st); err != nil {
					t.Error(err)
					return
				}
			}
			if err := s.Flush(ctx); err != nil {
				t.Error(err)
			}
		}(run)
	}
	wg.Wait()

	count, err := s.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*perRun, count)
}

func TestLastUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	last, err := s.LastUpdate(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "empty database has no last update")

	older := testStation("terpel_a")
	newer := testStation("terpel_b")
	newer.UpdatedAt = older.UpdatedAt.Add(2 * time.Hour)

	require.NoError(t, s.UpsertStation(ctx, older))
	require.NoError(t, s.UpsertStation(ctx, newer))
	require.NoError(t, s.Flush(ctx))

	last, err = s.LastUpdate(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, newer.UpdatedAt, *last)
}

func TestEmptyPriceMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	st := testStation("terpel_a")
	st.Prices = station.PriceMap{}
	st.Services = nil
	st.Programs = nil

	require.NoError(t, s.UpsertStation(ctx, st))
	require.NoError(t, s.Flush(ctx))

	got, err := s.GetStation(ctx, "terpel_a")
	require.NoError(t, err)
	assert.Empty(t, got.Prices)
	assert.Empty(t, got.Services)
}
