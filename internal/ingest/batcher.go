// Package ingest drives provider records through normalization and
// into the station repository, isolating per-record failures so one bad
// record never sinks the batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nmoreras/fuelradar/internal/station"
)

// DefaultCheckpointEvery is how many attempted records fit in one
// durability group. The boundary is a durability/latency trade-off
// only: committing more or less often yields the same final state.
const DefaultCheckpointEvery = 50

// Report summarizes one ingestion run.
type Report struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []RecordError `json:"errors,omitempty"`
}

// RecordError identifies one record that failed, with its cause.
type RecordError struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("station %q: %v", e.Name, e.Err)
}

// Batcher ingests raw provider records of type R. Normalize is the
// provider's pure normalization function; records it rejects are
// counted and skipped. Successfully normalized stations are upserted
// and committed in checkpoint groups.
type Batcher[R any] struct {
	Normalize       func(R) (station.Station, error)
	Repo            station.Repository
	Log             *slog.Logger
	CheckpointEvery int // 0 means DefaultCheckpointEvery
}

// Ingest processes records in input order. A record that fails to
// normalize or persist is recorded and skipped; the rest of the batch
// continues. A checkpoint commit runs every CheckpointEvery attempted
// records and once more after the last, so a crash mid-run loses at
// most one partial group. Only a failed checkpoint commit aborts the
// run.
func (b *Batcher[R]) Ingest(ctx context.Context, raws []R) (Report, error) {
	every := b.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}
	log := b.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var report Report
	for i, raw := range raws {
		st, err := b.Normalize(raw)
		if err != nil {
			report.fail(recordName(err), err)
			log.Warn("skipping record: normalization failed", "error", err)
		} else if err := b.Repo.UpsertStation(ctx, st); err != nil {
			report.fail(st.Name, err)
			log.Warn("skipping record: upsert failed", "station", st.Name, "id", st.ID, "error", err)
		} else {
			report.Succeeded++
		}

		if (i+1)%every == 0 {
			if err := b.Repo.Flush(ctx); err != nil {
				return report, fmt.Errorf("checkpoint commit: %w", err)
			}
		}
	}

	if err := b.Repo.Flush(ctx); err != nil {
		return report, fmt.Errorf("final commit: %w", err)
	}

	log.Info("ingestion finished", "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}

func (r *Report) fail(name string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, RecordError{Name: name, Err: err})
}

func recordName(err error) string {
	var nerr *station.NormalizationError
	if errors.As(err, &nerr) {
		return nerr.Name
	}
	return ""
}
