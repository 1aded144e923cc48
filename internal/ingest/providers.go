package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nmoreras/fuelradar/internal/station"
	"github.com/nmoreras/fuelradar/pkg/terpel"
)

// ErrUnknownProvider is returned by FromProvider for a tag no provider
// registered.
var ErrUnknownProvider = fmt.Errorf("unknown provider")

// FromProvider fetches the named provider's feed and ingests it. A feed
// fetch failure propagates unmodified; per-record failures only show up
// in the report. New providers plug in here with their own client and
// normalization function.
func FromProvider(ctx context.Context, tag string, repo station.Repository, log *slog.Logger) (Report, error) {
	switch tag {
	case terpel.Source:
		return fromTerpel(ctx, repo, log)
	default:
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownProvider, tag)
	}
}

func fromTerpel(ctx context.Context, repo station.Repository, log *slog.Logger) (Report, error) {
	raws, err := terpel.NewClient().FetchStations(ctx)
	if err != nil {
		return Report{}, err
	}

	b := &Batcher[terpel.RawStation]{
		Normalize: terpel.Normalize,
		Repo:      repo,
		Log:       log,
	}
	return b.Ingest(ctx, raws)
}
