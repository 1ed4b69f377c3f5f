package interfaces

import (
	"context"
	"time"

	"signal-monitor/src/models"
)

// -----------------------------------------------------------------------------
// IHistoryProvider fetches daily close history for one instrument.
// -----------------------------------------------------------------------------

type IHistoryProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// GetHistory returns closes in [start, end] ordered by date.
	// An instrument with no data yields an empty slice, not an error.
	GetHistory(ctx context.Context, instrument string, start, end time.Time) ([]models.MPricePoint, error)
}

// -----------------------------------------------------------------------------
// ISeriesBuilder turns provider points into a cached series with indicators.
// -----------------------------------------------------------------------------

type ISeriesBuilder interface {
	BuildSeries(instrument string, points []models.MPricePoint, now time.Time) *models.MCachedSeries
}

// -----------------------------------------------------------------------------
// ILoadTrigger starts an asynchronous cache load for an instrument.
// -----------------------------------------------------------------------------

type ILoadTrigger interface {
	TriggerLoad(instrument string)
}
