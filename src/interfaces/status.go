package interfaces

import "signal-monitor/src/models"

// -----------------------------------------------------------------------------
// Read-only views the status surfaces (HTTP viewer, gRPC) aggregate.
// -----------------------------------------------------------------------------

// IPeerRegistry exposes the active control connection.
type IPeerRegistry interface {
	ActivePeer() (models.MPeerInfo, bool)
}

// IDispatchReporter exposes dispatcher counters.
type IDispatchReporter interface {
	Stats() models.MDispatchStats
}

// IMarketClock reports whether an instrument's exchange is open.
type IMarketClock interface {
	IsOpen(instrument string) bool
}

// ISeriesReader gives non-blocking access to cached market data.
type ISeriesReader interface {
	Get(instrument string) (*models.MCachedSeries, bool)
	Instruments() []string
}

// IStateReader reads a consistent copy of the shared state.
type IStateReader interface {
	Snapshot() models.MStateSnapshot
}
