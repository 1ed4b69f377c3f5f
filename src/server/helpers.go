package server

import (
	"time"

	"signal-monitor/src/interfaces"
	"signal-monitor/src/models"
)

// StatusSources are the read-only views a status report aggregates.
// Any field except State may be nil.
type StatusSources struct {
	State    interfaces.IStateReader
	Cache    interfaces.ISeriesReader
	Peers    interfaces.IPeerRegistry
	Dispatch interfaces.IDispatchReporter
	Clock    interfaces.IMarketClock
}

// -----------------------------------------------------------------------------

// BuildStatus reads every source once. It is shared by the HTTP viewer and
// the gRPC control service.
func BuildStatus(src StatusSources, now time.Time) models.MStatus {
	status := models.MStatus{
		State:             src.State.Snapshot(),
		CachedInstruments: []string{},
		Timestamp:         now.Unix(),
	}

	if src.Cache != nil {
		status.CachedInstruments = src.Cache.Instruments()
	}
	if src.Peers != nil {
		if peer, ok := src.Peers.ActivePeer(); ok {
			status.ActivePeer = &peer
		}
	}
	if src.Dispatch != nil {
		status.Dispatch = src.Dispatch.Stats()
	}
	if src.Clock != nil {
		status.MarketOpen = src.Clock.IsOpen(status.State.Instrument)
	}
	return status
}
