package models

// Control message kinds as they appear on the wire.
const (
	ControlTypeCompany  = "company"
	ControlTypeStrategy = "strategy"
)

// MControlMessage is one inbound record from the external controller.
type MControlMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// -----------------------------------------------------------------------------

// MStateSnapshot is a consistent read of the shared state.
type MStateSnapshot struct {
	Instrument string   `json:"instrument"`
	Strategy   Strategy `json:"strategy"`
	Balance    float64  `json:"balance"`
}

// MPeerInfo describes the active control connection.
type MPeerInfo struct {
	ID          string `json:"id"`
	RemoteAddr  string `json:"remote_addr"`
	ConnectedAt int64  `json:"connected_at"`
}

// MDispatchStats counts dispatcher outcomes since startup.
type MDispatchStats struct {
	Dispatched       uint64 `json:"dispatched"`
	Persisted        uint64 `json:"persisted"`
	PersistFailures  uint64 `json:"persist_failures"`
	Delivered        uint64 `json:"delivered"`
	DeliveryFailures uint64 `json:"delivery_failures"`
	NoPeerSkips      uint64 `json:"no_peer_skips"`
}

// MStatus is the viewer and gRPC status payload.
type MStatus struct {
	State             MStateSnapshot `json:"state"`
	ActivePeer        *MPeerInfo     `json:"active_peer"`
	CachedInstruments []string       `json:"cached_instruments"`
	MarketOpen        bool           `json:"market_open"`
	Dispatch          MDispatchStats `json:"dispatch"`
	Timestamp         int64          `json:"timestamp"`
}
