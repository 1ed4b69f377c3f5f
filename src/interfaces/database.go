package interfaces

import (
	"context"

	"signal-monitor/src/models"
)

// -----------------------------------------------------------------------------
// ITradeStore defines the contract for the insert-only trade sink.
// -----------------------------------------------------------------------------

type ITradeStore interface {

	// -----------------------------------------------------------------------------

	// Initialize connects and creates the trade table if missing.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// EnsureConnection checks the connection and reconnects once if it is stale.
	EnsureConnection(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// SaveTrade inserts one trade row.
	SaveTrade(ctx context.Context, trade models.MTradeResult) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
