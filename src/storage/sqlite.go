package storage

import (
	"context"
	"database/sql"
	"fmt"

	"signal-monitor/src/logger"
	"signal-monitor/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

// SQLiteTradeStore writes trades to an embedded SQLite file.
type SQLiteTradeStore struct {
	sqlStore
	Config *models.MConfig
}

// -----------------------------------------------------------------------------

func NewSQLiteTradeStore(cfg *models.MConfig, log *logger.Logger) *SQLiteTradeStore {
	if log == nil {
		log = logger.NewLogger(cfg, "SQLiteTradeStore")
	}
	d := &SQLiteTradeStore{Config: cfg}
	d.sqlStore = sqlStore{
		driver:    "sqlite",
		dsn:       cfg.Storage.DBPath,
		insertSQL: `INSERT INTO trade (action, price, amount, timestamp, instrument) VALUES (?, ?, ?, ?, ?)`,
		setup:     d.setup,
		Logger:    log,
	}
	return d
}

// -----------------------------------------------------------------------------

func (d *SQLiteTradeStore) setup(ctx context.Context, db *sql.DB) error {
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS trade (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			price REAL NOT NULL,
			amount REAL NOT NULL,
			timestamp TEXT NOT NULL,
			instrument TEXT NOT NULL DEFAULT ''
		);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create trade table: %w", err)
	}

	d.Logger.Info("SQLite trade store ready at %s", d.dsn)
	return nil
}
