package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"signal-monitor/src/logger"
	"signal-monitor/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

// PostgresTradeStore writes trades into "<schema>"."trade".
type PostgresTradeStore struct {
	sqlStore
	Config *models.MConfig
	Schema string
}

// -----------------------------------------------------------------------------

// NewPostgresTradeStore uses storage.schema, or the executable name when the
// schema is not configured.
func NewPostgresTradeStore(cfg *models.MConfig, log *logger.Logger) (*PostgresTradeStore, error) {
	if log == nil {
		log = logger.NewLogger(cfg, "PostgresTradeStore")
	}

	schema := cfg.Storage.Schema
	if schema == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable name: %w", err)
		}
		name := filepath.Base(exe)
		schema = strings.TrimSuffix(name, filepath.Ext(name))
	}
	schema = strings.ReplaceAll(schema, `"`, "")

	d := &PostgresTradeStore{Config: cfg, Schema: schema}
	d.sqlStore = sqlStore{
		driver: "postgres",
		dsn:    cfg.Storage.DBConnectionString,
		insertSQL: fmt.Sprintf(
			`INSERT INTO "%s"."trade" (action, price, amount, timestamp, instrument) VALUES ($1, $2, $3, $4, $5)`,
			schema),
		setup:  d.setup,
		Logger: log,
	}
	return d, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresTradeStore) setup(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."trade" (
			id BIGSERIAL PRIMARY KEY,
			action VARCHAR(4) NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			instrument TEXT NOT NULL DEFAULT ''
		);
	`, d.Schema)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create trade table: %w", err)
	}

	d.Logger.Info("PostgresTradeStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}
