package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"signal-monitor/src/helpers"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
)

// sqlStore is the part of the relational trade sinks that does not depend
// on the driver.
type sqlStore struct {
	driver    string
	dsn       string
	insertSQL string
	// setup runs after every (re)connect, before the store is used.
	setup func(ctx context.Context, db *sql.DB) error

	Logger *logger.Logger

	mu sync.Mutex
	DB *sql.DB
}

// -----------------------------------------------------------------------------

func (s *sqlStore) connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if s.setup != nil {
		if err := s.setup(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Initialize connects and prepares the schema.
func (s *sqlStore) Initialize(ctx context.Context) error {
	db, err := s.connect(ctx)
	if err != nil {
		return helpers.NewPersistenceError("initialize "+s.driver, err)
	}

	s.mu.Lock()
	old := s.DB
	s.DB = db
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// EnsureConnection pings the current handle and reconnects once on failure.
func (s *sqlStore) EnsureConnection(ctx context.Context) error {
	s.mu.Lock()
	db := s.DB
	s.mu.Unlock()

	if db != nil {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		s.Logger.Warning("%s connection lost: %v. Reconnecting...", s.driver, err)
	}

	if err := s.Initialize(ctx); err != nil {
		return err
	}
	s.Logger.Info("%s reconnected", s.driver)
	return nil
}

// -----------------------------------------------------------------------------

// SaveTrade inserts one row.
func (s *sqlStore) SaveTrade(ctx context.Context, trade models.MTradeResult) error {
	s.mu.Lock()
	db := s.DB
	s.mu.Unlock()

	if db == nil {
		return helpers.NewPersistenceError("save trade", fmt.Errorf("%s store not initialized", s.driver))
	}

	_, err := db.ExecContext(ctx, s.insertSQL,
		string(trade.Action),
		trade.Price,
		trade.Amount,
		trade.Timestamp.Format(models.TimestampLayout),
		trade.Instrument,
	)
	if err != nil {
		return helpers.NewPersistenceError("save trade", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	s.mu.Lock()
	db := s.DB
	s.DB = nil
	s.mu.Unlock()

	if db != nil {
		return db.Close()
	}
	return nil
}
