package storage

import (
	"fmt"

	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
)

// NewTradeStore builds the sink selected by storage.db_type.
func NewTradeStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ITradeStore, error) {
	switch cfg.Storage.DBType {
	case "sqlite", "":
		return NewSQLiteTradeStore(cfg, log), nil
	case "postgres":
		return NewPostgresTradeStore(cfg, log)
	case "redis":
		return NewRedisTradeStore(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Storage.DBType)
	}
}
