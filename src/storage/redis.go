package storage

import (
	"context"
	"strconv"
	"sync"

	"signal-monitor/src/helpers"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisTradeStore appends each trade to a Redis stream.
type RedisTradeStore struct {
	Config *models.MConfig
	Stream string
	Logger *logger.Logger

	mu     sync.Mutex
	Client *redis.Client
}

// -----------------------------------------------------------------------------

func NewRedisTradeStore(cfg *models.MConfig, log *logger.Logger) *RedisTradeStore {
	if log == nil {
		log = logger.NewLogger(cfg, "RedisTradeStore")
	}
	return &RedisTradeStore{
		Config: cfg,
		Stream: cfg.Storage.RedisStream,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (r *RedisTradeStore) newClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     r.Config.Storage.RedisAddr,
		Password: r.Config.Storage.RedisPassword,
	})
}

func (r *RedisTradeStore) Initialize(ctx context.Context) error {
	client := r.newClient()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return helpers.NewPersistenceError("initialize redis", err)
	}

	r.mu.Lock()
	old := r.Client
	r.Client = client
	r.mu.Unlock()

	if old != nil {
		old.Close()
	}
	r.Logger.Info("Redis trade store ready (%s, stream %s)", r.Config.Storage.RedisAddr, r.Stream)
	return nil
}

// -----------------------------------------------------------------------------

// EnsureConnection pings and builds a fresh client once on failure.
func (r *RedisTradeStore) EnsureConnection(ctx context.Context) error {
	r.mu.Lock()
	client := r.Client
	r.mu.Unlock()

	if client != nil {
		err := client.Ping(ctx).Err()
		if err == nil {
			return nil
		}
		r.Logger.Warning("redis connection lost: %v. Reconnecting...", err)
	}
	return r.Initialize(ctx)
}

// -----------------------------------------------------------------------------

func (r *RedisTradeStore) SaveTrade(ctx context.Context, trade models.MTradeResult) error {
	r.mu.Lock()
	client := r.Client
	r.mu.Unlock()

	if client == nil {
		return helpers.NewPersistenceError("save trade", redis.ErrClosed)
	}

	err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.Stream,
		Values: map[string]interface{}{
			"action":     string(trade.Action),
			"price":      strconv.FormatFloat(trade.Price, 'f', -1, 64),
			"amount":     strconv.FormatFloat(trade.Amount, 'f', -1, 64),
			"timestamp":  trade.Timestamp.Format(models.TimestampLayout),
			"instrument": trade.Instrument,
		},
	}).Err()
	if err != nil {
		return helpers.NewPersistenceError("save trade", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisTradeStore) Close() error {
	r.mu.Lock()
	client := r.Client
	r.Client = nil
	r.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}
