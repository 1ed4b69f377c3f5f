package main

import (
	"context"
	"time"

	"signal-monitor/src/analysis"
	"signal-monitor/src/cache"
	"signal-monitor/src/config"
	datasource "signal-monitor/src/data_source"
	"signal-monitor/src/data_source/yahoo"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/network"
	"signal-monitor/src/storage"
)

// -----------------------------------------------------------------------------

const storeInitTimeout = 10 * time.Second

// setupStore opens the trade sink. Failure is fatal only when storage.required
// is set; otherwise the dispatcher keeps retrying through EnsureConnection.
func setupStore(cfg *models.MConfig, appLogger *logger.Logger) interfaces.ITradeStore {
	storeLogger := logger.NewLogger(cfg, "TradeStore")
	store, err := storage.NewTradeStore(cfg, storeLogger)
	if err != nil {
		appLogger.Critical("Failed to init trade store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeInitTimeout)
	defer cancel()
	if err := store.Initialize(ctx); err != nil {
		if cfg.Storage.Required {
			appLogger.Critical("Failed to initialize trade store: %v", err)
		}
		appLogger.Warning("Trade store unavailable, continuing without persistence for now: %v", err)
	}
	return store
}

// -----------------------------------------------------------------------------

// setupDataSources builds the provider chain. Yahoo is the only provider
// shipped; the manager keeps the fallback contract for additional ones.
func setupDataSources(cfg *models.MConfig, appLogger *logger.Logger) *datasource.MultiSourceManager {
	networkManager := network.NewAsyncNetworkManager(cfg, logger.NewLogger(cfg, "NetworkManager"))

	var sources []interfaces.IHistoryProvider
	switch cfg.DataSource.Name {
	case "", "yahoo":
		sources = append(sources, yahoo.NewYahooFinanceSource(networkManager, logger.NewLogger(cfg, "YahooSource")))
	default:
		appLogger.Critical("Unknown data source in config: %s", cfg.DataSource.Name)
	}

	appLogger.Info("Initializing MultiSourceManager for %d sources.", len(sources))
	return datasource.NewMultiSourceManager(sources, logger.NewLogger(cfg, "DataSources"))
}

// -----------------------------------------------------------------------------

func setupAnalysis(cfg *models.MConfig) *analysis.AnalysisFacade {
	return analysis.NewAnalysisFacade(cfg, logger.NewLogger(cfg, "Analysis"))
}

// -----------------------------------------------------------------------------

func setupCache(conf *config.Config, provider interfaces.IHistoryProvider, builder interfaces.ISeriesBuilder) *cache.MarketDataCache {
	return cache.NewMarketDataCache(provider, builder, cache.Options{
		MaxEntries:   conf.Cache.MaxEntries,
		LoadTimeout:  config.Seconds(conf.Cache.LoadTimeoutSeconds),
		HistoryRange: conf.HistoryRange,
		Now:          time.Now,
	}, logger.NewLogger(conf.MConfig, "MarketDataCache"))
}
