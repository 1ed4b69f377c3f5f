package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"signal-monitor/src/config"
	"signal-monitor/src/control"
	"signal-monitor/src/dispatch"
	"signal-monitor/src/engine"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/server"
	"signal-monitor/src/state"
	"signal-monitor/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	defer appLogger.Sync()

	// 4. Shared state
	strategy, err := models.ParseStrategy(conf.Engine.Strategy)
	if err != nil {
		appLogger.Critical("Invalid strategy: %v", err)
	}
	st, err := state.NewSharedState(conf.Engine.Instrument, strategy, conf.Engine.Balance())
	if err != nil {
		appLogger.Critical("Invalid initial state: %v", err)
	}

	// 5. Setup Components
	store := setupStore(conf.MConfig, appLogger)
	defer store.Close()

	multiSource := setupDataSources(conf.MConfig, appLogger)
	analyzer := setupAnalysis(conf.MConfig)
	marketCache := setupCache(conf, multiSource, analyzer)

	controlServer := control.NewServer(st, marketCache, control.Options{
		MaxMessageBytes: conf.Control.MaxMessageBytes,
		WriteTimeout:    config.Seconds(conf.Control.WriteTimeoutSeconds),
	}, logger.NewLogger(conf.MConfig, "ControlServer"))

	controlAddr := fmt.Sprintf("%s:%d", conf.Control.Host, conf.Control.Port)
	if err := controlServer.Listen(controlAddr); err != nil {
		appLogger.Critical("Failed to bind control socket: %v", err)
	}

	dispatcher := dispatch.NewDispatcher(store, controlServer, logger.NewLogger(conf.MConfig, "Dispatcher"))
	scheduler := utils.NewMarketScheduler(logger.NewLogger(conf.MConfig, "MarketScheduler"))

	strategyEngine := engine.NewEngine(st, marketCache, dispatcher, scheduler, engine.Options{
		TickInterval:    config.Seconds(conf.Engine.TickIntervalSeconds),
		WaitTimeout:     config.Seconds(conf.Engine.WaitTimeoutSeconds),
		TradeAmount:     conf.Engine.TradeAmount,
		MarketHoursOnly: conf.Engine.MarketHoursOnly,
	}, logger.NewLogger(conf.MConfig, "StrategyEngine"))

	// 6. Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Initial Load
	appLogger.Info("Loading %s before serving...", st.GetInstrument())
	loadCtx, cancelLoad := context.WithTimeout(ctx, config.Seconds(conf.Engine.WaitTimeoutSeconds))
	if _, err := marketCache.Load(loadCtx, st.GetInstrument()); err != nil {
		appLogger.Warning("Initial load failed: %v", err)
	}
	cancelLoad()

	// 8. Start Servers
	sources := server.StatusSources{
		State:    st,
		Cache:    marketCache,
		Peers:    controlServer,
		Dispatch: dispatcher,
		Clock:    scheduler,
	}

	var wg sync.WaitGroup
	startServers(ctx, &wg, conf, controlServer, sources, multiSource, appLogger)

	// 9. Run Engine (Blocking)
	appLogger.Info("Starting strategy engine (every %s)...", config.Seconds(conf.Engine.TickIntervalSeconds))
	strategyEngine.Run(ctx)

	appLogger.Info("Shutting down...")
	controlServer.Close()
	marketCache.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		appLogger.Warning("Timed out waiting for servers to stop")
	}
	appLogger.Info("Shutdown complete.")
}
