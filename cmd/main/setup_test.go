package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signal-monitor/src/config"
	"signal-monitor/src/control"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"
	"signal-monitor/src/server"
	"signal-monitor/src/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedProvider struct{}

func (fixedProvider) Name() string { return "fixed" }

func (fixedProvider) GetHistory(ctx context.Context, instrument string, start, end time.Time) ([]models.MPricePoint, error) {
	pts := make([]models.MPricePoint, 25)
	for i := range pts {
		pts[i] = models.MPricePoint{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	return pts, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf := config.Default()
	conf.Storage.DBType = "sqlite"
	conf.Storage.DBPath = filepath.Join(t.TempDir(), "trading.db")
	conf.Viewer.Enabled = false
	conf.Grpc.Enabled = false
	return conf
}

func TestSetupStoreInitializesSQLite(t *testing.T) {
	conf := testConfig(t)
	store := setupStore(conf.MConfig, logger.NewLogger(nil, "test"))
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.EnsureConnection(ctx))
	require.NoError(t, store.SaveTrade(ctx, models.MTradeResult{
		Instrument: "AAPL", Action: models.ActionBuy, Price: 150, Amount: 10, Balance: 10000, Timestamp: time.Now(),
	}))
}

func TestSetupDataSourcesBuildsYahooChain(t *testing.T) {
	conf := testConfig(t)
	ms := setupDataSources(conf.MConfig, logger.NewLogger(nil, "test"))

	sources := ms.GetAllSources()
	require.Len(t, sources, 1)
	assert.Equal(t, "yahoo", sources[0].Name())
}

func TestSetupCacheLoadsThroughBuilder(t *testing.T) {
	conf := testConfig(t)
	c := setupCache(conf, fixedProvider{}, setupAnalysis(conf.MConfig))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	series, err := c.Load(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Instrument)
	assert.Equal(t, 25, series.Len())
	assert.Len(t, series.EMA, 25)
}

func TestStartServersStopsOnCancel(t *testing.T) {
	conf := testConfig(t)
	appLogger := logger.NewLogger(nil, "test")

	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)
	ctrl := control.NewServer(st, nil, control.Options{}, nil)
	require.NoError(t, ctrl.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	startServers(ctx, &wg, conf, ctrl, server.StatusSources{State: st}, nil, appLogger)

	client, err := control.Dial(context.Background(), ctrl.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.SetStrategy("MA"))
	require.Eventually(t, func() bool { return st.GetStrategy() == models.StrategyMA }, time.Second, 5*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}
}
