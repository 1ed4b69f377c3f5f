package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-monitor/src/analysis"
	"signal-monitor/src/models"
	"signal-monitor/src/state"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCache map[string]*models.MCachedSeries

func (c staticCache) Get(instrument string) (*models.MCachedSeries, bool) {
	s, ok := c[instrument]
	return s, ok
}

func (c staticCache) Instruments() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}

type onePeer struct{}

func (onePeer) ActivePeer() (models.MPeerInfo, bool) {
	return models.MPeerInfo{ID: "peer-1", RemoteAddr: "127.0.0.1:5000"}, true
}

type stats struct{}

func (stats) Stats() models.MDispatchStats { return models.MDispatchStats{Dispatched: 3, Persisted: 2} }

type alwaysOpen struct{}

func (alwaysOpen) IsOpen(string) bool { return true }

func fixture(t *testing.T) (*ChartServer, *state.SharedState) {
	t.Helper()
	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)

	pts := make([]models.MPricePoint, 25)
	for i := range pts {
		pts[i] = models.MPricePoint{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i), Close: 100 + float64(i)}
	}
	cache := staticCache{
		"AAPL": analysis.BuildSeries("AAPL", pts, 20, 20, time.Now()),
		"MSFT": analysis.BuildSeries("MSFT", pts[:3], 20, 20, time.Now()),
	}

	cfg := &models.MConfig{
		Viewer:     models.MViewerConfig{PollIntervalSeconds: 3600},
		DataSource: models.MDataSourceConfig{EMASpan: 20, MAWindow: 20},
	}
	srv := NewChartServer(cfg, StatusSources{
		State:    st,
		Cache:    cache,
		Peers:    onePeer{},
		Dispatch: stats{},
		Clock:    alwaysOpen{},
	}, nil)
	return srv, st
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// -----------------------------------------------------------------------------

func TestChartEndpoint(t *testing.T) {
	srv, st := fixture(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var snap models.MChartSnapshot
	getJSON(t, ts.URL+"/api/chart", &snap)
	assert.Equal(t, "AAPL", snap.Instrument)
	assert.Equal(t, "20 Day EMA", snap.IndicatorLabel)
	require.Len(t, snap.Points, 25)
	assert.NotNil(t, snap.Points[0].Indicator)
	assert.NotNil(t, snap.Summary)

	_, _ = st.SetStrategy("MA")
	getJSON(t, ts.URL+"/api/chart", &snap)
	assert.Equal(t, "20 Day MA", snap.IndicatorLabel)
	assert.Nil(t, snap.Points[0].Indicator)
	assert.NotNil(t, snap.Points[24].Indicator)

	_, _ = st.SetInstrument("TSLA")
	snap = models.MChartSnapshot{}
	getJSON(t, ts.URL+"/api/chart", &snap)
	assert.Equal(t, "TSLA", snap.Instrument)
	assert.Empty(t, snap.Points)
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := fixture(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var status models.MStatus
	getJSON(t, ts.URL+"/api/status", &status)
	assert.Equal(t, "AAPL", status.State.Instrument)
	assert.Equal(t, 10000.0, status.State.Balance)
	require.NotNil(t, status.ActivePeer)
	assert.Equal(t, "peer-1", status.ActivePeer.ID)
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, status.CachedInstruments)
	assert.True(t, status.MarketOpen)
	assert.Equal(t, uint64(3), status.Dispatch.Dispatched)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := fixture(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var health map[string]interface{}
	getJSON(t, ts.URL+"/api/health", &health)
	assert.Equal(t, "ok", health["status"])
}

func TestWebSocketReceivesPolls(t *testing.T) {
	srv, st := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first models.MChartSnapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "AAPL", first.Instrument)

	_, _ = st.SetInstrument("MSFT")
	srv.Poll()

	var next models.MChartSnapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "MSFT", next.Instrument)
	assert.Len(t, next.Points, 3)
}

func TestBuildStatusWithoutOptionalSources(t *testing.T) {
	st, err := state.NewSharedState("AAPL", models.StrategyMA, 5)
	require.NoError(t, err)

	status := BuildStatus(StatusSources{State: st}, time.Unix(100, 0))
	assert.Nil(t, status.ActivePeer)
	assert.Empty(t, status.CachedInstruments)
	assert.False(t, status.MarketOpen)
	assert.Equal(t, int64(100), status.Timestamp)
}

func TestCORSAllowsLocalDashboardOnly(t *testing.T) {
	srv, _ := fixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
