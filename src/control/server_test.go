package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/models"
	"signal-monitor/src/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLoader struct {
	mu    sync.Mutex
	loads []string
}

func (r *recordingLoader) TriggerLoad(instrument string) {
	r.mu.Lock()
	r.loads = append(r.loads, instrument)
	r.mu.Unlock()
}

func (r *recordingLoader) Loads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loads...)
}

func startServer(t *testing.T, opts Options) (*Server, *state.SharedState, *recordingLoader) {
	t.Helper()
	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)
	loader := &recordingLoader{}

	srv := NewServer(st, loader, opts, nil)
	require.NoError(t, srv.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, srv.Serve(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		srv.Close()
		<-done
	})
	return srv, st, loader
}

func dial(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForPeer(t *testing.T, srv *Server) models.MPeerInfo {
	t.Helper()
	var info models.MPeerInfo
	require.Eventually(t, func() bool {
		var ok bool
		info, ok = srv.ActivePeer()
		return ok
	}, time.Second, 5*time.Millisecond)
	return info
}

// -----------------------------------------------------------------------------

func TestCompanyMessageSetsInstrumentAndTriggersLoad(t *testing.T) {
	srv, st, loader := startServer(t, Options{})
	conn := dial(t, srv)

	_, err := conn.Write([]byte(`{"type":"company","value":"msft"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return st.GetInstrument() == "MSFT" }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(loader.Loads()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"MSFT"}, loader.Loads())
}

func TestFramingAcrossAndWithinReads(t *testing.T) {
	srv, st, loader := startServer(t, Options{})
	conn := dial(t, srv)

	// One record split over two writes, then two records and a blank line in one write.
	_, err := conn.Write([]byte(`{"type":"comp`))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte(`any","value":"TSLA"}` + "\r\n"))
	require.NoError(t, err)
	_, err = conn.Write([]byte(`{"type":"strategy","value":"Moving Average"}` + "\n\n" + `{"type":"company","value":"NVDA"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(loader.Loads()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"TSLA", "NVDA"}, loader.Loads())
	assert.Equal(t, "NVDA", st.GetInstrument())
	assert.Equal(t, models.StrategyMA, st.GetStrategy())
}

func TestMalformedAndRejectedKeepConnectionOpen(t *testing.T) {
	srv, st, _ := startServer(t, Options{})
	conn := dial(t, srv)

	_, err := conn.Write([]byte("not json\n" +
		`{"type":"strategy","value":"RSI"}` + "\n" +
		`{"type":"weather","value":"sunny"}` + "\n" +
		`{"type":"strategy","value":"ma"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return st.GetStrategy() == models.StrategyMA }, time.Second, 5*time.Millisecond)
	_, ok := srv.ActivePeer()
	assert.True(t, ok)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	srv, _, _ := startServer(t, Options{MaxMessageBytes: 64})
	conn := dial(t, srv)
	waitForPeer(t, srv)

	big := make([]byte, 256)
	for i := range big {
		big[i] = 'x'
	}
	_, _ = conn.Write(big)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err)

	require.Eventually(t, func() bool {
		_, ok := srv.ActivePeer()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestOversizedValidMessageIsNotApplied(t *testing.T) {
	srv, st, _ := startServer(t, Options{MaxMessageBytes: 64})
	conn := dial(t, srv)
	waitForPeer(t, srv)

	// Well-formed JSON that would switch the strategy if the limit were ignored.
	pad := strings.Repeat(" ", 1000)
	_, err := conn.Write([]byte(`{"type":"strategy",` + pad + `"value":"ma"}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := srv.ActivePeer()
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, models.StrategyEMA, st.GetStrategy())
}

func TestActivePeerFollowsAcceptOrder(t *testing.T) {
	srv, _, _ := startServer(t, Options{})

	var last net.Conn
	for i := 0; i < 4; i++ {
		last = dial(t, srv)
	}

	require.Eventually(t, func() bool {
		info, ok := srv.ActivePeer()
		return ok && info.RemoteAddr == last.LocalAddr().String()
	}, time.Second, 5*time.Millisecond)
}

// -----------------------------------------------------------------------------

func TestDeliverToMostRecentPeer(t *testing.T) {
	srv, _, _ := startServer(t, Options{})

	first := dial(t, srv)
	firstInfo := waitForPeer(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool {
		info, ok := srv.ActivePeer()
		return ok && info.ID != firstInfo.ID
	}, time.Second, 5*time.Millisecond)

	trade := models.MTradeResult{
		Instrument: "AAPL",
		Action:     models.ActionSell,
		Price:      190.5,
		Amount:     10,
		Balance:    10000,
		Timestamp:  time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local),
	}
	require.NoError(t, srv.Deliver(context.Background(), trade))

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(second).ReadBytes('\n')
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &got))
	assert.Equal(t, "SELL", got["action"])
	assert.Equal(t, 190.5, got["price"])
	assert.Equal(t, 10.0, got["amount"])
	assert.Equal(t, 10000.0, got["balance"])
	assert.Equal(t, "2024-01-02 15:04:05", got["timestamp"])

	_ = first.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err = first.Read(make([]byte, 1))
	assert.Error(t, err, "older connection receives nothing")
}

func TestDeliverWithoutPeer(t *testing.T) {
	srv, _, _ := startServer(t, Options{})
	err := srv.Deliver(context.Background(), models.MTradeResult{Action: models.ActionBuy, Timestamp: time.Now()})
	assert.ErrorIs(t, err, helpers.ErrNoActivePeer)
}

func TestPeerClearedOnDisconnect(t *testing.T) {
	srv, _, _ := startServer(t, Options{})
	conn := dial(t, srv)
	waitForPeer(t, srv)

	conn.Close()
	require.Eventually(t, func() bool {
		_, ok := srv.ActivePeer()
		return !ok
	}, time.Second, 5*time.Millisecond)

	err := srv.Deliver(context.Background(), models.MTradeResult{Action: models.ActionBuy, Timestamp: time.Now()})
	assert.ErrorIs(t, err, helpers.ErrNoActivePeer)
}

func TestDeliverFailureClearsPeer(t *testing.T) {
	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)
	srv := NewServer(st, nil, Options{WriteTimeout: 50 * time.Millisecond}, nil)

	local, remote := net.Pipe()
	remote.Close()
	srv.setPeer(&Peer{ID: "pipe", conn: local, addr: "pipe", connectedAt: time.Now()})

	err = srv.Deliver(context.Background(), models.MTradeResult{Action: models.ActionBuy, Timestamp: time.Now()})
	var dErr *helpers.DeliveryError
	require.ErrorAs(t, err, &dErr)

	_, ok := srv.ActivePeer()
	assert.False(t, ok)
}

func TestApplyDirect(t *testing.T) {
	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)
	loader := &recordingLoader{}
	srv := NewServer(st, loader, Options{}, nil)

	require.NoError(t, srv.Apply(models.MControlMessage{Type: "company", Value: " goog "}))
	assert.Equal(t, "GOOG", st.GetInstrument())
	assert.ErrorIs(t, srv.Apply(models.MControlMessage{Type: "company", Value: ""}), helpers.ErrEmptyInstrument)
	assert.ErrorIs(t, srv.Apply(models.MControlMessage{Type: "strategy", Value: "x"}), helpers.ErrRejectedStrategy)
	assert.Equal(t, []string{"GOOG"}, loader.Loads())
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"strategy","value":"EMA"}`))
	require.NoError(t, err)
	assert.Equal(t, models.MControlMessage{Type: "strategy", Value: "EMA"}, msg)

	_, err = DecodeMessage([]byte(`{"value":"EMA"}`))
	assert.ErrorIs(t, err, helpers.ErrMalformedControlMessage)
	_, err = DecodeMessage([]byte(`{`))
	assert.ErrorIs(t, err, helpers.ErrMalformedControlMessage)
}
