package control

import (
	"context"
	"testing"
	"time"

	"signal-monitor/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTrip(t *testing.T) {
	srv, st, loader := startServer(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Dial(ctx, srv.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SetInstrument("goog"))
	require.NoError(t, client.SetStrategy("MA"))
	require.Eventually(t, func() bool {
		return st.GetInstrument() == "GOOG" && st.GetStrategy() == models.StrategyMA
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"GOOG"}, loader.Loads())

	waitForPeer(t, srv)
	trade := models.MTradeResult{
		Instrument: "GOOG",
		Action:     models.ActionSell,
		Price:      140.5,
		Amount:     10,
		Balance:    10000,
		Timestamp:  time.Date(2026, 1, 5, 10, 0, 0, 0, time.Local),
	}
	require.NoError(t, srv.Deliver(ctx, trade))

	got, err := client.Next()
	require.NoError(t, err)
	assert.Equal(t, trade, got)
}
