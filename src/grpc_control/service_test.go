package grpc_control

import (
	"context"
	"net"
	"testing"
	"time"

	"signal-monitor/src/control"
	datasource "signal-monitor/src/data_source"
	"signal-monitor/src/models"
	"signal-monitor/src/server"
	"signal-monitor/src/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type namedSource struct{ name string }

func (n namedSource) Name() string { return n.name }

func (n namedSource) GetHistory(ctx context.Context, instrument string, start, end time.Time) ([]models.MPricePoint, error) {
	return nil, nil
}

type loadRecorder struct{ loads chan string }

func (l *loadRecorder) TriggerLoad(instrument string) { l.loads <- instrument }

func startControl(t *testing.T) (*ControlClient, *state.SharedState, *loadRecorder) {
	t.Helper()
	st, err := state.NewSharedState("AAPL", models.StrategyEMA, 10000)
	require.NoError(t, err)
	loader := &loadRecorder{loads: make(chan string, 4)}
	applier := control.NewServer(st, loader, control.Options{}, nil)

	ds := datasource.NewMultiSourceManager(nil, nil)
	require.NoError(t, ds.AddSource(namedSource{name: "yahoo"}))

	svc := NewControlService(applier, server.StatusSources{State: st}, ds, nil)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, ServeListener(ctx, lis, svc, nil))
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return NewControlClient(conn), st, loader
}

func TestSetInstrumentUpdatesStateAndTriggersLoad(t *testing.T) {
	client, st, loader := startControl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.SetInstrument(ctx, " msft ")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", out.GetFields()["instrument"].GetStringValue())
	assert.Equal(t, "MSFT", st.GetInstrument())

	select {
	case got := <-loader.loads:
		assert.Equal(t, "MSFT", got)
	case <-time.After(2 * time.Second):
		t.Fatal("load was not triggered")
	}
}

func TestSetStrategyRejectsUnknown(t *testing.T) {
	client, st, _ := startControl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.SetStrategy(ctx, "bollinger")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, models.StrategyEMA, st.GetStrategy())

	out, err := client.SetStrategy(ctx, "Moving Average")
	require.NoError(t, err)
	assert.Equal(t, string(models.StrategyMA), out.GetFields()["strategy"].GetStringValue())
}

func TestEmptyInstrumentIsInvalidArgument(t *testing.T) {
	client, st, _ := startControl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.SetInstrument(ctx, "   ")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "AAPL", st.GetInstrument())
}

func TestGetStatusAndListSources(t *testing.T) {
	client, _, _ := startControl(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := client.GetStatus(ctx)
	require.NoError(t, err)
	stateFields := out.GetFields()["state"].GetStructValue().GetFields()
	assert.Equal(t, "AAPL", stateFields["instrument"].GetStringValue())
	assert.Equal(t, 10000.0, stateFields["balance"].GetNumberValue())

	srcs, err := client.ListSources(ctx)
	require.NoError(t, err)
	list := srcs.GetFields()["sources"].GetListValue().GetValues()
	require.Len(t, list, 1)
	assert.Equal(t, "yahoo", list[0].GetStringValue())
}
