package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-monitor/src/control"
	"signal-monitor/src/grpc_control"
	"signal-monitor/src/logger"
	"signal-monitor/src/utils"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", fmt.Sprintf("%s:%d", utils.DefaultControlHost, utils.DefaultControlPort), "control socket address")
	grpcAddr := flag.String("grpc", "", "gRPC control address; when set, commands go over gRPC instead of the socket")
	company := flag.String("company", "", "instrument to monitor")
	strategy := flag.String("strategy", "", "strategy to apply (EMA or MA)")
	follow := flag.Bool("follow", true, "keep the socket open and print trade results")
	flag.Parse()

	appLogger := logger.NewLogger(nil, "Controller")
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *grpcAddr != "" {
		if err := runGRPC(ctx, *grpcAddr, *company, *strategy); err != nil {
			appLogger.Critical("gRPC control failed: %v", err)
		}
		return
	}

	if err := runSocket(ctx, *addr, *company, *strategy, *follow, appLogger); err != nil {
		appLogger.Critical("Control socket failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func runSocket(ctx context.Context, addr, company, strategy string, follow bool, log *logger.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	client, err := control.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()
	context.AfterFunc(ctx, func() { client.Close() })

	if company != "" {
		if err := client.SetInstrument(company); err != nil {
			return err
		}
		log.Info("Sent company %s", company)
	}
	if strategy != "" {
		if err := client.SetStrategy(strategy); err != nil {
			return err
		}
		log.Info("Sent strategy %s", strategy)
	}
	if !follow {
		return nil
	}

	log.Info("Waiting for trade results from %s", addr)
	for {
		result, err := client.Next()
		switch {
		case err == nil:
			fmt.Println(result.String())
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, control.ErrBadResult):
			log.Warning("%v", err)
		default:
			return err
		}
	}
}

// -----------------------------------------------------------------------------

func runGRPC(ctx context.Context, addr, company, strategy string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	client := grpc_control.NewControlClient(conn)

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if company != "" {
		if _, err := client.SetInstrument(callCtx, company); err != nil {
			return err
		}
	}
	if strategy != "" {
		if _, err := client.SetStrategy(callCtx, strategy); err != nil {
			return err
		}
	}

	status, err := client.GetStatus(callCtx)
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(status)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
