package main

import (
	"context"
	"fmt"
	"sync"

	"signal-monitor/src/config"
	"signal-monitor/src/control"
	datasource "signal-monitor/src/data_source"
	"signal-monitor/src/grpc_control"
	"signal-monitor/src/logger"
	"signal-monitor/src/server"
)

// -----------------------------------------------------------------------------

// startServers runs every network surface until ctx ends. The control socket
// is already bound so a port clash has been reported before this point.
func startServers(
	ctx context.Context,
	wg *sync.WaitGroup,
	conf *config.Config,
	controlServer *control.Server,
	sources server.StatusSources,
	multiSource *datasource.MultiSourceManager,
	appLogger *logger.Logger,
) {

	// 1. Control socket
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controlServer.Serve(ctx); err != nil {
			appLogger.Error("Control server failed: %v", err)
		}
	}()

	// 2. Chart viewer
	if conf.Viewer.Enabled {
		chart := server.NewChartServer(conf.MConfig, sources, logger.NewLogger(conf.MConfig, "ChartServer"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := chart.Run(ctx); err != nil {
				appLogger.Error("Viewer failed: %v", err)
			}
		}()
	}

	// 3. gRPC Control Server
	if conf.Grpc.Enabled {
		grpcLogger := logger.NewLogger(conf.MConfig, "GrpcControl")
		svc := grpc_control.NewControlService(controlServer, sources, multiSource, grpcLogger)
		addr := fmt.Sprintf("%s:%d", conf.Grpc.Host, conf.Grpc.Port)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := grpc_control.Serve(ctx, addr, svc, grpcLogger); err != nil {
				appLogger.Error("gRPC control failed: %v", err)
			}
		}()
	}
}
