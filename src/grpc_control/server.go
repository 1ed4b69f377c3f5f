package grpc_control

import (
	"context"
	"fmt"
	"net"

	"signal-monitor/src/logger"

	"google.golang.org/grpc"
)

// Serve runs a gRPC server with svc registered on addr until ctx ends.
func Serve(ctx context.Context, addr string, svc ControlServer, log *logger.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, lis, svc, log)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, lis net.Listener, svc ControlServer, log *logger.Logger) error {
	srv := grpc.NewServer()
	RegisterControlServer(srv, svc)

	stop := context.AfterFunc(ctx, srv.GracefulStop)
	defer stop()

	if log != nil {
		log.Info("gRPC control listening on %s", lis.Addr())
	}
	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
