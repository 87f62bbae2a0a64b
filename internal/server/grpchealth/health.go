// Package grpchealth serves the standard gRPC health protocol for orchestrators.
package grpchealth

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PushService is the health service name of the push endpoint.
const PushService = "otu.sync.Push"

// Server reports push readiness over grpc_health_v1.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds a server that starts NOT_SERVING until SetServing(true).
func New(log *zap.Logger) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log)),
	)
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)

	s := &Server{srv: srv, health: h, log: log}
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the push service status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(PushService, st)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains connections.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
