package grpchealth

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// LoggingUnary logs health checks with the probed service and reported status.
// Orchestrators poll every few seconds, so routine probes go to Debug and only
// failed or not-serving checks are raised to Warn.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		}
		if r, ok := req.(*healthpb.HealthCheckRequest); ok {
			fields = append(fields, zap.String("service", r.GetService()))
		}
		st := healthpb.HealthCheckResponse_UNKNOWN
		if r, ok := resp.(*healthpb.HealthCheckResponse); ok {
			st = r.GetStatus()
			fields = append(fields, zap.String("status", st.String()))
		}

		if err != nil || st == healthpb.HealthCheckResponse_NOT_SERVING {
			log.Warn("grpc health check", fields...)
		} else {
			log.Debug("grpc health check", fields...)
		}
		return resp, err
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// RecoverUnary turns a panic in a unary handler into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer recoverTo(log, info.FullMethod, &err)
		return next(ctx, req)
	}
}

// RecoverStream does the same for Watch streams.
func RecoverStream(log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) (err error) {
		defer recoverTo(log, info.FullMethod, &err)
		return next(srv, ss)
	}
}

func recoverTo(log *zap.Logger, method string, err *error) {
	if r := recover(); r != nil {
		log.Error("panic",
			zap.Any("reason", r),
			zap.ByteString("stack", debug.Stack()),
			zap.String("method", method),
		)
		*err = status.Error(codes.Internal, "internal")
	}
}
