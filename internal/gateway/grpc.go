// ABOUTME: gRPC server construction with keepalive policy, panic recovery, and auth interceptors
// ABOUTME: Every RPC passes through the shared Authenticator before reaching RecordService

package gateway

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/2389/todo-gateway/internal/auth"
)

// createGRPCServer creates a gRPC server that authenticates every call with a.
// Keepalive settings keep long-lived StreamEvents subscriptions healthy
// through idle NATs and tailnet relays.
func createGRPCServer(a *auth.Authenticator, logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(recoverUnary(logger), auth.UnaryInterceptor(a)),
		grpc.ChainStreamInterceptor(recoverStream(logger), auth.StreamInterceptor(a)),
	)
}

// recoverUnary turns a handler panic into codes.Internal so one bad call
// cannot take the process down.
func recoverUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicStatus(logger, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

// recoverStream is recoverUnary for streaming calls.
func recoverStream(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicStatus(logger, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func panicStatus(logger *slog.Logger, method string, r any) error {
	logger.Error("panic in gRPC handler",
		"method", method,
		"panic", r,
		"stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal error")
}
