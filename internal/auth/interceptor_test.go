// ABOUTME: Unit tests for gRPC auth interceptors
// ABOUTME: Drives the interceptors with incoming metadata and checks status codes

package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/2389/todo-gateway/internal/records"
)

var unaryInfo = &grpc.UnaryServerInfo{FullMethod: "/todo.RecordService/AddRecord"}

func TestUnaryInterceptor_ValidJWT(t *testing.T) {
	a, jwtv := newTestAuthenticator(t, false)
	token, err := jwtv.Generate("bob", time.Hour)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

	var got records.Identity
	_, err = UnaryInterceptor(a)(ctx, nil, unaryInfo, func(ctx context.Context, req any) (any, error) {
		got = MustFromContext(ctx).Identity
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, records.Identity("bob"), got)
}

func TestUnaryInterceptor_SSH(t *testing.T) {
	a, _ := newTestAuthenticator(t, false)
	signer, identity := newKeyIdentity(t)
	req, err := SignSSHAuth(signer, time.Now(), "grpc-nonce")
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		SSHPubkeyHeader, req.Pubkey,
		SSHSignatureHeader, req.Signature,
		SSHTimestampHeader, fmt.Sprint(req.Timestamp),
		SSHNonceHeader, req.Nonce,
	))

	var got records.Identity
	_, err = UnaryInterceptor(a)(ctx, nil, unaryInfo, func(ctx context.Context, req any) (any, error) {
		got = IdentityFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestUnaryInterceptor_Rejections(t *testing.T) {
	a, _ := newTestAuthenticator(t, false)

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"no metadata", context.Background()},
		{"empty metadata", metadata.NewIncomingContext(context.Background(), metadata.MD{})},
		{"bad token", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))},
		{"untrusted identity header", metadata.NewIncomingContext(context.Background(), metadata.Pairs(IdentityHeader, "alice"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			_, err := UnaryInterceptor(a)(tt.ctx, nil, unaryInfo, func(ctx context.Context, req any) (any, error) {
				called = true
				return nil, nil
			})
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
			assert.False(t, called, "handler must not run")
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamInterceptor(t *testing.T) {
	a, _ := newTestAuthenticator(t, true)
	info := &grpc.StreamServerInfo{FullMethod: "/todo.RecordService/StreamEvents", IsServerStream: true}

	ok := &fakeServerStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs(IdentityHeader, "carol"))}
	var got records.Identity
	err := StreamInterceptor(a)(nil, ok, info, func(srv any, ss grpc.ServerStream) error {
		got = IdentityFromContext(ss.Context())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, records.Identity("carol"), got)

	bad := &fakeServerStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.MD{})}
	err = StreamInterceptor(a)(nil, bad, info, func(srv any, ss grpc.ServerStream) error {
		t.Fatal("handler must not run")
		return nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
