package grpcserver

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_LogsMetadataOnly(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	ic := LoggingUnary(zap.New(core))

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})
	info := &grpc.UnaryServerInfo{FullMethod: LoginMethod}

	resp, err := ic(ctx, "secret-request", info, func(ctx context.Context, req any) (any, error) { return "ok", nil })
	if err != nil || resp.(string) != "ok" {
		t.Fatalf("passthrough: resp=%v err=%v", resp, err)
	}

	wantErr := status.Error(codes.Internal, "boom")
	_, err = ic(ctx, "req", info, func(ctx context.Context, req any) (any, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["method"] != LoginMethod || first["code"] != "OK" || first["peer"] != "127.0.0.1" {
		t.Fatalf("unexpected fields: %v", first)
	}
	for _, v := range first {
		if v == "secret-request" {
			t.Fatalf("request payload must not be logged")
		}
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Fatalf("internal errors must log at error level, got %v", entries[1].Level)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	ic := RecoverUnary(zap.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: ProtectedMethod}

	_, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}

	resp, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) { return 42, nil })
	if err != nil || resp.(int) != 42 {
		t.Fatalf("passthrough: resp=%v err=%v", resp, err)
	}
}
