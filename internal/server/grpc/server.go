// Package grpcserver exposes the AuthGate gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/service"
)

// Server wires the access gate into gRPC handlers.
type Server struct {
	gate service.AccessGate
}

var _ AuthGateServer = (*Server)(nil)

// New constructs a gRPC server with the injected gate.
func New(gate service.AccessGate) *Server {
	return &Server{gate: gate}
}

func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Login authenticates a user and returns an access token.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	creds := model.Credentials{
		Username: f["username"].GetStringValue(),
		Password: f["password"].GetStringValue(),
	}
	tok, err := s.gate.AuthorizeLogin(ctx, creds, remoteIP(ctx))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidRequest):
			return nil, status.Error(codes.InvalidArgument, "empty username/password")
		case errors.Is(err, errs.ErrInvalidCredentials):
			return nil, status.Error(codes.Unauthenticated, "bad credentials")
		case errors.Is(err, errs.ErrRateLimited):
			return nil, status.Error(codes.ResourceExhausted, "rate limited")
		default:
			return nil, status.Errorf(codes.Internal, "login: %v", err)
		}
	}
	return structpb.NewStruct(map[string]any{
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Protected returns the username bound to the caller's bearer token.
func (s *Server) Protected(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	sub, err := s.gate.AuthorizeRequest(ctx, tok)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrTokenExpired):
			return nil, status.Error(codes.Unauthenticated, "token expired")
		case errors.Is(err, errs.ErrTokenInvalidSignature):
			return nil, status.Error(codes.Unauthenticated, "invalid signature")
		case errors.Is(err, errs.ErrTokenMalformed):
			return nil, status.Error(codes.Unauthenticated, "malformed token")
		case errors.Is(err, errs.ErrUnknownSubject):
			return nil, status.Error(codes.NotFound, "user not found")
		default:
			return nil, status.Errorf(codes.Internal, "authorize: %v", err)
		}
	}
	return structpb.NewStruct(map[string]any{"logged_in_as": sub.Username})
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
