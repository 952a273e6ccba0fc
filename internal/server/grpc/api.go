package grpcserver

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/authgate/internal/model"
)

// Full method names of the AuthGate service.
const (
	ServiceName     = "authgate.v1.AuthGate"
	LoginMethod     = "/" + ServiceName + "/Login"
	ProtectedMethod = "/" + ServiceName + "/Protected"
)

// AuthGateServer is the server API for the AuthGate service.
// Messages are protobuf well-known types so no generated code is needed:
//
//	Login(Struct{username, password}) -> Struct{access_token, expires_at}
//	Protected(Empty) + "authorization: Bearer <token>" -> Struct{logged_in_as}
type AuthGateServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Protected(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAuthGateServer registers srv on s.
func RegisterAuthGateServer(s grpc.ServiceRegistrar, srv AuthGateServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the AuthGate service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthGateServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: loginHandler},
		{MethodName: "Protected", Handler: protectedHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authgate/v1/authgate.proto",
}

func loginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthGateServer).Login(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LoginMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthGateServer).Login(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func protectedHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthGateServer).Protected(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProtectedMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuthGateServer).Protected(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the AuthGate service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string, opts ...grpc.CallOption) (model.Token, error) {
	in, err := structpb.NewStruct(map[string]any{"username": username, "password": password})
	if err != nil {
		return model.Token{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LoginMethod, in, out, opts...); err != nil {
		return model.Token{}, err
	}
	f := out.GetFields()
	tok := model.Token{AccessToken: f["access_token"].GetStringValue()}
	if tok.AccessToken == "" {
		return model.Token{}, errors.New("login response without access_token")
	}
	if exp, err := time.Parse(time.RFC3339, f["expires_at"].GetStringValue()); err == nil {
		tok.ExpiresAt = exp
	}
	return tok, nil
}

// Protected returns the username the bearer credentials resolve to.
func (c *Client) Protected(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProtectedMethod, new(emptypb.Empty), out, opts...); err != nil {
		return "", err
	}
	return out.GetFields()["logged_in_as"].GetStringValue(), nil
}
