package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The Identity service is described by hand over well-known protobuf types,
// so no generated code is needed on either side.
const (
	IdentityServiceName  = "socialnet.identity.v1.Identity"
	IntrospectMethod     = "/" + IdentityServiceName + "/Introspect"
	RevokeSessionsMethod = "/" + IdentityServiceName + "/RevokeSessions"
)

// IdentityServer lets sibling services resolve access tokens and end a
// user's sessions.
type IdentityServer interface {
	Introspect(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RevokeSessions(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&identityServiceDesc, srv)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: introspectHandler},
		{MethodName: "RevokeSessions", Handler: revokeSessionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialnet/identity/v1/identity.proto",
}

func introspectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IntrospectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).Introspect(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func revokeSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).RevokeSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RevokeSessionsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).RevokeSessions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// IdentityClient is the caller side of the Identity service.
type IdentityClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityClient(cc grpc.ClientConnInterface) *IdentityClient {
	return &IdentityClient{cc: cc}
}

func (c *IdentityClient) Introspect(ctx context.Context, accessToken string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IntrospectMethod, wrapperspb.String(accessToken), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IdentityClient) RevokeSessions(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, RevokeSessionsMethod, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}
