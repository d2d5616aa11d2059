// Package grpc serves the internal Identity API used by sibling services,
// together with the standard gRPC health service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}

type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type GRPCServer struct {
	address     string
	verifier    TokenVerifier
	sessions    SessionRevoker
	users       UserChecker
	confirmUser bool
	protected   map[string]bool
	logger      logging.Logger
	health      *health.Server
}

// NewGRPCServer builds the server. When confirmUser is set the interceptor
// also checks that the caller's account still exists.
func NewGRPCServer(a string, l logging.Logger, v TokenVerifier, s SessionRevoker, u UserChecker, confirmUser bool) *GRPCServer {
	return &GRPCServer{
		address:     a,
		verifier:    v,
		sessions:    s,
		users:       u,
		confirmUser: confirmUser,
		protected:   map[string]bool{RevokeSessionsMethod: true},
		logger:      l.With("module", "grpc_server"),
		health:      health.NewServer(),
	}
}

// NewServer returns a grpc.Server with the Identity and health services
// registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	RegisterIdentityServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(IdentityServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	if err := srv.Serve(l); err != nil {
		return err
	}

	return nil
}
