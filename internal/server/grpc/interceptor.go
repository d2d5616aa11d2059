package grpc

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// gRPC metadata keys are lower-case.
const authorizationKey = "authorization"

// accessTokenInterceptor guards the protected methods with the same rules as
// the HTTP guard: no usable bearer token is Unauthenticated, a token that
// fails verification PermissionDenied.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !s.protected[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(authorizationKey); len(values) > 0 {
			header = values[0]
		}
	}

	token, ok := auth.ExtractBearer(header)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, status.Error(codes.PermissionDenied, "invalid token")
	}

	if s.confirmUser {
		if uuid.Validate(claims.UserID) != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid subject")
		}
		exists, err := s.users.Exists(ctx, claims.UserID)
		if err != nil {
			s.logger.Error(ctx, "user lookup failed", "err", err)
			return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
		}
		if !exists {
			return nil, status.Error(codes.PermissionDenied, "unknown user")
		}
	}

	return handler(auth.WithIdentity(ctx, claims.UserID, claims.Username), req)
}
