package grpc

import (
	"context"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Introspect(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.verifier.Verify(req.GetValue())
	if err != nil {
		s.logger.Debug(ctx, "introspection rejected", "err", err)
		return nil, status.Error(codes.PermissionDenied, "invalid token")
	}

	out, err := structpb.NewStruct(map[string]any{
		"userId":   claims.UserID,
		"username": claims.Username,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return out, nil
}

func (s *GRPCServer) RevokeSessions(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logger.Error(ctx, err.Error())
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	s.logger.Info(ctx, "Sessions revoked", "user_id", userID)
	return &emptypb.Empty{}, nil
}
