package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	testSecret = "access-secret"
	testUserID = "7b0c1c4e-2f4c-4a53-8f55-0d9c1f0f3a11"
)

var errBoom = errors.New("boom")

type fakeSessions struct {
	revoked []string
	err     error
}

func (f *fakeSessions) RevokeAll(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return f.err
}

type usersFunc func(id string) (bool, error)

func (f usersFunc) Exists(_ context.Context, id string) (bool, error) { return f(id) }

// helper to build server
func newTestServer(confirm bool, users UserChecker) (*GRPCServer, *fakeSessions) {
	fs := &fakeSessions{}
	return NewGRPCServer("", logging.Nop{}, auth.NewCodec(testSecret, time.Minute), fs, users, confirm), fs
}

func signed(t *testing.T, secret, userID string) string {
	t.Helper()
	token, err := auth.NewCodec(secret, time.Minute).Sign(userID, "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	return token
}

func withAuthorization(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func TestInterceptor_UnprotectedAllowsWithoutToken(t *testing.T) {
	s, _ := newTestServer(false, nil)

	info := &grpc.UnaryServerInfo{FullMethod: IntrospectMethod}
	handlerCalled := false
	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled || resp != "ok" {
		t.Fatalf("handler not called properly: called=%v resp=%v", handlerCalled, resp)
	}
}

func TestInterceptor_Protected(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		confirm bool
		users   UserChecker
		want    codes.Code
	}{
		{"no metadata", context.Background(), false, nil, codes.Unauthenticated},
		{"wrong scheme", withAuthorization("Basic " + signed(t, testSecret, testUserID)), false, nil, codes.Unauthenticated},
		{"bad signature", withAuthorization("Bearer " + signed(t, "other", testUserID)), false, nil, codes.PermissionDenied},
		{"valid", withAuthorization("Bearer " + signed(t, testSecret, testUserID)), false, nil, codes.OK},
		{"confirm: not a uuid", withAuthorization("Bearer " + signed(t, testSecret, "user-1")), true,
			usersFunc(func(string) (bool, error) { return true, nil }), codes.Unauthenticated},
		{"confirm: gone", withAuthorization("Bearer " + signed(t, testSecret, testUserID)), true,
			usersFunc(func(string) (bool, error) { return false, nil }), codes.PermissionDenied},
		{"confirm: store error", withAuthorization("Bearer " + signed(t, testSecret, testUserID)), true,
			usersFunc(func(string) (bool, error) { return false, errBoom }), codes.Internal},
		{"confirm: exists", withAuthorization("Bearer " + signed(t, testSecret, testUserID)), true,
			usersFunc(func(string) (bool, error) { return true, nil }), codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(tt.confirm, tt.users)
			info := &grpc.UnaryServerInfo{FullMethod: RevokeSessionsMethod}

			var gotID string
			h := func(ctx context.Context, req any) (any, error) {
				gotID, _ = auth.UserIDFromContext(ctx)
				return "ok", nil
			}

			_, err := s.accessTokenInterceptor(tt.ctx, nil, info, h)
			if status.Code(err) != tt.want {
				t.Fatalf("expected %v, got %v (%v)", tt.want, status.Code(err), err)
			}
			if tt.want == codes.OK && gotID != testUserID {
				t.Fatalf("user id not propagated in context: got %q", gotID)
			}
		})
	}
}
