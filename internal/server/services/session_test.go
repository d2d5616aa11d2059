package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/auth"
	"github.com/dmitrijs2005/socialnet/internal/server/config"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager/repomanagertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		RefreshCommitTimeout:         time.Second,
		LoginRetries:                 3,
		MaxUploadSize:                10 << 20,
		UploadURLExpiry:              15 * time.Minute,
		S3Bucket:                     "socialnet",
		S3Region:                     "us-east-1",
		S3BaseEndpoint:               "http://127.0.0.1:9000",
	}
}

type sessionFixture struct {
	svc   *SessionService
	rm    *repomanagertest.Manager
	alice *models.User
	bob   *models.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	rm := repomanagertest.New()
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	seed := func(name string) *models.User {
		hash, err := hasher.Hash([]byte(name + "-pw"))
		require.NoError(t, err)
		u, err := rm.UsersRepo.Create(context.Background(), &models.User{Username: name, Email: name + "@example.com", PasswordHash: hash})
		require.NoError(t, err)
		return u
	}

	return &sessionFixture{
		svc:   NewSessionService(nil, rm, hasher, testConfig(), logging.Nop{}, nil),
		rm:    rm,
		alice: seed("alice"),
		bob:   seed("bob"),
	}
}

func (f *sessionFixture) login(t *testing.T, presented string) *TokenPair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "alice-pw", PresentedToken: presented})
	require.NoError(t, err)
	return pair
}

func TestLogin_AppendsExactlyOneToken(t *testing.T) {
	f := newSessionFixture(t)

	p1 := f.login(t, "")
	p2 := f.login(t, "")

	set := f.rm.UsersRepo.Tokens(f.alice.ID)
	assert.Len(t, set, 2)
	assert.Contains(t, set, p1.RefreshToken)
	assert.Contains(t, set, p2.RefreshToken)

	owner, err := f.rm.UsersRepo.FindByRefreshToken(context.Background(), p2.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, owner.ID)

	claims, err := f.svc.AccessCodec().Verify(p2.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLogin_ByEmail(t *testing.T) {
	f := newSessionFixture(t)

	pair, err := f.svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "alice-pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{pair.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestLogin_WithOwnCookieReplacesIt(t *testing.T) {
	f := newSessionFixture(t)

	other := f.login(t, "")
	old := f.login(t, "")
	fresh := f.login(t, old.RefreshToken)

	set := f.rm.UsersRepo.Tokens(f.alice.ID)
	assert.ElementsMatch(t, []string{other.RefreshToken, fresh.RefreshToken}, set)
}

func TestLogin_WithRotatedOutCookieWipesSet(t *testing.T) {
	f := newSessionFixture(t)

	f.login(t, "")
	f.login(t, "")
	stale, err := auth.NewCodec("refresh-secret", time.Hour).Sign(f.alice.ID, "alice")
	require.NoError(t, err)

	fresh := f.login(t, stale)

	assert.Equal(t, []string{fresh.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestLogin_WithSomeoneElsesCookieKeepsSet(t *testing.T) {
	f := newSessionFixture(t)

	mine := f.login(t, "")
	bobs, err := f.svc.Login(context.Background(), LoginRequest{Username: "bob", Password: "bob-pw"})
	require.NoError(t, err)

	fresh := f.login(t, bobs.RefreshToken)

	assert.ElementsMatch(t, []string{mine.RefreshToken, fresh.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
	assert.Equal(t, []string{bobs.RefreshToken}, f.rm.UsersRepo.Tokens(f.bob.ID))
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		req         LoginRequest
		wantIs      error
		wantFields  map[string]string
		wantLookups int
	}{
		{
			name:        "wrong password",
			req:         LoginRequest{Username: "alice", Password: "nope"},
			wantIs:      common.ErrorUnauthorized,
			wantLookups: 1,
		},
		{
			name:        "unknown user",
			req:         LoginRequest{Username: "carol", Password: "x"},
			wantIs:      common.ErrorUnauthorized,
			wantLookups: 1,
		},
		{
			name:       "missing password",
			req:        LoginRequest{Username: "alice"},
			wantIs:     common.ErrInvalidRequest,
			wantFields: map[string]string{"password": "missing"},
		},
		{
			name:       "missing everything",
			req:        LoginRequest{},
			wantIs:     common.ErrInvalidRequest,
			wantFields: map[string]string{"username": "missing", "email": "missing", "password": "missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			existing := f.login(t, "")
			f.rm.UsersRepo.ResetLookups()

			_, err := f.svc.Login(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantIs)

			if tt.wantFields != nil {
				var fe *FieldsError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.wantFields, fe.Fields)
			}
			assert.Equal(t, tt.wantLookups, f.rm.UsersRepo.Lookups())
			assert.Equal(t, []string{existing.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID), "no mutation")
		})
	}
}

func TestLogin_RetriesWhenSetChangesUnderneath(t *testing.T) {
	f := newSessionFixture(t)

	f.rm.UsersRepo.SetBeforeReplace(func() {
		f.rm.UsersRepo.SetTokens(f.alice.ID, []string{"other-device"})
	})

	pair := f.login(t, "")

	assert.ElementsMatch(t, []string{"other-device", pair.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestLogin_GivesUpAfterRetries(t *testing.T) {
	f := newSessionFixture(t)

	var rearm func()
	rearm = func() {
		f.rm.UsersRepo.SetTokens(f.alice.ID, append(f.rm.UsersRepo.Tokens(f.alice.ID), uuid.NewString()))
		f.rm.UsersRepo.SetBeforeReplace(rearm)
	}
	f.rm.UsersRepo.SetBeforeReplace(rearm)

	_, err := f.svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "alice-pw"})
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestLogin_StoreError(t *testing.T) {
	f := newSessionFixture(t)
	f.rm.UsersRepo.Err = errBoom

	_, err := f.svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "alice-pw"})
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newSessionFixture(t)
	sibling := f.login(t, "")
	p := f.login(t, "")

	next, err := f.svc.Refresh(context.Background(), p.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, p.RefreshToken, next.RefreshToken)

	assert.ElementsMatch(t, []string{sibling.RefreshToken, next.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))

	claims, err := f.svc.AccessCodec().Verify(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestRefresh_SecondPresentationRevokesEverything(t *testing.T) {
	f := newSessionFixture(t)
	sibling := f.login(t, "")
	p := f.login(t, "")

	next, err := f.svc.Refresh(context.Background(), p.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), p.RefreshToken)
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, f.rm.UsersRepo.Tokens(f.alice.ID))

	for _, tok := range []string{next.RefreshToken, sibling.RefreshToken} {
		_, err = f.svc.Refresh(context.Background(), tok)
		assert.ErrorIs(t, err, common.ErrForbidden, "sibling sessions are revoked too")
	}
}

func TestRefresh_Missing(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefresh_UnknownForgedTokenWipesNothing(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")

	forged, err := auth.NewCodec("not-our-secret", time.Hour).Sign(f.alice.ID, "alice")
	require.NoError(t, err)

	for _, tok := range []string{forged, "garbage"} {
		_, err = f.svc.Refresh(context.Background(), tok)
		assert.ErrorIs(t, err, common.ErrForbidden)
	}
	assert.Equal(t, []string{p.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestRefresh_ExpiredTokenInSetIsDropped(t *testing.T) {
	f := newSessionFixture(t)
	keep := f.login(t, "")

	expired, err := auth.NewCodec("refresh-secret", -time.Minute).Sign(f.alice.ID, "alice")
	require.NoError(t, err)
	f.rm.UsersRepo.SetTokens(f.alice.ID, []string{keep.RefreshToken, expired})

	_, err = f.svc.Refresh(context.Background(), expired)
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, []string{keep.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestRefresh_RenamedUserTokenIsRefused(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")

	users := NewUserService(nil, f.rm, BcryptHasher{Cost: bcrypt.MinCost}, logging.Nop{})
	newName := "alice2"
	_, err := users.Update(context.Background(), f.alice.ID, f.alice.ID, UpdateRequest{Username: &newName})
	require.NoError(t, err)
	assert.Equal(t, []string{p.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID), "rename keeps the set")

	_, err = f.svc.Refresh(context.Background(), p.RefreshToken)
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestRefresh_LostRotationIsTreatedAsReuse(t *testing.T) {
	f := newSessionFixture(t)
	f.login(t, "")
	p := f.login(t, "")
	f.rm.UsersRepo.RotateLoses = true

	_, err := f.svc.Refresh(context.Background(), p.RefreshToken)
	require.ErrorIs(t, err, common.ErrForbidden)
	assert.Empty(t, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestRefresh_CommitSurvivesCallerCancellation(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.rm.UsersRepo.OnFind = cancel

	next, err := f.svc.Refresh(ctx, p.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, []string{next.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestRefresh_ConcurrentPresentationsRotateOnce(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Refresh(context.Background(), p.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Empty(t, f.rm.UsersRepo.Tokens(f.alice.ID), "the losers count as reuse")
}

func TestRefresh_StoreErrorOnLookup(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")
	f.rm.UsersRepo.Err = errBoom

	_, err := f.svc.Refresh(context.Background(), p.RefreshToken)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, common.ErrForbidden)
}

func TestLogout(t *testing.T) {
	f := newSessionFixture(t)
	keep := f.login(t, "")
	p := f.login(t, "")

	require.NoError(t, f.svc.Logout(context.Background(), ""))
	require.NoError(t, f.svc.Logout(context.Background(), "unknown"))

	require.NoError(t, f.svc.Logout(context.Background(), p.RefreshToken))
	assert.Equal(t, []string{keep.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))

	require.NoError(t, f.svc.Logout(context.Background(), p.RefreshToken), "idempotent")
	assert.Equal(t, []string{keep.RefreshToken}, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestLogout_StoreError(t *testing.T) {
	f := newSessionFixture(t)
	p := f.login(t, "")
	f.rm.UsersRepo.Err = errBoom

	assert.ErrorIs(t, f.svc.Logout(context.Background(), p.RefreshToken), errBoom)
}

func TestRevokeAll(t *testing.T) {
	f := newSessionFixture(t)
	f.login(t, "")
	f.login(t, "")

	require.NoError(t, f.svc.RevokeAll(context.Background(), f.alice.ID))
	assert.Empty(t, f.rm.UsersRepo.Tokens(f.alice.ID))
}

func TestFieldsError(t *testing.T) {
	err := &FieldsError{Err: common.ErrConflict, Fields: map[string]string{"username": "taken", "email": "taken"}}
	assert.Equal(t, "already exists: email taken, username taken", err.Error())
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Nil(t, fieldsOrNil(common.ErrConflict, map[string]string{}))
}
