package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/logging"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager/repomanagertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceID = "7b0c1c4e-2f4c-4a53-8f55-0d9c1f0f3a11"
	bobID   = "8c1d0a1e-0000-4000-8000-000000000002"
)

func newPostService() (*PostService, *repomanagertest.Manager) {
	rm := repomanagertest.New()
	return NewPostService(nil, rm, logging.Nop{}), rm
}

func TestPostService_Create(t *testing.T) {
	svc, rm := newPostService()
	ctx := context.Background()

	p, err := svc.Create(ctx, aliceID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Content)
	assert.Equal(t, aliceID, p.UserID)
	assert.Empty(t, p.LikeIDs)

	stored, err := rm.PostsRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)

	_, err = svc.Create(ctx, aliceID, " ")
	var fe *FieldsError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.Equal(t, map[string]string{"content": "missing"}, fe.Fields)
}

func TestPostService_Reads(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()

	first, err := svc.Create(ctx, aliceID, "first")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bobID, "second")
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "second", all[0].Content, "newest first")

	mine, err := svc.ListByUser(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	_, err = svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = svc.ListByUser(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestPostService_Update(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()

	p, err := svc.Create(ctx, aliceID, "draft")
	require.NoError(t, err)

	got, err := svc.Update(ctx, aliceID, p.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", got.Content)

	tests := []struct {
		name    string
		actor   string
		id      string
		content string
		wantIs  error
	}{
		{"not the author", bobID, p.ID, "hijack", common.ErrForbidden},
		{"missing post", aliceID, uuid.NewString(), "x", common.ErrorNotFound},
		{"malformed id", aliceID, "nope", "x", common.ErrInvalidRequest},
		{"empty content", aliceID, p.ID, "", common.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.actor, tt.id, tt.content)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", stored.Content)
}

func TestPostService_Delete(t *testing.T) {
	svc, rm := newPostService()
	ctx := context.Background()

	p, err := svc.Create(ctx, aliceID, "bye")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, bobID, p.ID), common.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, aliceID, p.ID))

	_, err = rm.PostsRepo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.NoError(t, svc.Delete(ctx, aliceID, p.ID), "deleting twice succeeds")
	assert.ErrorIs(t, svc.Delete(ctx, aliceID, "nope"), common.ErrInvalidRequest)
}

func TestPostService_ToggleLike(t *testing.T) {
	svc, _ := newPostService()
	ctx := context.Background()

	p, err := svc.Create(ctx, aliceID, "like me")
	require.NoError(t, err)

	like, err := svc.ToggleLike(ctx, bobID, p.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	like, err = svc.ToggleLike(ctx, aliceID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, like.Likes)

	like, err = svc.ToggleLike(ctx, bobID, p.ID)
	require.NoError(t, err)
	assert.False(t, like.Liked)
	assert.Equal(t, 1, like.Likes)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{aliceID}, stored.LikeIDs)

	_, err = svc.ToggleLike(ctx, bobID, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = svc.ToggleLike(ctx, bobID, "nope")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}
