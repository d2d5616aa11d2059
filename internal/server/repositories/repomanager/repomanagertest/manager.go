// Package repomanagertest wires the in-memory repositories into a
// repomanager.RepositoryManager. Transactions are not modelled: the same
// repositories are returned whatever handle is passed in.
package repomanagertest

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/comments"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/comments/commentstest"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/posts"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/posts/poststest"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/uploads/uploadstest"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/users"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/users/userstest"
)

type Manager struct {
	UsersRepo    *userstest.Repository
	UploadsRepo  *uploadstest.Repository
	PostsRepo    *poststest.Repository
	CommentsRepo *commentstest.Repository
}

func New() *Manager {
	return &Manager{
		UsersRepo:    userstest.New(),
		UploadsRepo:  uploadstest.New(),
		PostsRepo:    poststest.New(),
		CommentsRepo: commentstest.New(),
	}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *Manager) Users(dbx.DBTX) users.Repository {
	return m.UsersRepo
}

func (m *Manager) Uploads(dbx.DBTX) uploads.Repository {
	return m.UploadsRepo
}

func (m *Manager) Posts(dbx.DBTX) posts.Repository {
	return m.PostsRepo
}

func (m *Manager) Comments(dbx.DBTX) comments.Repository {
	return m.CommentsRepo
}
