package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/comments"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/posts"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/uploads"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or a
// transaction, so services can choose per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Uploads(db dbx.DBTX) uploads.Repository
	Posts(db dbx.DBTX) posts.Repository
	Comments(db dbx.DBTX) comments.Repository
}
