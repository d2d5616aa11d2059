package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/socialnet/internal/common"
	"github.com/dmitrijs2005/socialnet/internal/dbx"
	"github.com/dmitrijs2005/socialnet/internal/server/models"
	"github.com/dmitrijs2005/socialnet/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// SearchScope selects the categories to search. The zero value searches
// all of them.
type SearchScope struct {
	Users    bool
	Posts    bool
	Comments bool
}

func (s SearchScope) all() bool { return !s.Users && !s.Posts && !s.Comments }

// SearchResult always carries every category; the ones not searched are
// empty.
type SearchResult struct {
	Users    []models.Profile  `json:"users"`
	Posts    []*models.Post    `json:"posts"`
	Comments []*models.Comment `json:"comments"`
}

type SearchService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSearchService(db *sql.DB, m repomanager.RepositoryManager) *SearchService {
	return &SearchService{db: db, repomanager: m}
}

// Search looks for query as a case-insensitive substring of user profiles,
// post content and live comment content.
func (s *SearchService) Search(ctx context.Context, query string, scope SearchScope) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &FieldsError{Err: common.ErrInvalidRequest, Fields: map[string]string{"query": "missing"}}
	}
	if scope.all() {
		scope = SearchScope{Users: true, Posts: true, Comments: true}
	}

	pattern := dbx.ContainsPattern(query)
	res := &SearchResult{
		Users:    []models.Profile{},
		Posts:    []*models.Post{},
		Comments: []*models.Comment{},
	}

	g, ctx := errgroup.WithContext(ctx)
	if scope.Users {
		g.Go(func() error {
			users, err := s.repomanager.Users(s.db).Search(ctx, pattern)
			if err != nil {
				return fmt.Errorf("search users: %w", err)
			}
			for _, u := range users {
				res.Users = append(res.Users, u.Profile())
			}
			return nil
		})
	}
	if scope.Posts {
		g.Go(func() error {
			posts, err := s.repomanager.Posts(s.db).Search(ctx, pattern)
			if err != nil {
				return fmt.Errorf("search posts: %w", err)
			}
			res.Posts = append(res.Posts, posts...)
			return nil
		})
	}
	if scope.Comments {
		g.Go(func() error {
			comments, err := s.repomanager.Comments(s.db).Search(ctx, pattern)
			if err != nil {
				return fmt.Errorf("search comments: %w", err)
			}
			res.Comments = append(res.Comments, comments...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
