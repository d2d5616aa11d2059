package models

import "time"

// DeletedCommentContent replaces the text of a deleted comment.
const DeletedCommentContent = "[deleted]"

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userID"`
	Content   string    `json:"content"`
	LikeIDs   []string  `json:"likeIDs"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment hangs off a post, either directly (ParentID == PostID) or as a
// reply to another comment. UserID is empty once the comment is deleted.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postID"`
	ParentID  string    `json:"parentID"`
	UserID    string    `json:"userID,omitempty"`
	Content   string    `json:"content"`
	Deleted   bool      `json:"deleted"`
	LikeIDs   []string  `json:"likeIDs"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Like is the outcome of a like toggle.
type Like struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}
