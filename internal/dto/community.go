package dto

// CreateCommentRequest is the body of a new comment.
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// CreateBookmarkRequest names the entry to bookmark.
type CreateBookmarkRequest struct {
	Upload string `json:"upload" validate:"required,uuid"`
}
