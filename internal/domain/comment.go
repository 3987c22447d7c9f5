package domain

import "time"

// CommentAuthorRole indicates who authored a comment.
type CommentAuthorRole string

const (
	CommentAuthorCustomer CommentAuthorRole = "customer"
	CommentAuthorAgent    CommentAuthorRole = "agent"
	CommentAuthorSystem   CommentAuthorRole = "system"
)

// Comment is an immutable entry in a ticket thread. Creating one refreshes
// the parent ticket's updated_at.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole CommentAuthorRole
	Content    string
	CreatedAt  time.Time
}
