// Package event defines the domain events consumed from the post and user
// lifecycle topics, and the decoder that turns raw payloads into them.
package event

import "time"

// Type is the envelope discriminant carried in the eventType field.
type Type string

const (
	TypePostCreated Type = "PostCreated"
	TypePostLiked   Type = "PostLiked"
	TypePostUnliked Type = "PostUnliked"
	TypeUserCreated Type = "UserCreated"
	TypeUserUpdated Type = "UserUpdated"
	TypeUserDeleted Type = "UserDeleted"
)

// Event is the closed set of decoded domain events. Exactly one of the
// concrete types below implements it.
type Event interface {
	EventType() Type
}

// PostCreated announces a new (or re-delivered) post.
type PostCreated struct {
	PostID    string
	AuthorID  string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostLiked records a like by UserID on PostID.
type PostLiked struct {
	PostID string
	UserID string
}

// PostUnliked records the removal of a like by UserID on PostID.
type PostUnliked struct {
	PostID string
	UserID string
}

// UserCreated introduces a user and their display name.
type UserCreated struct {
	UserID   string
	Username string
}

// UserUpdated carries a (possibly changed) display name for an existing user.
type UserUpdated struct {
	UserID   string
	Username string
}

// UserDeleted removes a user from the directory.
type UserDeleted struct {
	UserID string
}

func (PostCreated) EventType() Type { return TypePostCreated }
func (PostLiked) EventType() Type   { return TypePostLiked }
func (PostUnliked) EventType() Type { return TypePostUnliked }
func (UserCreated) EventType() Type { return TypeUserCreated }
func (UserUpdated) EventType() Type { return TypeUserUpdated }
func (UserDeleted) EventType() Type { return TypeUserDeleted }
