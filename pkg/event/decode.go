package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownEventType signals a structurally valid envelope whose eventType is
// absent or not one of the six recognized kinds. Callers log and drop the
// message; it is not a processing fault.
var ErrUnknownEventType = errors.New("unknown event type")

// DecodeError wraps payloads that are not parseable as an event envelope or
// that are missing required fields for their declared type.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode event: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode event: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelope is the generic wire shape shared by both topics. Unknown fields are
// ignored; producers add metadata (eventTimestamp etc) we don't need here.
type envelope struct {
	EventType string    `json:"eventType"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Decode parses a raw message payload into a typed event. It returns
// ErrUnknownEventType for unrecognized discriminants and a *DecodeError for
// malformed payloads. It performs no I/O.
func Decode(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid payload", Err: err}
	}

	switch Type(env.EventType) {
	case TypePostCreated:
		if env.PostID == "" {
			return nil, &DecodeError{Reason: "PostCreated missing postId"}
		}
		return PostCreated{
			PostID:    env.PostID,
			AuthorID:  env.UserID,
			Title:     env.Title,
			Content:   env.Content,
			CreatedAt: env.CreatedAt,
			UpdatedAt: env.UpdatedAt,
		}, nil
	case TypePostLiked:
		if env.PostID == "" || env.UserID == "" {
			return nil, &DecodeError{Reason: "PostLiked missing postId or userId"}
		}
		return PostLiked{PostID: env.PostID, UserID: env.UserID}, nil
	case TypePostUnliked:
		if env.PostID == "" || env.UserID == "" {
			return nil, &DecodeError{Reason: "PostUnliked missing postId or userId"}
		}
		return PostUnliked{PostID: env.PostID, UserID: env.UserID}, nil
	case TypeUserCreated:
		if env.UserID == "" {
			return nil, &DecodeError{Reason: "UserCreated missing userId"}
		}
		return UserCreated{UserID: env.UserID, Username: env.Username}, nil
	case TypeUserUpdated:
		if env.UserID == "" {
			return nil, &DecodeError{Reason: "UserUpdated missing userId"}
		}
		return UserUpdated{UserID: env.UserID, Username: env.Username}, nil
	case TypeUserDeleted:
		if env.UserID == "" {
			return nil, &DecodeError{Reason: "UserDeleted missing userId"}
		}
		return UserDeleted{UserID: env.UserID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
}
