package event

import (
	"errors"
	"testing"
	"time"

	"github.com/edgeflare/feedview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePostCreated(t *testing.T) {
	payload := []byte(`{
		"eventType": "PostCreated",
		"postId": "post1",
		"userId": "user1",
		"title": "Hello",
		"content": "First post",
		"createdAt": "2025-06-01T10:00:00Z",
		"updatedAt": "2025-06-01T10:05:00Z",
		"eventTimestamp": "2025-06-01T10:05:01Z"
	}`)

	evt, err := Decode(payload)
	require.NoError(t, err)

	created, ok := evt.(PostCreated)
	require.True(t, ok, "expected PostCreated, got %T", evt)
	assert.Equal(t, "post1", created.PostID)
	assert.Equal(t, "user1", created.AuthorID)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, "First post", created.Content)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), created.CreatedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC), created.UpdatedAt)
}

func TestDecodeLikeEvents(t *testing.T) {
	evt, err := Decode([]byte(`{"eventType":"PostLiked","postId":"p1","userId":"u9"}`))
	require.NoError(t, err)
	assert.Equal(t, PostLiked{PostID: "p1", UserID: "u9"}, evt)

	evt, err = Decode([]byte(`{"eventType":"PostUnliked","postId":"p1","userId":"u9"}`))
	require.NoError(t, err)
	assert.Equal(t, PostUnliked{PostID: "p1", UserID: "u9"}, evt)
}

func TestDecodeUserLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
	}{
		{
			name:    "created",
			payload: `{"eventType":"UserCreated","userId":"u1","username":"Alice"}`,
			want:    UserCreated{UserID: "u1", Username: "Alice"},
		},
		{
			name:    "updated",
			payload: `{"eventType":"UserUpdated","userId":"u1","username":"Alicia"}`,
			want:    UserUpdated{UserID: "u1", Username: "Alicia"},
		},
		{
			// A missing username still decodes; the dispatcher decides to
			// ignore the upsert.
			name:    "updated without username",
			payload: `{"eventType":"UserUpdated","userId":"u1"}`,
			want:    UserUpdated{UserID: "u1"},
		},
		{
			name:    "deleted",
			payload: `{"eventType":"UserDeleted","userId":"u1"}`,
			want:    UserDeleted{UserID: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, evt)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"eventType": "PostCreated"`},
		{"wrong shape", `[1,2,3]`},
		{"bad timestamp", `{"eventType":"PostCreated","postId":"p1","createdAt":"yesterday"}`},
		{"post created without postId", `{"eventType":"PostCreated","userId":"u1"}`},
		{"like without userId", `{"eventType":"PostLiked","postId":"p1"}`},
		{"user event without userId", `{"eventType":"UserDeleted"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr), "expected *DecodeError, got %v", err)
		})
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	for _, payload := range []string{
		`{"eventType":"PostDeleted","postId":"p1"}`,
		`{"postId":"p1","userId":"u1"}`,
		`{}`,
	} {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, ErrUnknownEventType, "payload %s", payload)
	}
}

func TestDecodeFixture(t *testing.T) {
	payloads, err := testutil.LifecycleEvents()
	require.NoError(t, err)
	require.NotEmpty(t, payloads)

	seen := make(map[Type]int)
	for i, payload := range payloads {
		evt, err := Decode(payload)
		require.NoError(t, err, "payload %d: %s", i, payload)
		seen[evt.EventType()]++
	}

	for _, typ := range []Type{
		TypePostCreated, TypePostLiked, TypePostUnliked,
		TypeUserCreated, TypeUserUpdated, TypeUserDeleted,
	} {
		assert.Positive(t, seen[typ], "fixture is missing %s", typ)
	}
}
