package feed

import (
	"context"
	"fmt"

	"github.com/edgeflare/feedview/pkg/event"
	"github.com/edgeflare/feedview/pkg/userdir"
	"go.uber.org/zap"
)

// UsernameResolver is the optional fallback path for author names the
// directory cache has not (yet) seen, typically backed by a synchronous call
// to the identity service. The dispatcher works fine without one.
type UsernameResolver interface {
	ResolveUsernames(ctx context.Context, ids []string) (map[string]string, error)
}

// Dispatcher folds decoded events into the store and the user directory.
// Apply is idempotent where the event semantics allow it and never performs
// I/O unless a UsernameResolver is configured.
type Dispatcher struct {
	store    *Store
	users    *userdir.Cache
	resolver UsernameResolver
	logger   *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithResolver enables the cache-miss author lookup against an upstream
// directory service.
func WithResolver(r UsernameResolver) DispatcherOption {
	return func(d *Dispatcher) { d.resolver = r }
}

func NewDispatcher(store *Store, users *userdir.Cache, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{store: store, users: users, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Apply routes one decoded event to the store/directory. Events may repeat and
// may arrive out of cross-topic order; the transitions below tolerate both.
func (d *Dispatcher) Apply(ctx context.Context, evt event.Event) error {
	switch e := evt.(type) {
	case event.PostCreated:
		d.applyPostCreated(ctx, e)
	case event.PostLiked:
		// The count is only adjusted for known posts, but membership is
		// tracked unconditionally so a like arriving before its PostCreated
		// is not lost for the viewer annotation.
		d.store.AdjustLikeCount(e.PostID, 1)
		d.store.AddLike(e.UserID, e.PostID)
	case event.PostUnliked:
		d.store.AdjustLikeCount(e.PostID, -1)
		d.store.RemoveLike(e.UserID, e.PostID)
	case event.UserCreated:
		d.upsertUser(e.UserID, e.Username)
	case event.UserUpdated:
		d.upsertUser(e.UserID, e.Username)
	case event.UserDeleted:
		// Existing items keep the last known author name on purpose.
		d.users.Remove(e.UserID)
		d.store.RemoveUserLikes(e.UserID)
	default:
		return fmt.Errorf("unhandled event type %q", evt.EventType())
	}
	return nil
}

func (d *Dispatcher) applyPostCreated(ctx context.Context, e event.PostCreated) {
	username := d.authorName(ctx, e.AuthorID)

	// Full replacement on redelivery: the like count restarts at zero and is
	// rebuilt from subsequent like events.
	d.store.UpsertItem(Item{
		PostID:         e.PostID,
		AuthorID:       e.AuthorID,
		AuthorUsername: username,
		Title:          e.Title,
		Content:        e.Content,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		LikeCount:      0,
	})

	d.logger.Debug("materialized post",
		zap.String("post_id", e.PostID),
		zap.String("author_id", e.AuthorID),
		zap.String("author_username", username))
}

func (d *Dispatcher) authorName(ctx context.Context, userID string) string {
	if name, ok := d.users.Lookup(userID); ok {
		return name
	}

	if d.resolver != nil {
		names, err := d.resolver.ResolveUsernames(ctx, []string{userID})
		if err != nil {
			d.logger.Warn("resolver lookup failed, using sentinel author",
				zap.String("user_id", userID), zap.Error(err))
		} else if name, ok := names[userID]; ok {
			d.users.Upsert(userID, name)
			return name
		}
	}

	return UnknownAuthor
}

func (d *Dispatcher) upsertUser(userID, username string) {
	// Lifecycle events without a username carry nothing worth caching.
	if username == "" {
		d.logger.Warn("user event without username ignored", zap.String("user_id", userID))
		return
	}
	d.users.Upsert(userID, username)
}
