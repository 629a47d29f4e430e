package feed

import (
	"slices"
	"strings"
	"sync"
)

// Store is the materialized view state: feed items indexed by post id, plus
// per-user like-membership sets. It is rebuilt from the event stream on every
// start; nothing here touches disk.
//
// All methods are safe for concurrent use. Both consumption flows (post topic,
// user topic) mutate the same Store, so writes serialize on one RWMutex.
type Store struct {
	mu    sync.RWMutex
	items map[string]Item
	likes map[string]map[string]struct{} // userID -> set of postID
}

func NewStore() *Store {
	return &Store{
		items: make(map[string]Item),
		likes: make(map[string]map[string]struct{}),
	}
}

// UpsertItem inserts or fully replaces the item for item.PostID.
// Last-applied-event-wins: no updatedAt comparison is made, so replaying an
// older PostCreated after a newer one regresses the entry. Known limitation,
// kept on purpose.
func (s *Store) UpsertItem(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.PostID] = item
}

// GetItem returns a copy of the item for postID, if present.
func (s *Store) GetItem(postID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[postID]
	return item, ok
}

// AdjustLikeCount adds delta to the item's like count, flooring at zero.
// Unknown post ids are ignored: a like may arrive before its post.
func (s *Store) AdjustLikeCount(postID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[postID]
	if !ok {
		return
	}
	item.LikeCount += delta
	if item.LikeCount < 0 {
		item.LikeCount = 0
	}
	s.items[postID] = item
}

// AddLike records postID in userID's like-membership set. Membership is
// tracked even when the post itself is not (yet) in the store.
func (s *Store) AddLike(userID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.likes[userID]
	if !ok {
		set = make(map[string]struct{})
		s.likes[userID] = set
	}
	set[postID] = struct{}{}
}

// RemoveLike removes postID from userID's like-membership set, if tracked.
func (s *Store) RemoveLike(userID, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.likes[userID]
	if !ok {
		return
	}
	delete(set, postID)
	if len(set) == 0 {
		delete(s.likes, userID)
	}
}

// RemoveUserLikes drops userID's entire membership set.
func (s *Store) RemoveUserLikes(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.likes, userID)
}

// HasLiked reports whether userID's membership set contains postID.
func (s *Store) HasLiked(userID, postID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[userID][postID]
	return ok
}

// Snapshot returns a new slice of all items sorted by createdAt descending,
// ties broken by postId ascending. The result shares no memory with the store.
func (s *Store) Snapshot() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}

	slices.SortFunc(items, func(a, b Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.PostID, b.PostID)
	})

	return items
}

// Clear empties both the item index and the like-membership sets under a
// single lock acquisition, so no reader observes one without the other.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]Item)
	s.likes = make(map[string]map[string]struct{})
}

// Len returns the number of materialized items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
