package feed

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(postID string, createdAt time.Time) Item {
	return Item{
		PostID:         postID,
		AuthorID:       "u1",
		AuthorUsername: "Alice",
		Title:          "title-" + postID,
		Content:        "content-" + postID,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestStoreUpsertIsIdempotent(t *testing.T) {
	store := NewStore()
	item := testItem("p1", time.Now())

	store.UpsertItem(item)
	store.UpsertItem(item)
	store.UpsertItem(item)

	assert.Equal(t, 1, store.Len())
	got, ok := store.GetItem("p1")
	require.True(t, ok)
	assert.Equal(t, item, got)
}

func TestStoreUpsertReplaces(t *testing.T) {
	store := NewStore()
	store.UpsertItem(testItem("p1", time.Now()))
	store.AdjustLikeCount("p1", 3)

	replacement := testItem("p1", time.Now())
	replacement.Title = "edited"
	store.UpsertItem(replacement)

	got, _ := store.GetItem("p1")
	assert.Equal(t, "edited", got.Title)
	assert.Equal(t, 0, got.LikeCount, "full replacement resets the like count")
}

func TestStoreLikeCountNeverNegative(t *testing.T) {
	store := NewStore()
	store.UpsertItem(testItem("p1", time.Now()))

	store.AdjustLikeCount("p1", -1)
	store.AdjustLikeCount("p1", -1)
	got, _ := store.GetItem("p1")
	assert.Equal(t, 0, got.LikeCount)

	store.AdjustLikeCount("p1", 1)
	store.AdjustLikeCount("p1", -1)
	store.AdjustLikeCount("p1", -1)
	got, _ = store.GetItem("p1")
	assert.Equal(t, 0, got.LikeCount)

	// Unknown post: silently ignored.
	store.AdjustLikeCount("nope", 1)
	_, ok := store.GetItem("nope")
	assert.False(t, ok)
}

func TestStoreSnapshotOrdering(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	items := []Item{
		testItem("p1", base.Add(-20*time.Second)),
		testItem("p2", base.Add(-10*time.Second)),
		testItem("p3", base),
		// Ties on createdAt break by postId ascending.
		testItem("a-tie", base.Add(-5*time.Second)),
		testItem("b-tie", base.Add(-5*time.Second)),
	}
	want := []string{"p3", "a-tie", "b-tie", "p2", "p1"}

	// The order must hold for every insertion order.
	for i := 0; i < 10; i++ {
		store := NewStore()
		shuffled := make([]Item, len(items))
		copy(shuffled, items)
		rand.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		for _, item := range shuffled {
			store.UpsertItem(item)
		}

		snapshot := store.Snapshot()
		got := make([]string, len(snapshot))
		for j, item := range snapshot {
			got[j] = item.PostID
		}
		assert.Equal(t, want, got)
	}
}

func TestStoreSnapshotIsDetached(t *testing.T) {
	store := NewStore()
	store.UpsertItem(testItem("p1", time.Now()))

	snapshot := store.Snapshot()
	snapshot[0].Title = "mutated"

	got, _ := store.GetItem("p1")
	assert.Equal(t, "title-p1", got.Title, "mutating a snapshot must not affect the store")
}

func TestStoreLikeMembership(t *testing.T) {
	store := NewStore()

	// Membership is tracked even before the post is known.
	store.AddLike("u9", "p1")
	assert.True(t, store.HasLiked("u9", "p1"))

	store.RemoveLike("u9", "p1")
	assert.False(t, store.HasLiked("u9", "p1"))

	// Unlike without a tracked like is a no-op.
	store.RemoveLike("u9", "p1")
	store.RemoveLike("ghost", "p1")

	store.AddLike("u9", "p1")
	store.AddLike("u9", "p2")
	store.RemoveUserLikes("u9")
	assert.False(t, store.HasLiked("u9", "p1"))
	assert.False(t, store.HasLiked("u9", "p2"))
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	store.UpsertItem(testItem("p1", time.Now()))
	store.AddLike("u1", "p1")

	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Snapshot())
	assert.False(t, store.HasLiked("u1", "p1"))
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			store.UpsertItem(testItem(fmt.Sprintf("p%d", i), time.Now()))
		}(i)
		go func(i int) {
			defer wg.Done()
			store.AddLike("u1", fmt.Sprintf("p%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			store.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}
