// Package feed holds the materialized feed view: the item store fed by domain
// events, the dispatcher that folds events into it, and the query side that
// serves point-in-time snapshots.
package feed

import "time"

// UnknownAuthor is the sentinel display name used when no directory entry
// exists for a post's author at the time the post is written into the store.
const UnknownAuthor = "Unknown User"

// Item is one denormalized feed entry, keyed by PostID. AuthorUsername is the
// last known display name when the item was written; it is not rewritten when
// the author later renames or deletes their account.
type Item struct {
	PostID         string    `json:"postId"`
	AuthorID       string    `json:"authorUserId"`
	AuthorUsername string    `json:"authorUsername"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	LikeCount      int       `json:"likeCount"`
}

// ViewItem is an Item optionally annotated for a specific viewer.
// ViewerHasLiked is nil when the request carried no viewer identity.
type ViewItem struct {
	Item
	ViewerHasLiked *bool `json:"viewerHasLiked,omitempty"`
}
