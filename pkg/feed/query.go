package feed

// Query is the read side. It only ever reads from the store; all mutation goes
// through the Dispatcher.
type Query struct {
	store *Store
}

func NewQuery(store *Store) *Query {
	return &Query{store: store}
}

// GetFeed returns a fresh, sorted snapshot of the view. When viewerID is
// non-empty each item is annotated with whether that viewer has liked it.
// The result aliases nothing inside the store and is safe to mutate.
func (q *Query) GetFeed(viewerID string) []ViewItem {
	items := q.store.Snapshot()

	view := make([]ViewItem, len(items))
	for i, item := range items {
		view[i] = ViewItem{Item: item}
		if viewerID != "" {
			liked := q.store.HasLiked(viewerID, item.PostID)
			view[i].ViewerHasLiked = &liked
		}
	}
	return view
}
