// Package userdir maintains the userId -> display name mapping derived from
// user lifecycle events.
package userdir

import "sync"

// Cache is an event-driven directory of display names. There is no TTL or
// eviction: entries live until a UserDeleted event removes them.
type Cache struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewCache() *Cache {
	return &Cache{names: make(map[string]string)}
}

// Upsert records the display name for a user, replacing any previous one.
func (c *Cache) Upsert(userID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[userID] = username
}

// Remove forgets a user. Removing an unknown user is a no-op.
func (c *Cache) Remove(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, userID)
}

// Lookup returns the display name for a user and whether one is known.
func (c *Cache) Lookup(userID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[userID]
	return name, ok
}

// Clear empties the directory.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = make(map[string]string)
}

// Len returns the number of known users.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
