package userdir

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheUpsertLookupRemove(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Lookup("u1")
	assert.False(t, ok, "empty cache should not resolve u1")

	cache.Upsert("u1", "Alice")
	name, ok := cache.Lookup("u1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	cache.Upsert("u1", "Alicia")
	name, _ = cache.Lookup("u1")
	assert.Equal(t, "Alicia", name, "upsert should replace the previous name")

	cache.Remove("u1")
	_, ok = cache.Lookup("u1")
	assert.False(t, ok)

	// Removing again is a no-op.
	cache.Remove("u1")
}

func TestCacheClear(t *testing.T) {
	cache := NewCache()
	cache.Upsert("u1", "Alice")
	cache.Upsert("u2", "Bob")
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Lookup("u1")
	assert.False(t, ok)
}

func TestCacheConcurrency(t *testing.T) {
	cache := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			cache.Upsert(fmt.Sprintf("u%d", i), fmt.Sprintf("user-%d", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			cache.Lookup(fmt.Sprintf("u%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}
