package dependency

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache stores dependency responses for a short time. One Cache lives for
// the whole process and is shared by every client generation; entries are
// keyed by dependency hostname so a reload that changes the hostname never
// serves the old dependency's data.
type Cache struct {
	users *ristretto.Cache[string, []User]
}

// NewCache creates a response cache.
func NewCache() (*Cache, error) {
	users, err := ristretto.NewCache(&ristretto.Config[string, []User]{
		NumCounters: 10_000,
		MaxCost:     1 << 16,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{users: users}, nil
}

func (c *Cache) getUsers(host string) ([]User, bool) {
	if c == nil {
		return nil, false
	}
	return c.users.Get(host)
}

func (c *Cache) setUsers(host string, users []User, ttl time.Duration) {
	if c == nil {
		return
	}
	c.users.SetWithTTL(host, users, int64(len(users)+1), ttl)
	c.users.Wait()
}

// Clear drops every cached entry. Used after a dependency restart.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.users.Clear()
}

// Close releases the cache goroutines.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.users.Close()
}
