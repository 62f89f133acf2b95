package pubstatic

import (
	"sync"
	"time"
)

// PostIndex is the read side of the post index.
type PostIndex interface {
	ListPosts(tag string) ([]Post, error)
	TagCounts() ([]TagCount, error)
}

// PostCache is an in-memory cache of indexed posts and tag counts with TTL.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	tags    []TagCount
	fetched time.Time
	ttl     time.Duration
	index   PostIndex
}

// NewPostCache creates a PostCache backed by the given index.
func NewPostCache(idx PostIndex, ttl time.Duration) *PostCache {
	return &PostCache{index: idx, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.index.ListPosts("")
	if err != nil {
		return err
	}
	tags, err := c.index.TagCounts()
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []Post{}
	}
	c.posts = posts
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and tags after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded() ([]Post, []TagCount, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.posts, c.tags, nil
}

// ListPosts returns indexed posts, optionally filtered by tag.
func (c *PostCache) ListPosts(tag string) ([]Post, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	var filtered []Post
	for _, p := range posts {
		if p.HasTag(tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// TagCounts returns every tag with its post count.
func (c *PostCache) TagCounts() ([]TagCount, error) {
	_, tags, err := c.ensureLoaded()
	return tags, err
}

// GetPost returns a single post by permalink from the cache.
func (c *PostCache) GetPost(permalink string) (Post, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Permalink == permalink {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}
