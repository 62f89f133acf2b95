package pubstatic

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	posts []Post
	tags  []TagCount
	err   error
	calls int
}

func (f *fakeIndex) ListPosts(tag string) ([]Post, error) {
	f.calls++
	return f.posts, f.err
}

func (f *fakeIndex) TagCounts() ([]TagCount, error) {
	return f.tags, f.err
}

func TestPostCacheLoadsOnce(t *testing.T) {
	idx := &fakeIndex{
		posts: []Post{testPost("2020-01-02", "b", "B", "go"), testPost("2020-01-01", "a", "A", "Java")},
		tags:  []TagCount{{"go", 1}, {"java", 1}},
	}
	c := NewPostCache(idx, time.Hour)

	posts, err := c.ListPosts("")
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	java, err := c.ListPosts("JAVA")
	require.NoError(t, err)
	require.Len(t, java, 1)
	assert.Equal(t, "a", java[0].Slug)

	tags, err := c.TagCounts()
	require.NoError(t, err)
	assert.Equal(t, idx.tags, tags)

	assert.Equal(t, 1, idx.calls)
}

func TestPostCacheInvalidate(t *testing.T) {
	idx := &fakeIndex{posts: []Post{testPost("2020-01-01", "a", "A")}}
	c := NewPostCache(idx, time.Hour)

	_, err := c.GetPost("/2020-01-01-a")
	require.NoError(t, err)

	idx.posts = append(idx.posts, testPost("2020-02-01", "b", "B"))
	_, err = c.GetPost("/2020-02-01-b")
	assert.ErrorIs(t, err, ErrNotFound, "stale cache should not see the new post yet")

	c.Invalidate()
	_, err = c.GetPost("/2020-02-01-b")
	assert.NoError(t, err)
	assert.Equal(t, 2, idx.calls)
}

func TestPostCacheExpires(t *testing.T) {
	idx := &fakeIndex{posts: []Post{}}
	c := NewPostCache(idx, time.Millisecond)

	_, err := c.ListPosts("")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.ListPosts("")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.calls)
}

func TestPostCacheError(t *testing.T) {
	boom := errors.New("boom")
	c := NewPostCache(&fakeIndex{err: boom}, time.Hour)

	_, err := c.ListPosts("")
	assert.ErrorIs(t, err, boom)
}
