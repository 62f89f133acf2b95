package pubstatic

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherRebuildsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	content := filepath.Join(root, "_posts")
	require.NoError(t, os.MkdirAll(filepath.Join(content, "2020"), 0o755))

	rebuilt := make(chan struct{}, 10)
	var calls atomic.Int32
	w, err := NewWatcher([]string{content, filepath.Join(root, "missing")}, func(ctx context.Context) error {
		calls.Add(1)
		select {
		case rebuilt <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	require.NoError(t, err)
	w.Debounce = 50 * time.Millisecond
	assert.ElementsMatch(t, []string{content, filepath.Join(content, "2020")}, w.WatchList())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// a burst of writes collapses into one rebuild
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(content, "2020", "2020-01-01-a.md"), []byte("x"), 0o644))
	}
	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after write")
	}

	// directories created after start are watched too
	newDir := filepath.Join(content, "2021")
	require.NoError(t, os.Mkdir(newDir, 0o755))
	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after mkdir")
	}
	require.Eventually(t, func() bool {
		for _, d := range w.WatchList() {
			if d == newDir {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestWatcherIgnoresNoise(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/s/_posts/2020-01-01-a.md", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/s/_posts/2020-01-01-a.md", Op: fsnotify.Chmod}, true},
		{fsnotify.Event{Name: "/s/_posts/.2020-01-01-a.md.swp", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/s/_posts/2020-01-01-a.md~", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/s/_site/.tmp-index.html-123", Op: fsnotify.Create}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ignored(tt.ev), tt.ev.String())
	}
}

func TestWatcherKeepsGoingAfterFailedRebuild(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	var calls atomic.Int32
	w, err := NewWatcher([]string{dir}, func(ctx context.Context) error {
		calls.Add(1)
		return os.ErrInvalid
	}, nil)
	require.NoError(t, err)
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("1"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("2"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
