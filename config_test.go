package pubstatic

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteConfigDefaults(t *testing.T) {
	var cfg SiteConfig
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, "_posts", cfg.ContentDir)
	assert.Equal(t, "_layouts", cfg.LayoutDir)
	assert.Equal(t, "_site", cfg.OutputDir)
	assert.Equal(t, []string{"**/*.md", "**/*.markdown"}, cfg.Include)
	assert.Equal(t, []string{"**/_drafts/**", "**/README.md"}, cfg.Exclude)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 1200, cfg.MaxImageWidth)
	assert.Equal(t, 5, cfg.CommentRateLimit)
	assert.Equal(t, time.Minute, cfg.CommentRateWindow)
	assert.Equal(t, 5*time.Minute, cfg.PostCacheTTL)
}

func TestSiteConfigKeepsExplicitEmptyExclude(t *testing.T) {
	cfg := SiteConfig{Exclude: []string{}}
	require.NoError(t, cfg.Normalize())
	assert.Empty(t, cfg.Exclude)
}

func TestSiteConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  SiteConfig
	}{
		{"negative image width", SiteConfig{MaxImageWidth: -1}},
		{"negative rate limit", SiteConfig{CommentRateLimit: -1}},
		{"output is content", SiteConfig{ContentDir: "posts", OutputDir: "posts"}},
		{"output contains content", SiteConfig{ContentDir: "blog/_posts", OutputDir: "blog"}},
		{"output contains layouts", SiteConfig{LayoutDir: "_layouts", OutputDir: "."}},
		{"output contains static", SiteConfig{StaticDir: "/srv/blog/public", OutputDir: "/srv"}},
		{"negative rate window", SiteConfig{CommentRateWindow: -time.Second}},
		{"negative cache ttl", SiteConfig{PostCacheTTL: -time.Minute}},
		{"short secret", SiteConfig{SessionSecret: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Normalize()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSiteConfigAllowsSiblingOutput(t *testing.T) {
	cfg := SiteConfig{ContentDir: "blog/_posts", StaticDir: "blog/public", OutputDir: "blog/_site"}
	assert.NoError(t, cfg.Normalize())
}

func TestWithin(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, within("a", "a"))
	assert.True(t, within("a", filepath.Join("a", "b", "c")))
	assert.True(t, within(".", "x"))
	assert.False(t, within("a", "b"))
	assert.False(t, within(filepath.Join("a", "b"), "a"))
	assert.False(t, within("a", "ab"))
	assert.False(t, within("a", ".."+sep+"a"))
}
