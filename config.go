package pubstatic

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SiteConfig holds all configuration for a pubstatic site.
type SiteConfig struct {
	Name        string `mapstructure:"name"`        // Site name (default "Blog")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS and meta tags
	Author      string `mapstructure:"author"`      // Author name for JSON-LD

	ContentDir string   `mapstructure:"content_dir"` // Posts (default "_posts")
	LayoutDir  string   `mapstructure:"layout_dir"`  // User layouts (default "_layouts")
	StaticDir  string   `mapstructure:"static_dir"`  // Static assets (default "public")
	OutputDir  string   `mapstructure:"output_dir"`  // Build output (default "_site")
	Include    []string `mapstructure:"include"`     // doublestar patterns, relative to ContentDir
	Exclude    []string `mapstructure:"exclude"`     // doublestar patterns, relative to ContentDir

	Addr         string `mapstructure:"addr"`          // Listen address (default ":3000")
	DatabasePath string `mapstructure:"database_path"` // SQLite index path (default "data/index.db")

	MaxImageWidth int  `mapstructure:"max_image_width"` // Downscale wider images (default 1200, 0 keeps default)
	StrictLint    bool `mapstructure:"strict_lint"`     // Warnings fail lint and build

	SessionSecret     string        `mapstructure:"session_secret"`      // Cookie session secret for the comment form
	CookieSecure      bool          `mapstructure:"cookie_secure"`       // Set true for HTTPS
	CommentRateLimit  int           `mapstructure:"comment_rate_limit"`  // Comments per IP per window (default 5)
	CommentRateWindow time.Duration `mapstructure:"comment_rate_window"` // (default 1m)

	PostCacheTTL time.Duration `mapstructure:"post_cache_ttl"` // Post cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "_posts"
	}
	if c.LayoutDir == "" {
		c.LayoutDir = "_layouts"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.OutputDir == "" {
		c.OutputDir = "_site"
	}
	if len(c.Include) == 0 {
		c.Include = []string{"**/*.md", "**/*.markdown"}
	}
	if c.Exclude == nil {
		c.Exclude = []string{"**/_drafts/**", "**/README.md"}
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/index.db"
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 1200
	}
	if c.CommentRateLimit == 0 {
		c.CommentRateLimit = 5
	}
	if c.CommentRateWindow == 0 {
		c.CommentRateWindow = time.Minute
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// Normalize fills in defaults and validates the result.
func (c *SiteConfig) Normalize() error {
	c.setDefaults()
	return c.Validate()
}

// Validate reports the first invalid setting.
func (c SiteConfig) Validate() error {
	if c.MaxImageWidth < 0 {
		return fmt.Errorf("%w: max_image_width must be positive", ErrInvalidConfig)
	}
	if c.CommentRateLimit < 0 {
		return fmt.Errorf("%w: comment_rate_limit must be positive", ErrInvalidConfig)
	}
	if c.CommentRateWindow < 0 {
		return fmt.Errorf("%w: comment_rate_window must be positive", ErrInvalidConfig)
	}
	if c.PostCacheTTL < 0 {
		return fmt.Errorf("%w: post_cache_ttl must be positive", ErrInvalidConfig)
	}
	if c.OutputDir != "" {
		sources := []struct{ key, dir string }{
			{"content_dir", c.ContentDir},
			{"layout_dir", c.LayoutDir},
			{"static_dir", c.StaticDir},
		}
		for _, s := range sources {
			if s.dir != "" && within(c.OutputDir, s.dir) {
				return fmt.Errorf("%w: output_dir %s must not contain %s %s", ErrInvalidConfig, c.OutputDir, s.key, s.dir)
			}
		}
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return fmt.Errorf("%w: session_secret must be at least 16 bytes", ErrInvalidConfig)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger sets the logger used by the App and its builder.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// WithWatch rebuilds the index and output whenever content changes.
func WithWatch(enabled bool) Option {
	return func(a *App) {
		a.watch = enabled
	}
}

// within reports whether path is dir itself or lies below it. Relative paths
// are taken against the working directory.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
