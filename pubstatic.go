// Package pubstatic turns a directory of dated Markdown posts with YAML front
// matter into a static blog. It lints posts before publishing, keeps a SQLite
// index of posts and tags, renders pages through user-overridable layouts,
// and offers a preview server that also accepts reader comments.
package pubstatic

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// App is the preview server. It wires together the store, cache, builder,
// handlers, middleware, and the site layouts.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *PostCache
	Builder *Builder

	log          *zap.Logger
	watch        bool
	watcher      *Watcher
	limiter      *CommentLimiter
	customRoutes []func(*App)
	prepared     bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		log:    zap.NewNop(),
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}

	return a
}

// Prepare opens the index, runs an initial build, and registers middleware
// and routes. Start calls it; tests call it to serve requests through
// a.Echo without listening.
func (a *App) Prepare(ctx context.Context) error {
	if a.prepared {
		return nil
	}
	if err := a.Config.Normalize(); err != nil {
		return err
	}
	if a.Config.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("pubstatic: session secret: %w", err)
		}
		a.Config.SessionSecret = string(secret)
		a.log.Info("session_secret not set, commenter sessions reset on restart")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pubstatic: init store: %w", err)
	}
	a.Store = store

	a.Builder = NewBuilder(a.Config, store, a.log.Named("build"))
	a.Builder.SkipOutput = true
	// the preview shows what is there, lint findings are only logged
	a.Builder.Force = true
	if _, err := a.Builder.Build(ctx); err != nil {
		return err
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.limiter = NewCommentLimiter(a.Config.CommentRateLimit, a.Config.CommentRateWindow)

	if a.watch {
		w, err := NewWatcher(
			[]string{a.Config.ContentDir, a.Config.LayoutDir, a.Config.StaticDir},
			a.rebuild, a.log.Named("watch"))
		if err != nil {
			return fmt.Errorf("pubstatic: watch: %w", err)
		}
		a.watcher = w
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.prepared = true
	return nil
}

func (a *App) rebuild(ctx context.Context) error {
	res, err := a.Builder.Build(ctx)
	a.Cache.Invalidate()
	if err != nil {
		return err
	}
	a.log.Info("reloaded", zap.Int("posts", res.Posts), zap.Int("issues", len(res.Report.Issues)))
	return nil
}

// Start prepares the app and serves until ctx is cancelled, then shuts the
// server down gracefully and releases resources.
func (a *App) Start(ctx context.Context) error {
	if err := a.Prepare(ctx); err != nil {
		a.Close()
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
		errc <- a.Echo.Start(a.Config.Addr)
	}()
	if a.watcher != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.watcher.Run(ctx); err != nil {
				a.log.Error("watcher stopped", zap.Error(err))
			}
		}()
		// the store must outlive any rebuild in flight
		defer func() {
			cancel()
			<-done
		}()
	}

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	a.log.Info("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/tags/", a.handleTags)
	e.GET("/tags/:tag/", a.handleTag)
	e.GET("/:permalink/", a.handlePost)
	e.POST("/:permalink/comments/", a.handleComment)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
