package pubstatic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/pubstatic/markdown"
	"github.com/eringen/pubstatic/views"
)

const relatedLimit = 5

// BuildResult summarizes one build.
type BuildResult struct {
	Posts    int
	Pages    int
	Tags     int
	Assets   int
	Resized  int
	Report   Report
	Duration time.Duration
}

// Builder loads, lints, indexes and renders a site. Builds are serialized,
// so a watcher may call Build while a previous build is still running.
type Builder struct {
	Config SiteConfig
	Store  *Store
	Log    *zap.Logger

	// Force renders even when lint reports errors.
	Force bool
	// SkipOutput indexes without writing the static site (used by serve).
	SkipOutput bool
	// Now is the clock for the future-date lint check; nil means time.Now.
	Now func() time.Time
	// Keep lists directories Clean must never remove, besides the content,
	// layout, static and index directories and the working directory.
	Keep []string

	mu      sync.Mutex
	layouts *views.Layouts
}

// NewBuilder returns a Builder for cfg indexing into store. store may be nil
// when only static output is wanted.
func NewBuilder(cfg SiteConfig, store *Store, log *zap.Logger) *Builder {
	cfg.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{Config: cfg, Store: store, Log: log}
}

// Layouts returns the layouts loaded by the most recent build or lint.
func (b *Builder) Layouts() *views.Layouts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layouts
}

// Lint loads the content and layouts and runs every check without writing
// anything.
func (b *Builder) Lint(ctx context.Context) (*Site, Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lint(ctx)
}

func (b *Builder) lint(ctx context.Context) (*Site, Report, error) {
	layouts, err := views.Load(b.Config.LayoutDir)
	if err != nil {
		return nil, Report{}, fmt.Errorf("pubstatic: load layouts: %w", err)
	}
	b.layouts = layouts

	site, err := LoadPosts(ctx, b.Config)
	if err != nil {
		return nil, Report{}, err
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	report := Lint(site.Posts, LintOptions{Layouts: layouts, Now: now, Strict: b.Config.StrictLint, Files: site.Files})
	report.Issues = append(report.Issues, site.Issues...)
	SortIssues(report.Issues)
	return site, report, nil
}

// Build runs load, lint, index and render. Lint failures abort the build with
// a *LintError unless Force is set.
func (b *Builder) Build(ctx context.Context) (BuildResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	site, report, err := b.lint(ctx)
	if err != nil {
		return BuildResult{}, err
	}
	res := BuildResult{Posts: len(site.Posts), Report: report}
	for _, is := range report.Issues {
		b.Log.Warn("lint", zap.String("path", is.Path), zap.Int("line", is.Line),
			zap.String("rule", string(is.Rule)), zap.String("severity", string(is.Severity)), zap.String("msg", is.Message))
	}
	if err := report.Err(); err != nil && !b.Force {
		return res, err
	}

	if b.Store != nil {
		if err := b.Store.ReplacePosts(ctx, site.Posts); err != nil {
			return res, fmt.Errorf("pubstatic: index posts: %w", err)
		}
	}

	tags := CountTags(site.Posts)
	res.Tags = len(tags)
	if !b.SkipOutput {
		pages, err := b.render(ctx, site.Posts, tags)
		if err != nil {
			return res, err
		}
		res.Pages = pages
		stats, err := copyAssets(b.Config.StaticDir, b.Config.OutputDir, b.Config.MaxImageWidth)
		if err != nil {
			return res, fmt.Errorf("pubstatic: copy assets: %w", err)
		}
		res.Assets, res.Resized = stats.Copied, stats.Resized
	}
	res.Duration = time.Since(start)
	b.Log.Info("build finished",
		zap.Int("posts", res.Posts), zap.Int("pages", res.Pages), zap.Int("tags", res.Tags),
		zap.Int("assets", res.Assets), zap.Duration("took", res.Duration))
	return res, nil
}

type pageJob struct {
	path   string // relative to OutputDir
	layout string
	page   views.Page
}

func (b *Builder) render(ctx context.Context, posts []Post, tags []TagCount) (int, error) {
	cfg := b.Config
	site := SiteView(cfg)
	postViews := PostViews(posts)
	seen := make(map[string]bool, len(posts))

	var jobs []pageJob
	for _, p := range posts {
		if seen[p.Permalink] {
			continue
		}
		seen[p.Permalink] = true
		name, ok := b.layouts.Resolve(p.Layout)
		if !ok {
			b.Log.Warn("unknown layout, using fallback", zap.String("path", p.Path), zap.String("layout", p.Layout), zap.String("fallback", name))
		}
		jobs = append(jobs, pageJob{
			path:   filepath.Join(p.Name(), "index.html"),
			layout: name,
			page:   PostPage(cfg, p, posts),
		})
	}
	jobs = append(jobs,
		pageJob{path: "index.html", layout: "home", page: views.Page{
			Site: site, Meta: views.PageMeta{URL: BuildURL(cfg.URL), Description: cfg.Description, OGType: "website"},
			Posts: postViews, Tags: TagViews(tags, ""), JSONLD: template.JS(WebsiteJsonLD(cfg)),
		}},
		pageJob{path: filepath.Join("tags", "index.html"), layout: "tags", page: views.Page{
			Site: site, Meta: views.PageMeta{Title: "Tags", URL: BuildURL(cfg.URL, "tags")}, Tags: TagViews(tags, ""),
		}},
		pageJob{path: "404.html", layout: "404", page: views.Page{
			Site: site, Meta: views.PageMeta{Title: "Not found"},
		}},
	)
	for _, t := range tags {
		jobs = append(jobs, pageJob{
			path:   filepath.Join("tags", views.TagSegment(t.Tag), "index.html"),
			layout: "tag",
			page:   TagPage(cfg, t.Tag, posts, tags),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := b.layouts.Render(&buf, job.layout, job.page); err != nil {
				return fmt.Errorf("pubstatic: %s: %w", job.path, err)
			}
			return writeFileAtomic(filepath.Join(cfg.OutputDir, job.path), buf.Bytes())
		})
	}
	g.Go(func() error {
		feed, err := RenderFeed(cfg, posts)
		if err != nil {
			return fmt.Errorf("pubstatic: feed: %w", err)
		}
		return writeFileAtomic(filepath.Join(cfg.OutputDir, "feed.xml"), feed)
	})
	g.Go(func() error {
		sm, err := RenderSitemap(cfg, posts, tags)
		if err != nil {
			return fmt.Errorf("pubstatic: sitemap: %w", err)
		}
		return writeFileAtomic(filepath.Join(cfg.OutputDir, "sitemap.xml"), sm)
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

// Clean removes the output directory. It refuses when that directory is a
// filesystem root or holds any source of the site.
func (b *Builder) Clean() error {
	cfg := b.Config
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("pubstatic: clean: %w", err)
	}
	if cfg.OutputDir == "" || filepath.Dir(out) == out {
		return errors.New("pubstatic: refusing to clean output directory " + out)
	}
	keep := []string{cfg.ContentDir, cfg.LayoutDir, cfg.StaticDir, "."}
	if cfg.DatabasePath != ":memory:" {
		keep = append(keep, filepath.Dir(cfg.DatabasePath))
	}
	for _, dir := range append(keep, b.Keep...) {
		if dir != "" && within(out, dir) {
			return fmt.Errorf("pubstatic: refusing to clean output directory %s: it contains %s", out, dir)
		}
	}
	return os.RemoveAll(out)
}

// CountTags aggregates normalized tags over posts, sorted by tag.
func CountTags(posts []Post) []TagCount {
	counts := make(map[string]int)
	for _, p := range posts {
		seen := make(map[string]bool, len(p.Tags))
		for _, t := range p.Tags {
			tag := normalizeTag(t)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			counts[tag]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sortTagCounts(out)
	return out
}

// SiteView maps the config to the layout view.
func SiteView(cfg SiteConfig) views.SiteConfig {
	return views.SiteConfig{Name: cfg.Name, URL: cfg.URL, Description: cfg.Description, Author: cfg.Author}
}

// PostView maps a post to the layout view.
func PostView(p Post) views.Post {
	return views.Post{
		Layout:    p.Layout,
		Title:     p.Title,
		Subtitle:  p.Subtitle,
		Tags:      p.Tags,
		Comments:  p.Comments,
		Date:      p.Date,
		Permalink: p.Permalink,
		Summary:   p.Summary,
		Extra:     p.Extra,
	}
}

// PostViews maps posts to layout views, keeping their order.
func PostViews(posts []Post) []views.Post {
	out := make([]views.Post, len(posts))
	for i, p := range posts {
		out[i] = PostView(p)
	}
	return out
}

// TagViews maps tag counts to layout views, marking active.
func TagViews(tags []TagCount, active string) []views.Tag {
	active = normalizeTag(active)
	out := make([]views.Tag, len(tags))
	for i, t := range tags {
		out[i] = views.Tag{Name: t.Tag, Count: t.Count, Active: t.Tag == active}
	}
	return out
}

// PostPage builds the page data for a single post; all is the full post list
// used to find related posts.
func PostPage(cfg SiteConfig, p Post, all []Post) views.Page {
	pv := PostView(p)
	desc := p.Summary
	if p.Subtitle != "" {
		desc = p.Subtitle
	}
	return views.Page{
		Site:    SiteView(cfg),
		Meta:    views.PageMeta{Title: p.Title, Description: desc, URL: BuildURL(cfg.URL, p.Name()), OGType: "article"},
		Post:    &pv,
		Content: template.HTML(markdown.Render(p.Body)),
		Related: PostViews(FilterRelatedPosts(p, all, relatedLimit)),
		JSONLD:  template.JS(BlogPostingJsonLD(p, cfg)),
	}
}

// TagPage builds the listing page for one tag.
func TagPage(cfg SiteConfig, tag string, all []Post, tags []TagCount) views.Page {
	var tagged []Post
	for _, p := range all {
		if p.HasTag(tag) {
			tagged = append(tagged, p)
		}
	}
	tag = normalizeTag(tag)
	return views.Page{
		Site:      SiteView(cfg),
		Meta:      views.PageMeta{Title: "Tag: " + tag, URL: BuildURL(cfg.URL, "tags", views.TagSegment(tag))},
		Posts:     PostViews(tagged),
		Tags:      TagViews(tags, tag),
		ActiveTag: tag,
	}
}

func sortTagCounts(tags []TagCount) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Tag < tags[j].Tag })
}
