package pubstatic

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Site is the result of loading a content directory.
type Site struct {
	// Posts sorted newest first, then by slug.
	Posts []Post
	// Issues found while parsing individual files.
	Issues []Issue
	// Files holds every selected file, relative to the content directory,
	// whether or not it parsed.
	Files []string
}

// Match reports whether rel (slash separated, relative to the content
// directory) is selected by the include and exclude patterns.
func Match(include, exclude []string, rel string) bool {
	matched := false
	for _, pat := range include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pat := range exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return false
		}
	}
	return true
}

// LoadPosts walks cfg.ContentDir and parses every selected file. Files that
// fail to parse become error issues; only I/O failures and cancellation are
// returned as errors.
func LoadPosts(ctx context.Context, cfg SiteConfig) (*Site, error) {
	cfg.setDefaults()
	root := cfg.ContentDir

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if Match(cfg.Include, cfg.Exclude, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("pubstatic: content directory %s: %w", root, err)
		}
		return nil, err
	}

	var (
		mu   sync.Mutex
		site = &Site{Files: files}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("pubstatic: read %s: %w", rel, err)
			}
			post, issues, err := ParsePost(rel, data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				site.Issues = append(site.Issues, parseIssue(rel, err))
				return nil
			}
			site.Posts = append(site.Posts, post)
			site.Issues = append(site.Issues, issues...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortPosts(site.Posts)
	SortIssues(site.Issues)
	return site, nil
}

func parseIssue(rel string, err error) Issue {
	rule := RuleFrontMatter
	line := 1
	if errors.Is(err, ErrInvalidFilename) {
		rule = RuleFilename
		line = 0
	}
	return Issue{Path: rel, Line: line, Rule: rule, Severity: SeverityError, Message: err.Error()}
}

// SortPosts orders posts newest first, breaking ties by slug then path.
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Slug != b.Slug {
			return a.Slug < b.Slug
		}
		return a.Path < b.Path
	})
}
