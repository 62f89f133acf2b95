package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/pubstatic"
)

// run executes the command tree with args and returns everything it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{log: zap.NewNop()}
	root := c.command()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writePost(t *testing.T, site, name, content string) {
	t.Helper()
	path := filepath.Join(site, "_posts", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitNewLintBuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blog")

	out, err := run(t, "init", dir, "--url", "https://blog.example.com", "--author", "Sam")
	require.NoError(t, err)
	assert.Contains(t, out, "created "+filepath.Join(dir, "pubstatic.yml"))
	assert.Contains(t, out, "cd "+dir)

	out, err = run(t, "--site", dir, "new", "Hello,", "World!", "--tags", "go, web", "--date", "2024-06-01")
	require.NoError(t, err)
	postPath := filepath.Join(dir, "_posts", "2024-06-01-hello-world.md")
	assert.Equal(t, postPath+"\n", out)
	data, err := os.ReadFile(postPath)
	require.NoError(t, err)
	p, issues, err := pubstatic.ParsePost("2024-06-01-hello-world.md", data)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "Hello, World!", p.Title)
	assert.Equal(t, []string{"go", "web"}, p.Tags)

	_, err = run(t, "--site", dir, "new", "Hello World", "--date", "2024-06-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = run(t, "--site", dir, "lint")
	require.NoError(t, err)
	assert.Equal(t, "2 posts, 0 errors, 0 warnings\n", out)

	out, err = run(t, "--site", dir, "build")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "built 2 posts"), out)
	for _, f := range []string{
		"index.html",
		"404.html",
		"feed.xml",
		"sitemap.xml",
		"tags/index.html",
		"tags/go/index.html",
		"2024-06-01-hello-world/index.html",
		"public/style.css",
	} {
		assert.FileExists(t, filepath.Join(dir, "_site", filepath.FromSlash(f)))
	}
	assert.FileExists(t, filepath.Join(dir, "data", "index.db"))

	out, err = run(t, "--site", dir, "tags")
	require.NoError(t, err)
	assert.Equal(t, "go    1\nmeta  1\nweb   1\n", out)
}

func TestBuildCleanKeepsSources(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blog")
	_, err := run(t, "init", dir)
	require.NoError(t, err)
	cfgPath := filepath.Join(dir, "pubstatic.yml")
	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Replace(string(raw), "output_dir: _site", "output_dir: .", 1)), 0o644))

	_, err = run(t, "--site", dir, "build", "--clean")
	require.ErrorIs(t, err, pubstatic.ErrInvalidConfig)
	assert.DirExists(t, filepath.Join(dir, "_posts"))
	assert.FileExists(t, cfgPath)
}

func TestBuildCleanKeepsConfigDir(t *testing.T) {
	site := t.TempDir()
	writePost(t, site, "2024-01-01-a.md", "---\nlayout: post\ntitle: A\n---\nbody\n")
	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "blog.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output_dir: "+cfgDir+"\n"), 0o644))

	_, err := run(t, "--site", site, "--config", cfgPath, "build", "--clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to clean")
	assert.FileExists(t, cfgPath)
}

func TestNewRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "--site", dir, "new", "!!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug")

	_, err = run(t, "--site", dir, "new", "Title", "--date", "June 1st")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--date")

	_, err = run(t, "init", dir)
	require.Error(t, err)
}

func TestLintReportsErrors(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2024-01-01-untitled.md", "---\nlayout: post\n---\nbody\n")
	writePost(t, dir, "2024-01-02-links.md", "---\nlayout: post\ntitle: Links\n---\nSee [gone](/2023-01-01-gone).\n")

	out, err := run(t, "--site", dir, "lint")
	var lintErr *pubstatic.LintError
	require.True(t, errors.As(err, &lintErr), "got %v", err)
	assert.Len(t, lintErr.Issues, 2)
	assert.Contains(t, out, "2024-01-01-untitled.md")
	assert.Contains(t, out, "[title-required]")
	assert.Contains(t, out, "[broken-link]")
	assert.Contains(t, out, "2 posts, 2 errors, 0 warnings\n")

	out, err = run(t, "--site", dir, "lint", "--format", "json")
	require.Error(t, err)
	var got lintOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.OK)
	assert.Equal(t, 2, got.Errors)
	assert.Len(t, got.Issues, 2)

	_, err = run(t, "--site", dir, "build")
	require.True(t, errors.As(err, &lintErr))
	assert.NoDirExists(t, filepath.Join(dir, "_site"))

	_, err = run(t, "--site", dir, "build", "--force")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "_site", "index.html"))
}

func TestLintStrict(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "2024-01-01-dup.md", "---\nlayout: post\ntitle: Dup\ntags: [go, Go]\n---\nbody\n")

	out, err := run(t, "--site", dir, "lint", "--format", "json")
	require.NoError(t, err)
	var got lintOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.OK)
	assert.Equal(t, 1, got.Warnings)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, pubstatic.RuleDuplicateTag, got.Issues[0].Rule)

	_, err = run(t, "--site", dir, "lint", "--strict")
	var lintErr *pubstatic.LintError
	require.True(t, errors.As(err, &lintErr), "got %v", err)

	_, err = run(t, "--site", dir, "lint", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pubstatic.yml"), []byte(
		"name: From file\ncontent_dir: posts\noutput_dir: /srv/www\ncomment_rate_window: 30s\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PUBSTATIC_AUTHOR=From dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PUBSTATIC_AUTHOR") })
	t.Setenv("PUBSTATIC_ADDR", ":8080")

	c := &cli{site: dir, log: zap.NewNop()}
	cfg, err := c.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "From file", cfg.Name)
	assert.Equal(t, "From dotenv", cfg.Author)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.CommentRateWindow)
	assert.Equal(t, filepath.Join(dir, "posts"), cfg.ContentDir)
	assert.Equal(t, "/srv/www", cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, "data", "index.db"), cfg.DatabasePath)

	t.Setenv("PUBSTATIC_NAME", "From env")
	cfg, err = c.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "From env", cfg.Name)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	dir := t.TempDir()
	c := &cli{site: dir, log: zap.NewNop()}
	cfg, err := c.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, filepath.Join(dir, "_posts"), cfg.ContentDir)
	assert.Equal(t, filepath.Join(dir, "_site"), cfg.OutputDir)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pubstatic.yml"), []byte("max_image_width: -1\n"), 0o644))
	c := &cli{site: dir, log: zap.NewNop()}
	_, err := c.loadConfig()
	assert.ErrorIs(t, err, pubstatic.ErrInvalidConfig)
}

func TestConfigKeys(t *testing.T) {
	keys := configKeys()
	for _, want := range []string{"name", "url", "content_dir", "database_path", "session_secret", "comment_rate_window", "post_cache_ttl"} {
		assert.Contains(t, keys, want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pubstatic dev\n", out)
}
