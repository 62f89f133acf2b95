package pubstatic

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding the post and tag index and reader
// comments. The post tables are derived data and are rewritten on every
// build; comments are kept across rebuilds.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations. Use ":memory:" for a
// throwaway index.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL lets
	// the preview server read while a watch rebuild writes.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    permalink TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    slug TEXT NOT NULL,
    date TEXT NOT NULL,
    layout TEXT NOT NULL,
    title TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    summary TEXT NOT NULL,
    body TEXT NOT NULL,
    comments INTEGER NOT NULL DEFAULT 0,
    extra TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS post_tags (
    permalink TEXT NOT NULL,
    position INTEGER NOT NULL,
    tag TEXT NOT NULL,
    label TEXT NOT NULL,
    PRIMARY KEY (permalink, tag)
);
CREATE INDEX IF NOT EXISTS post_tags_tag ON post_tags(tag);
CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    permalink TEXT NOT NULL,
    author TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_permalink ON comments(permalink, id);
`)
	return err
}

// ReplacePosts rewrites the post and tag index with posts in a single
// transaction. Tags are matched normalized (trimmed, lowercase) and keep
// their first spelling for display; repeats within a post are dropped.
func (s *Store) ReplacePosts(ctx context.Context, posts []Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return err
	}
	insPost, err := tx.PrepareContext(ctx, `INSERT INTO posts (permalink, path, slug, date, layout, title, subtitle, summary, body, comments, extra) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insPost.Close()
	insTag, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO post_tags (permalink, position, tag, label) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insTag.Close()

	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		// a forced build can carry duplicate permalinks; first one wins
		if seen[p.Permalink] {
			continue
		}
		seen[p.Permalink] = true
		extra, err := json.Marshal(jsonSafe(p.Extra))
		if err != nil {
			return fmt.Errorf("encode extra front matter for %s: %w", p.Path, err)
		}
		comments := 0
		if p.Comments {
			comments = 1
		}
		if _, err := insPost.ExecContext(ctx, p.Permalink, p.Path, p.Slug, p.DateString(), p.Layout, p.Title, p.Subtitle, p.Summary, p.Body, comments, string(extra)); err != nil {
			return fmt.Errorf("index %s: %w", p.Path, err)
		}
		for i, t := range p.Tags {
			tag := normalizeTag(t)
			if tag == "" {
				continue
			}
			if _, err := insTag.ExecContext(ctx, p.Permalink, i, tag, strings.TrimSpace(t)); err != nil {
				return fmt.Errorf("index tags of %s: %w", p.Path, err)
			}
		}
	}
	return tx.Commit()
}

const tagSeparator = "\x1f"

const postColumns = `p.permalink, p.path, p.slug, p.date, p.layout, p.title, p.subtitle, p.summary, p.body, p.comments, p.extra,
	COALESCE((SELECT group_concat(label, char(31) ORDER BY position) FROM post_tags t WHERE t.permalink = p.permalink), '')`

// ListPosts returns all indexed posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(tag string) ([]Post, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.Query(`SELECT ` + postColumns + ` FROM posts p ORDER BY p.date DESC, p.slug ASC`)
	} else {
		rows, err = s.db.Query(`SELECT `+postColumns+` FROM posts p
			WHERE EXISTS (SELECT 1 FROM post_tags t WHERE t.permalink = p.permalink AND t.tag = ?)
			ORDER BY p.date DESC, p.slug ASC`, normalizeTag(tag))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns a single post by permalink ("/YYYY-MM-DD-slug").
func (s *Store) GetPost(permalink string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts p WHERE p.permalink = ?`, permalink)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// TagCounts returns every tag with the number of posts carrying it, sorted
// by tag.
func (s *Store) TagCounts() ([]TagCount, error) {
	rows, err := s.db.Query(`SELECT tag, COUNT(*) FROM post_tags GROUP BY tag ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var c TagCount
		if err := rows.Scan(&c.Tag, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SaveComment stores a comment and returns it with its id and timestamp set.
func (s *Store) SaveComment(c Comment) (Comment, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO comments (permalink, author, body, created_at) VALUES (?, ?, ?, ?)`,
		c.Permalink, c.Author, c.Body, c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Comment{}, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

// ListComments returns the comments on a post, oldest first.
func (s *Store) ListComments(permalink string) ([]Comment, error) {
	rows, err := s.db.Query(`SELECT id, permalink, author, body, created_at FROM comments WHERE permalink = ? ORDER BY id`, permalink)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.Permalink, &c.Author, &c.Body, &created); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (Post, error) {
	var (
		p           Post
		date, extra string
		tags        string
		comments    int
	)
	if err := r.Scan(&p.Permalink, &p.Path, &p.Slug, &date, &p.Layout, &p.Title, &p.Subtitle, &p.Summary, &p.Body, &comments, &extra, &tags); err != nil {
		return Post{}, err
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return Post{}, fmt.Errorf("stored date %q for %s: %w", date, p.Permalink, err)
	}
	p.Date = d
	p.Comments = comments == 1
	if tags != "" {
		p.Tags = strings.Split(tags, tagSeparator)
	}
	if err := json.Unmarshal([]byte(extra), &p.Extra); err != nil {
		return Post{}, fmt.Errorf("stored front matter for %s: %w", p.Permalink, err)
	}
	return p, nil
}

// jsonSafe converts the map[any]any values yaml can produce into
// map[string]any so the result can be JSON encoded.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	default:
		return v
	}
}
