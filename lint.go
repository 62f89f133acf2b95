package pubstatic

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/eringen/pubstatic/markdown"
)

// Severity of a lint issue. Only errors fail a lint run unless it is strict.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule identifies the check that produced an issue.
type Rule string

const (
	RuleFrontMatter        Rule = "front-matter"
	RuleLayoutRequired     Rule = "layout-required"
	RuleTitleRequired      Rule = "title-required"
	RuleSubtitleType       Rule = "subtitle-type"
	RuleTagsType           Rule = "tags-type"
	RuleCommentsType       Rule = "comments-type"
	RuleFilename           Rule = "filename"
	RuleDuplicateFilename  Rule = "duplicate-filename"
	RuleDuplicatePermalink Rule = "duplicate-permalink"
	RuleBrokenLink         Rule = "broken-link"
	RuleUnknownLayout      Rule = "unknown-layout"
	RuleEmptyTag           Rule = "empty-tag"
	RuleDuplicateTag       Rule = "duplicate-tag"
	RuleFutureDate         Rule = "future-date"
)

// Issue is a single lint finding.
type Issue struct {
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Rule     Rule     `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	loc := i.Path
	if i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", i.Path, i.Line)
	}
	return fmt.Sprintf("%s: %s [%s] %s", loc, i.Severity, i.Rule, i.Message)
}

// LintOptions tunes a lint run.
type LintOptions struct {
	// Layouts, when non-nil, enables the unknown-layout check.
	Layouts interface{ Has(name string) bool }
	// Now is the clock for the future-date check. Zero disables it.
	Now time.Time
	// Strict makes warnings fail the run.
	Strict bool
	// Files lists every selected content file, including those that failed
	// to parse. Links to any of them resolve; the broken file reports its
	// own error.
	Files []string
}

// Report is the outcome of a lint run.
type Report struct {
	Issues []Issue
	Strict bool
}

// Errors counts error-severity issues.
func (r Report) Errors() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts warning-severity issues.
func (r Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Err returns a *LintError when the report has failing issues.
func (r Report) Err() error {
	var failing []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError || r.Strict {
			failing = append(failing, is)
		}
	}
	if len(failing) == 0 {
		return nil
	}
	return &LintError{Issues: failing}
}

// internal links are "/YYYY-MM-DD-slug" with an optional trailing slash,
// .html suffix, fragment or query.
var reInternalLink = regexp.MustCompile(`^/(\d{4}-\d{2}-\d{2}-[A-Za-z0-9][A-Za-z0-9._-]*)/?$`)

// Lint checks the cross-post invariants over a loaded set of posts: unique
// filenames and permalinks, resolvable internal links, and the per-post tag,
// layout and date checks. Per-file parse issues are merged in by the caller.
func Lint(posts []Post, opts LintOptions) Report {
	var issues []Issue
	add := func(p Post, line int, rule Rule, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{
			Path:     p.Path,
			Line:     line,
			Rule:     rule,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	byBase := make(map[string][]Post)
	byPermalink := make(map[string][]Post)
	targets := make(map[string]bool, len(posts)+len(opts.Files))
	for _, p := range posts {
		byBase[path.Base(p.Path)] = append(byBase[path.Base(p.Path)], p)
		byPermalink[p.Permalink] = append(byPermalink[p.Permalink], p)
		targets[p.Permalink] = true
	}
	for _, f := range opts.Files {
		if date, slug, err := ParseFilename(f); err == nil {
			targets[Permalink(date, slug)] = true
		}
	}
	for _, group := range byBase {
		if len(group) < 2 {
			continue
		}
		for _, p := range group {
			add(p, 0, RuleDuplicateFilename, SeverityError, "filename %s is also used by %s", path.Base(p.Path), otherPaths(p, group))
		}
	}
	for permalink, group := range byPermalink {
		if len(group) < 2 || sameBase(group) {
			continue
		}
		for _, p := range group {
			add(p, 0, RuleDuplicatePermalink, SeverityError, "permalink %s is also produced by %s", permalink, otherPaths(p, group))
		}
	}

	for _, p := range posts {
		if opts.Layouts != nil && p.Layout != "" && !opts.Layouts.Has(p.Layout) {
			add(p, 0, RuleUnknownLayout, SeverityWarning, "layout %q is not defined", p.Layout)
		}
		seen := make(map[string]bool, len(p.Tags))
		for _, t := range p.Tags {
			norm := normalizeTag(t)
			if norm == "" {
				add(p, 0, RuleEmptyTag, SeverityWarning, "empty tag")
				continue
			}
			if seen[norm] {
				add(p, 0, RuleDuplicateTag, SeverityWarning, "tag %q is listed more than once", t)
			}
			seen[norm] = true
		}
		// Compare calendar days in the clock's zone: a post dated today is
		// never in the future, whatever the offset from UTC.
		if !opts.Now.IsZero() && p.DateString() > opts.Now.Format(dateLayout) {
			add(p, 0, RuleFutureDate, SeverityWarning, "publish date %s is in the future", p.DateString())
		}
		for _, l := range markdown.ExtractLinks(p.Body) {
			name, ok := internalTarget(l.Target)
			if !ok {
				continue
			}
			if !resolves(name, targets) {
				add(p, p.BodyLine+l.Line-1, RuleBrokenLink, SeverityError, "link %s does not resolve to a post", l.Target)
			}
		}
	}

	SortIssues(issues)
	return Report{Issues: issues, Strict: opts.Strict}
}

// internalTarget reports whether target is an internal post link and returns
// the "YYYY-MM-DD-slug" it names.
func internalTarget(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	m := reInternalLink.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// resolves reports whether name, or name without an .html suffix, is a
// known permalink. The exact name wins so slugs ending in ".html" resolve.
func resolves(name string, targets map[string]bool) bool {
	if targets["/"+name] {
		return true
	}
	base, ok := strings.CutSuffix(name, ".html")
	return ok && targets["/"+base]
}

// SortIssues orders issues by path, line, rule, then message.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

func otherPaths(p Post, group []Post) string {
	var others []string
	for _, o := range group {
		if o.Path != p.Path {
			others = append(others, o.Path)
		}
	}
	return strings.Join(others, ", ")
}

func sameBase(group []Post) bool {
	base := path.Base(group[0].Path)
	for _, p := range group[1:] {
		if path.Base(p.Path) != base {
			return false
		}
	}
	return true
}
