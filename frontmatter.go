package pubstatic

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eringen/pubstatic/markdown"
)

const summaryLength = 200

// FrontMatter is the decoded metadata header of a post.
type FrontMatter struct {
	Layout   string
	Title    string
	Subtitle string
	Tags     []string
	Comments bool
	Extra    map[string]any

	// lines maps each top-level key to its 1-based line in the file.
	lines map[string]int
	// problems found while interpreting typed fields.
	problems []Issue
}

// Line returns the file line of key, or the opening fence line if absent.
func (fm FrontMatter) Line(key string) int {
	if l, ok := fm.lines[key]; ok {
		return l
	}
	return 1
}

// SplitFrontMatter separates the YAML header from the body. The header must
// open on the first line with "---" and close with a line that is exactly
// "---" or "...". bodyLine is the 1-based line where the body starts.
func SplitFrontMatter(data []byte) (header []byte, body string, bodyLine int, err error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	first, rest, ok := cutLine(data)
	if strings.TrimRight(string(first), " \t") != "---" {
		return nil, "", 0, ErrNoFrontMatter
	}
	if !ok {
		return nil, "", 0, ErrUnterminatedFrontMatter
	}
	var hdr bytes.Buffer
	line := 1
	for len(rest) > 0 {
		var l []byte
		l, rest, _ = cutLine(rest)
		line++
		trimmed := strings.TrimRight(string(l), " \t")
		if trimmed == "---" || trimmed == "..." {
			return hdr.Bytes(), string(rest), line + 1, nil
		}
		hdr.Write(l)
		hdr.WriteByte('\n')
	}
	return nil, "", 0, ErrUnterminatedFrontMatter
}

// cutLine splits off the first line of data, dropping its LF or CRLF ending.
func cutLine(data []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(data, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

// ParseFrontMatter decodes a YAML header into a FrontMatter. Type problems in
// the known fields are not errors; they are collected for the linter.
func ParseFrontMatter(header []byte) (FrontMatter, error) {
	fm := FrontMatter{Extra: map[string]any{}, lines: map[string]int{}}

	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return fm, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return fm, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fm, errors.New("invalid yaml: front matter must be a mapping")
	}

	raw := make(map[string]any)
	if err := root.Decode(&raw); err != nil {
		return fm, fmt.Errorf("invalid yaml: %w", err)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		// +1 for the opening fence line.
		fm.lines[root.Content[i].Value] = root.Content[i].Line + 1
	}

	for key, val := range raw {
		switch key {
		case "layout":
			fm.Layout = fm.scalar(key, val, RuleLayoutRequired)
		case "title":
			fm.Title = fm.scalar(key, val, RuleTitleRequired)
		case "subtitle":
			fm.Subtitle = fm.scalar(key, val, RuleSubtitleType)
		case "tags":
			fm.Tags = fm.tags(val)
		case "comments":
			switch v := val.(type) {
			case bool:
				fm.Comments = v
			case nil:
			default:
				fm.problem(key, RuleCommentsType, fmt.Sprintf("comments must be true or false, got %v", v))
			}
		default:
			fm.Extra[key] = val
		}
	}
	return fm, nil
}

// scalar coerces a scalar value to a string. Non-scalar values are reported
// under rule and yield "".
func (fm *FrontMatter) scalar(key string, val any, rule Rule) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	default:
		fm.problem(key, rule, fmt.Sprintf("%s must be a plain string", key))
		return ""
	}
}

func (fm *FrontMatter) tags(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		tags := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				fm.problem("tags", RuleTagsType, fmt.Sprintf("tag #%d is %T, not a plain string", i+1, item))
				continue
			}
			tags = append(tags, s)
		}
		return tags
	default:
		fm.problem("tags", RuleTagsType, "tags must be a list of plain strings")
		return nil
	}
}

func (fm *FrontMatter) problem(key string, rule Rule, msg string) {
	fm.problems = append(fm.problems, Issue{
		Line:     fm.Line(key),
		Rule:     rule,
		Severity: SeverityError,
		Message:  msg,
	})
}

// ParsePost builds a Post from a file's path (relative to the content
// directory) and contents. Problems that still leave a usable post come back
// as issues; a missing or malformed header or filename is an error.
func ParsePost(relPath string, data []byte) (Post, []Issue, error) {
	date, slug, err := ParseFilename(relPath)
	if err != nil {
		return Post{}, nil, err
	}
	header, body, bodyLine, err := SplitFrontMatter(data)
	if err != nil {
		return Post{}, nil, err
	}
	fm, err := ParseFrontMatter(header)
	if err != nil {
		return Post{}, nil, err
	}

	p := Post{
		Layout:    fm.Layout,
		Title:     fm.Title,
		Subtitle:  fm.Subtitle,
		Tags:      fm.Tags,
		Comments:  fm.Comments,
		Body:      body,
		BodyLine:  bodyLine,
		Date:      date,
		Slug:      slug,
		Permalink: Permalink(date, slug),
		Path:      relPath,
		Summary:   markdown.Summary(body, summaryLength),
		Extra:     fm.Extra,
	}

	issues := fm.problems
	if p.Layout == "" && !hasRule(issues, RuleLayoutRequired) {
		issues = append(issues, Issue{Line: fm.Line("layout"), Rule: RuleLayoutRequired, Severity: SeverityError, Message: "layout is required"})
	}
	if p.Title == "" && !hasRule(issues, RuleTitleRequired) {
		issues = append(issues, Issue{Line: fm.Line("title"), Rule: RuleTitleRequired, Severity: SeverityError, Message: "title is required"})
	}
	for i := range issues {
		issues[i].Path = relPath
	}
	return p, issues, nil
}

func hasRule(issues []Issue, rule Rule) bool {
	for _, is := range issues {
		if is.Rule == rule {
			return true
		}
	}
	return false
}
