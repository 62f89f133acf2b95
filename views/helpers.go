package views

import (
	"html/template"
	"net/url"
	"strings"
	"time"
)

// Funcs are the helpers available to every layout.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"pathEscape": PathEscape,
		"joinTags":   JoinTags,
		"tagURL":     TagURL,
		"tagClass":   TagClass,
		"formatDate": FormatDate,
		"isoDate":    func(t time.Time) string { return t.Format("2006-01-02") },
	}
}

// PathEscape wraps url.PathEscape for use in templates.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

var segmentEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "\\", "%5C")

// TagSegment is the directory name of a tag listing page: the normalized tag
// with "%", path separators and dot-only names percent-encoded. Distinct
// normalized tags always get distinct directories.
func TagSegment(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	if strings.Trim(s, ".") == "" {
		return strings.ReplaceAll(s, ".", "%2E")
	}
	return segmentEscaper.Replace(s)
}

// TagURL is the site-relative URL of a tag listing page.
func TagURL(tag string) string {
	return "/tags/" + url.PathEscape(TagSegment(tag)) + "/"
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}

// JoinTags formats a tag slice as a comma-separated string.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// FormatDate renders a publish date for humans, e.g. "March 4, 2019".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
