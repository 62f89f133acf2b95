package pubstatic

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

var reFilename = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-([A-Za-z0-9][A-Za-z0-9._-]*)\.(md|markdown)$`)

// ParseFilename extracts the publish date and slug from a post filename of the
// form YYYY-MM-DD-slug.md. Any directory part of name is ignored.
func ParseFilename(name string) (time.Time, string, error) {
	base := path.Base(name)
	m := reFilename.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, "", fmt.Errorf("%w: %q does not match YYYY-MM-DD-slug.md", ErrInvalidFilename, base)
	}
	date, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %q has an invalid date %s", ErrInvalidFilename, base, m[1])
	}
	return date, m[2], nil
}

// PostFilename is the inverse of ParseFilename.
func PostFilename(date time.Time, slug string) string {
	return date.Format(dateLayout) + "-" + slug + ".md"
}

// Permalink returns the internal link form of a post, "/YYYY-MM-DD-slug".
func Permalink(date time.Time, slug string) string {
	return "/" + date.Format(dateLayout) + "-" + slug
}
