package pubstatic

import "time"

// Post is a single content file: front matter plus Markdown body, with the
// publish date and slug taken from its filename.
type Post struct {
	Layout   string
	Title    string
	Subtitle string
	Tags     []string
	Comments bool
	Body     string

	Date      time.Time
	Slug      string
	Permalink string // "/YYYY-MM-DD-slug"
	Path      string // relative to the content directory, slash separated
	Summary   string

	// Extra holds front-matter keys other than the known ones.
	Extra map[string]any

	// BodyLine is the 1-based line in the file where Body starts.
	BodyLine int
}

// DateString formats the publish date as YYYY-MM-DD.
func (p Post) DateString() string {
	return p.Date.Format(dateLayout)
}

// Name is the permalink without its leading slash.
func (p Post) Name() string {
	return p.Permalink[1:]
}

// HasTag reports whether p carries tag, compared case-insensitively.
func (p Post) HasTag(tag string) bool {
	want := normalizeTag(tag)
	for _, t := range p.Tags {
		if normalizeTag(t) == want {
			return true
		}
	}
	return false
}

// TagCount is one entry of the tag index.
type TagCount struct {
	Tag   string
	Count int
}

// Comment is a reader comment attached to a post with comments enabled.
type Comment struct {
	ID        int64
	Permalink string
	Author    string
	Body      string
	CreatedAt time.Time
}
