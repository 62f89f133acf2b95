package views

import (
	"html/template"
	"time"
)

// SiteConfig is the site-wide branding every layout can read.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Post is the read-only view of a post handed to layouts.
type Post struct {
	Layout    string
	Title     string
	Subtitle  string
	Tags      []string
	Comments  bool
	Date      time.Time
	Permalink string
	Summary   string
	Extra     map[string]any
}

// Tag is one entry of the tag index.
type Tag struct {
	Name   string
	Count  int
	Active bool
}

// Comment is a reader comment shown under a post.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// Page is the data every layout executes against. Fields that do not apply
// to a page are left zero.
type Page struct {
	Site SiteConfig
	Meta PageMeta

	// Post and Content are set on post pages.
	Post    *Post
	Content template.HTML
	Related []Post

	// Posts is the listing on home and tag pages.
	Posts     []Post
	Tags      []Tag
	ActiveTag string

	// JSONLD is the structured-data block for the page.
	JSONLD template.JS

	// Comment form state, only when the post has comments enabled and the
	// page is served live.
	CommentsLive  bool
	Comments      []Comment
	CSRFToken     string
	CommenterName string
	CommentError  string
}
