package pubstatic

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.22: What's New?  ", "go-1-22-what-s-new"},
		{"Café con leche", "cafe-con-leche"},
		{"Ünïcödé", "unicode"},
		{"---", ""},
		{"", ""},
		{"multiple   spaces", "multiple-spaces"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"2020-01-01-a"}, "https://example.com/2020-01-01-a/"},
		{"https://example.com/blog/", []string{"tags", "go"}, "https://example.com/blog/tags/go/"},
		{"https://example.com", []string{"sitemap.xml"}, "https://example.com/sitemap.xml/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" go, ,web ,")
	if len(got) != 2 || got[0] != "go" || got[1] != "web" {
		t.Fatalf("SplitTags = %#v", got)
	}
	if SplitTags("") != nil {
		t.Fatal("SplitTags(\"\") should be nil")
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	cur := Post{Permalink: "/2020-01-01-a", Tags: []string{"Go", "web"}}
	posts := []Post{
		cur,
		{Permalink: "/2020-01-02-b", Tags: []string{"go"}},
		{Permalink: "/2020-01-03-c", Tags: []string{"rust"}},
		{Permalink: "/2020-01-04-d", Tags: []string{"WEB"}},
		{Permalink: "/2020-01-05-e", Tags: []string{"web"}},
	}

	related := FilterRelatedPosts(cur, posts, 2)
	if len(related) != 2 || related[0].Permalink != "/2020-01-02-b" || related[1].Permalink != "/2020-01-04-d" {
		t.Fatalf("related = %+v", related)
	}
	if got := FilterRelatedPosts(cur, posts, 0); len(got) != 3 {
		t.Fatalf("unlimited related = %d posts, want 3", len(got))
	}
	if got := FilterRelatedPosts(Post{Permalink: "/x"}, posts, 5); got != nil {
		t.Fatalf("untagged post should have no related posts, got %+v", got)
	}
}

func TestBlogPostingJsonLD(t *testing.T) {
	p := Post{
		Title:     "Hello",
		Subtitle:  "World",
		Tags:      []string{"go", "web"},
		Date:      time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		Permalink: "/2020-01-02-hello",
		Summary:   "Intro",
	}
	cfg := SiteConfig{Name: "Blog", URL: "https://example.com", Author: "Ada"}

	var got map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJsonLD(p, cfg)), &got); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	checks := map[string]string{
		"@type":               "BlogPosting",
		"headline":            "Hello",
		"alternativeHeadline": "World",
		"datePublished":       "2020-01-02",
		"url":                 "https://example.com/2020-01-02-hello/",
		"keywords":            "go, web",
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s = %v, want %q", k, got[k], want)
		}
	}
	if author, _ := got["author"].(map[string]any); author["name"] != "Ada" {
		t.Errorf("author = %v", got["author"])
	}
}

func TestWebsiteJsonLD(t *testing.T) {
	var got map[string]any
	if err := json.Unmarshal([]byte(WebsiteJsonLD(SiteConfig{Name: "Blog", URL: "https://example.com"})), &got); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if got["@type"] != "WebSite" || got["name"] != "Blog" {
		t.Errorf("unexpected JSON-LD: %v", got)
	}
	if _, ok := got["author"]; ok {
		t.Error("author should be omitted when not configured")
	}
}
