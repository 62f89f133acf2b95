package pubstatic

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pubstatic/views"
)

func (a *App) layouts() *views.Layouts {
	return a.Builder.Layouts()
}

func (a *App) handleHome(c echo.Context) error {
	tag := c.QueryParam("tag")
	posts, err := a.Cache.ListPosts(tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.TagCounts()
	if err != nil {
		return err
	}
	page := views.Page{
		Site:      SiteView(a.Config),
		Meta:      views.PageMeta{URL: BuildURL(a.Config.URL), Description: a.Config.Description, OGType: "website"},
		Posts:     PostViews(posts),
		Tags:      TagViews(tags, tag),
		ActiveTag: normalizeTag(tag),
		JSONLD:    template.JS(WebsiteJsonLD(a.Config)),
	}
	return Render(c, a.layouts().Component("home", page))
}

func (a *App) handleTags(c echo.Context) error {
	tags, err := a.Cache.TagCounts()
	if err != nil {
		return err
	}
	page := views.Page{
		Site: SiteView(a.Config),
		Meta: views.PageMeta{Title: "Tags", URL: BuildURL(a.Config.URL, "tags")},
		Tags: TagViews(tags, ""),
	}
	return Render(c, a.layouts().Component("tags", page))
}

func (a *App) handleTag(c echo.Context) error {
	// Echo matches on the raw path when the request has one, leaving the
	// parameter escaped.
	segment := c.Param("tag")
	if c.Request().URL.RawPath != "" {
		s, err := url.PathUnescape(segment)
		if err != nil {
			return echo.ErrNotFound
		}
		segment = s
	}
	tags, err := a.Cache.TagCounts()
	if err != nil {
		return err
	}
	for _, t := range tags {
		if !strings.EqualFold(views.TagSegment(t.Tag), segment) {
			continue
		}
		posts, err := a.Cache.ListPosts("")
		if err != nil {
			return err
		}
		return Render(c, a.layouts().Component("tag", TagPage(a.Config, t.Tag, posts, tags)))
	}
	return echo.ErrNotFound
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost("/" + c.Param("permalink"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	page, err := a.postPage(c, post)
	if err != nil {
		return err
	}
	return Render(c, a.layouts().Component(post.Layout, page))
}

// postPage builds the live page for post, with the comment form filled in
// when comments are enabled.
func (a *App) postPage(c echo.Context, post Post) (views.Page, error) {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return views.Page{}, err
	}
	page := PostPage(a.Config, post, posts)
	if !post.Comments {
		return page, nil
	}
	comments, err := a.Store.ListComments(post.Permalink)
	if err != nil {
		return views.Page{}, err
	}
	page.CommentsLive = true
	page.CSRFToken = CsrfToken(c)
	page.CommenterName = commenterName(c)
	for _, cm := range comments {
		page.Comments = append(page.Comments, views.Comment{Author: cm.Author, Body: cm.Body, CreatedAt: cm.CreatedAt})
	}
	return page, nil
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	tags, err := a.Cache.TagCounts()
	if err != nil {
		return err
	}
	data, err := RenderSitemap(a.Config, posts, tags)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts("")
	if err != nil {
		return err
	}
	data, err := RenderFeed(a.Config, posts)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=UTF-8", data)
}

// handleRobots serves robots.txt from the static directory, or a permissive
// default pointing at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.Config.StaticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	return c.String(http.StatusOK, "User-agent: *\nAllow: /\n\nSitemap: "+strings.TrimSuffix(BuildURL(a.Config.URL, "sitemap.xml"), "/")+"\n")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		page := views.Page{Site: SiteView(a.Config), Meta: views.PageMeta{Title: "Not found"}}
		if rerr := RenderStatus(c, http.StatusNotFound, a.layouts().Component("404", page)); rerr != nil {
			a.log.Error("render 404", zap.Error(rerr))
		}
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.log.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", code),
			zap.Error(err))
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
