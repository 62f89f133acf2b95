package pubstatic

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	maxAuthorRunes  = 80
	maxCommentRunes = 5000
	anonymousAuthor = "Anonymous"
)

// commentError is a rejection shown to the reader above the comment form.
type commentError string

func (e commentError) Error() string { return string(e) }

const (
	errCommentEmpty    commentError = "Comment cannot be empty."
	errCommentTooLong  commentError = "Comment is too long (5000 characters max)."
	errAuthorTooLong   commentError = "Name is too long (80 characters max)."
	errCommentTooOften commentError = "Too many comments, please wait a minute and try again."
)

// ValidateComment trims and checks a submitted comment. An empty author
// becomes "Anonymous".
func ValidateComment(author, body string) (string, string, error) {
	author = strings.TrimSpace(author)
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return "", "", errCommentEmpty
	}
	if utf8.RuneCountInString(body) > maxCommentRunes {
		return "", "", errCommentTooLong
	}
	if utf8.RuneCountInString(author) > maxAuthorRunes {
		return "", "", errAuthorTooLong
	}
	if author == "" {
		author = anonymousAuthor
	}
	return author, body, nil
}

func (a *App) handleComment(c echo.Context) error {
	post, err := a.Cache.GetPost("/" + c.Param("permalink"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !post.Comments {
		return echo.ErrNotFound.WithInternal(ErrCommentsDisabled)
	}

	ip := c.RealIP()
	if !a.limiter.Check(ip) {
		a.log.Info("comment rate limited", zap.String("ip", ip), zap.String("post", post.Permalink))
		return a.rejectComment(c, post, http.StatusTooManyRequests, errCommentTooOften)
	}
	author, body, err := ValidateComment(c.FormValue("author"), c.FormValue("body"))
	if err != nil {
		return a.rejectComment(c, post, http.StatusUnprocessableEntity, err)
	}
	a.limiter.Record(ip)

	if _, err := a.Store.SaveComment(Comment{Permalink: post.Permalink, Author: author, Body: body}); err != nil {
		return err
	}
	if author != anonymousAuthor {
		if err := setCommenterName(c, author); err != nil {
			a.log.Warn("save commenter session", zap.Error(err))
		}
	}
	a.log.Info("comment saved", zap.String("post", post.Permalink))
	return c.Redirect(http.StatusSeeOther, post.Permalink+"/#comments")
}

// rejectComment re-renders the post with the error above the form.
func (a *App) rejectComment(c echo.Context, post Post, code int, reason error) error {
	page, err := a.postPage(c, post)
	if err != nil {
		return err
	}
	page.CommentError = reason.Error()
	if name := strings.TrimSpace(c.FormValue("author")); name != "" {
		page.CommenterName = name
	}
	return RenderStatus(c, code, a.layouts().Component(post.Layout, page))
}
