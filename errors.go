package pubstatic

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested post does not exist.
	ErrNotFound = errors.New("pubstatic: not found")

	ErrNoFrontMatter           = errors.New("missing front matter")
	ErrUnterminatedFrontMatter = errors.New("front matter started but no closing delimiter found")
	ErrInvalidFilename         = errors.New("invalid post filename")
	ErrInvalidConfig           = errors.New("pubstatic: invalid config")
	ErrCommentsDisabled        = errors.New("pubstatic: comments are disabled for this post")
)

// LintError is returned when a lint run produced at least one failing issue.
type LintError struct {
	Issues []Issue
}

func (e *LintError) Error() string {
	n := len(e.Issues)
	if n == 0 {
		return "pubstatic: lint failed"
	}
	first := e.Issues[0]
	if n == 1 {
		return fmt.Sprintf("pubstatic: lint failed: %s", first)
	}
	return fmt.Sprintf("pubstatic: lint failed with %d issues, first: %s", n, first)
}

// Detail renders every issue on its own line.
func (e *LintError) Detail() string {
	var b strings.Builder
	for _, is := range e.Issues {
		b.WriteString(is.String())
		b.WriteByte('\n')
	}
	return b.String()
}
