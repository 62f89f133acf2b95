package markdown

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reLinkTarget = regexp.MustCompile(`\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
	reHrefAttr   = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
	reLinkDef    = regexp.MustCompile(`^\s{0,3}\[[^\]]+\]:\s*<?([^\s>]+)>?(?:\s|$)`)
	reStripLink  = regexp.MustCompile(`!?\[(.*?)\]\([^)]*\)`)
	reStripMarks = regexp.MustCompile("[*_`]+")
)

// Link is a hyperlink target found in Markdown source.
type Link struct {
	Target string
	Line   int // 1-based
}

// ExtractLinks returns every link target in md, in source order: inline links,
// reference definitions such as "[1]: /target", and raw href attributes.
// Targets inside fenced code blocks and inline code spans are ignored.
func ExtractLinks(md string) []Link {
	var links []Link
	inCode := false
	for i, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if m := reLinkDef.FindStringSubmatch(line); m != nil {
			links = append(links, Link{Target: m[1], Line: i + 1})
			continue
		}
		line = reInlineCode.ReplaceAllString(line, "")
		for _, m := range reLinkTarget.FindAllStringSubmatch(line, -1) {
			links = append(links, Link{Target: m[1], Line: i + 1})
		}
		for _, m := range reHrefAttr.FindAllStringSubmatch(line, -1) {
			links = append(links, Link{Target: html.UnescapeString(m[1]), Line: i + 1})
		}
	}
	return links
}

// Summary returns the first prose paragraph of md as plain text, cut to at most
// max runes on a word boundary. Headings, lists, quotes, tables and code are
// skipped.
func Summary(md string, max int) string {
	var para []string
	inCode := false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if line == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		if isBlockLine(line) {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, line)
	}
	text := strings.Join(para, " ")
	text = reStripLink.ReplaceAllString(text, "$1")
	text = reStripMarks.ReplaceAllString(text, "")
	return truncate(text, max)
}

func isBlockLine(line string) bool {
	return headingLevel(line) > 0 ||
		strings.HasPrefix(line, "- ") ||
		strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "> ") ||
		strings.HasPrefix(line, "|") ||
		strings.HasPrefix(line, "---") ||
		strings.HasPrefix(line, "![") ||
		reOrderedList.MatchString(line)
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.") + "…"
}
