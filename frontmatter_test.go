package pubstatic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatter(t *testing.T) {
	src := "---\nlayout: post\ntitle: Hi\n---\nBody line\n"
	header, body, bodyLine, err := SplitFrontMatter([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "layout: post\ntitle: Hi\n", string(header))
	assert.Equal(t, "Body line\n", body)
	assert.Equal(t, 5, bodyLine)
}

func TestSplitFrontMatterDotsCloseAndCRLF(t *testing.T) {
	src := "\xef\xbb\xbf---\r\ntitle: Hi\r\n...\r\ntext"
	header, body, bodyLine, err := SplitFrontMatter([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "title: Hi\n", string(header))
	assert.Equal(t, "text", body)
	assert.Equal(t, 4, bodyLine)
}

func TestSplitFrontMatterErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no fence", "title: Hi\n", ErrNoFrontMatter},
		{"fence not on first line", "\n---\ntitle: Hi\n---\n", ErrNoFrontMatter},
		{"empty file", "", ErrNoFrontMatter},
		{"only fence", "---", ErrUnterminatedFrontMatter},
		{"never closed", "---\ntitle: Hi\nbody\n", ErrUnterminatedFrontMatter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := SplitFrontMatter([]byte(tt.src))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFrontMatterFields(t *testing.T) {
	fm, err := ParseFrontMatter([]byte("layout: post\ntitle: 2024\nsubtitle: \"  spaced  \"\ntags: [go, Web]\ncomments: true\nauthor: ada\n"))
	require.NoError(t, err)
	assert.Equal(t, "post", fm.Layout)
	assert.Equal(t, "2024", fm.Title)
	assert.Equal(t, "spaced", fm.Subtitle)
	assert.Equal(t, []string{"go", "Web"}, fm.Tags)
	assert.True(t, fm.Comments)
	assert.Equal(t, map[string]any{"author": "ada"}, fm.Extra)
	assert.Empty(t, fm.problems)
	assert.Equal(t, 2, fm.Line("layout"))
	assert.Equal(t, 6, fm.Line("comments"))
	assert.Equal(t, 1, fm.Line("missing"))
}

func TestParseFrontMatterSingleTagString(t *testing.T) {
	fm, err := ParseFrontMatter([]byte("tags: golang\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, fm.Tags)
}

func TestParseFrontMatterTypeProblems(t *testing.T) {
	fm, err := ParseFrontMatter([]byte("layout: post\ntitle: [a, b]\nsubtitle: {x: 1}\ntags: [go, 3]\ncomments: yes please\n"))
	require.NoError(t, err)

	rules := map[Rule]int{}
	for _, is := range fm.problems {
		rules[is.Rule] = is.Line
		assert.Equal(t, SeverityError, is.Severity)
	}
	assert.Equal(t, map[Rule]int{
		RuleTitleRequired: 3,
		RuleSubtitleType:  4,
		RuleTagsType:      5,
		RuleCommentsType:  6,
	}, rules)
	assert.Equal(t, []string{"go"}, fm.Tags)
	assert.False(t, fm.Comments)
}

func TestParseFrontMatterInvalidYAML(t *testing.T) {
	_, err := ParseFrontMatter([]byte("title: [unclosed\n"))
	assert.ErrorContains(t, err, "invalid yaml")

	_, err = ParseFrontMatter([]byte("- a\n- b\n"))
	assert.ErrorContains(t, err, "must be a mapping")
}

func TestParseFrontMatterEmptyHeader(t *testing.T) {
	fm, err := ParseFrontMatter(nil)
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Empty(t, fm.Extra)
}

func TestParsePost(t *testing.T) {
	src := "---\nlayout: post\ntitle: Hello World\ntags:\n  - go\n---\nFirst paragraph with a [link](/2020-01-01-other).\n\nSecond.\n"
	p, issues, err := ParsePost("2021/2021-03-04-hello-world.md", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "hello-world", p.Slug)
	assert.Equal(t, "2021-03-04", p.DateString())
	assert.Equal(t, "/2021-03-04-hello-world", p.Permalink)
	assert.Equal(t, "2021-03-04-hello-world", p.Name())
	assert.Equal(t, "2021/2021-03-04-hello-world.md", p.Path)
	assert.Equal(t, 7, p.BodyLine)
	assert.Equal(t, "First paragraph with a link.", p.Summary)
	assert.True(t, p.HasTag("Go"))
}

func TestParsePostRequiredFields(t *testing.T) {
	p, issues, err := ParsePost("2021-03-04-x.md", []byte("---\nsubtitle: only\n---\n"))
	require.NoError(t, err)
	assert.Equal(t, "x", p.Slug)
	require.Len(t, issues, 2)
	assert.Equal(t, RuleLayoutRequired, issues[0].Rule)
	assert.Equal(t, RuleTitleRequired, issues[1].Rule)
	for _, is := range issues {
		assert.Equal(t, "2021-03-04-x.md", is.Path)
		assert.Equal(t, 1, is.Line)
	}
}

func TestParsePostBadFilename(t *testing.T) {
	_, _, err := ParsePost("hello.md", []byte("---\ntitle: x\n---\n"))
	assert.ErrorIs(t, err, ErrInvalidFilename)
}
