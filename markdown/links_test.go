package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	md := "Intro with [a post](/2019-03-01-immutability) and [ext](https://example.com \"title\").\n" +
		"\n" +
		"```\n" +
		"[ignored](/2000-01-01-nope)\n" +
		"```\n" +
		"Inline `[code](/2000-01-01-code)` is skipped.\n" +
		"Raw <a href=\"/2020-01-02-mocks/#why\">html</a> counts.\n" +
		"![img](/public/a.png){width:100%}\n"

	got := ExtractLinks(md)
	assert.Equal(t, []Link{
		{Target: "/2019-03-01-immutability", Line: 1},
		{Target: "https://example.com", Line: 1},
		{Target: "/2020-01-02-mocks/#why", Line: 7},
		{Target: "/public/a.png", Line: 8},
	}, got)
}

func TestExtractLinksReferenceDefinitions(t *testing.T) {
	md := "See [the other post][1] and [docs][].\n" +
		"\n" +
		"[1]: /2019-09-09-missing\n" +
		"   [docs]: <https://example.com/docs> \"Docs\"\n" +
		"    [code]: /2000-01-01-indented\n" +
		"```\n" +
		"[x]: /2000-01-01-fenced\n" +
		"```\n"

	assert.Equal(t, []Link{
		{Target: "/2019-09-09-missing", Line: 3},
		{Target: "https://example.com/docs", Line: 4},
	}, ExtractLinks(md))
}

func TestExtractLinksEmpty(t *testing.T) {
	assert.Empty(t, ExtractLinks("no links here"))
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		md   string
		max  int
		want string
	}{
		{
			name: "skips heading and strips inline marks",
			md:   "# Title\n\nDuplication is **not** always [bad](/x).\nIt depends.\n\nSecond paragraph.",
			max:  200,
			want: "Duplication is not always bad. It depends.",
		},
		{
			name: "skips leading code block",
			md:   "```go\nx := 1\n```\n\nAfter code.",
			max:  200,
			want: "After code.",
		},
		{
			name: "truncates on word boundary",
			md:   "one two three four five",
			max:  12,
			want: "one two…",
		},
		{
			name: "empty body",
			md:   "",
			max:  50,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.md, tt.max))
		})
	}
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "what-is-a-unit", Anchor("What is a *Unit*?"))
	assert.Equal(t, "café-au-lait", Anchor("Café au lait"))
	assert.Equal(t, "", Anchor("!!!"))
}

func TestRawHTMLLinkIsLintedButEscaped(t *testing.T) {
	md := `Raw <a href="/2020-01-02-mocks/">html</a> here.`
	assert.Equal(t, []Link{{Target: "/2020-01-02-mocks/", Line: 1}}, ExtractLinks(md))
	assert.Contains(t, Render(md), `&lt;a href=&#34;/2020-01-02-mocks/&#34;&gt;html&lt;/a&gt;`)
}
