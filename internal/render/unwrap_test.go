package render

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// UnwrapMarkdownFences
// ---------------------------------------------------------------------------

func TestUnwrapMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"md fence with table unwrapped",
			"```md\n| A | B |\n|---|---|\n| x | y |\n```\n",
			"| A | B |\n|---|---|\n| x | y |\n",
		},
		{
			"markdown tag matches case-insensitively",
			"```Markdown\n| A | B |\n| - | - |\n```\n",
			"| A | B |\n| - | - |\n",
		},
		{
			"tilde fences work too",
			"~~~markdown\n| A | B |\n|-|-|\n~~~\n",
			"| A | B |\n|-|-|\n",
		},
		{
			"js fence passes through",
			"```js\n| A | B |\n|---|---|\n```\n",
			"```js\n| A | B |\n|---|---|\n```\n",
		},
		{
			"md fence without a table passes through",
			"```md\n# just a heading\n```\n",
			"```md\n# just a heading\n```\n",
		},
		{
			"unterminated md fence keeps its markers",
			"```md\n| A | B |\n|---|---|\n",
			"```md\n| A | B |\n|---|---|\n",
		},
		{
			"surrounding text preserved",
			"before\n```md\n| A | B |\n|---|---|\n```\nafter\n",
			"before\n| A | B |\n|---|---|\nafter\n",
		},
		{
			"no fences at all",
			"plain text\nmore text\n",
			"plain text\nmore text\n",
		},
		{
			"empty input",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapMarkdownFences(tt.in); got != tt.want {
				t.Errorf("UnwrapMarkdownFences(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// line splitting helpers
// ---------------------------------------------------------------------------

func TestSplitInclusive_roundTrips(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"a\n",
		"a\nb",
		"a\nb\n",
		"\n\n",
		"a\r\nb\n",
	}
	for _, in := range inputs {
		if got := strings.Join(splitInclusive(in), ""); got != in {
			t.Errorf("splitInclusive(%q) does not round-trip: %q", in, got)
		}
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a\nb\n", []string{"a", "b"}},
		{"a\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := splitLines(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
