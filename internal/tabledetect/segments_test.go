package tabledetect

import (
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// ParseSegments
// ---------------------------------------------------------------------------

func TestParseSegments(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"tight row", "| A | B |", []string{"A", "B"}},
		{"loose row", "A | B", []string{"A", "B"}},
		{"no trailing pipe", "| A | B", []string{"A", "B"}},
		{"no leading pipe", "A | B |", []string{"A", "B"}},
		{"three cells", "| one | two | three |", []string{"one", "two", "three"}},
		{"inner empty cell kept", "| a |  | c |", []string{"a", "", "c"}},
		{"surrounding whitespace", "   | A | B |   ", []string{"A", "B"}},
		{"single cell", "| A |", nil},
		{"no pipes", "plain text", nil},
		{"blank", "", nil},
		{"whitespace only", "   ", nil},
		{"lone pipe", "|", nil},
		{"double pipe only", "||", nil},
		{"double leading pipe keeps one empty", "|| a | b", []string{"", "a", "b"}},
		{"escaped pipe stays in cell", `| a \| b | c |`, []string{"a | b", "c"}},
		{"escaped pipe only is one cell", `a \| b`, nil},
		{"other escapes keep backslash", `| a\n | b |`, []string{`a\n`, "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSegments(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSegments(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// IsCandidateRow
// ---------------------------------------------------------------------------

func TestIsCandidateRow(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"| A | B |", true},
		{"A | B", true},
		{"Col A | Col B | Col C", true},
		{"|---|---|", true},
		{"| x |  |", false}, // content on only one side of every pipe
		{"|  | x |", false},
		{"| | |", false},
		{"a |", false},
		{"| a", false},
		{"", false},
		{"no pipes here", false},
		{`a \| b`, false}, // escaped pipe is not a split point
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsCandidateRow(tt.line); got != tt.want {
				t.Errorf("IsCandidateRow(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Delimiter rows
// ---------------------------------------------------------------------------

func TestIsDelimiterSegment(t *testing.T) {
	tests := []struct {
		seg  string
		want bool
	}{
		{"---", true},
		{"-", true},
		{":-", true},
		{"-:", true},
		{":---:", true},
		{"", false},
		{"--x--", false},
		{"::", false},
		{":--:-", false},
		{" --- ", false}, // caller trims; raw spaces are not part of the shape
	}
	for _, tt := range tests {
		t.Run(tt.seg, func(t *testing.T) {
			if got := IsDelimiterSegment(tt.seg); got != tt.want {
				t.Errorf("IsDelimiterSegment(%q) = %v, want %v", tt.seg, got, tt.want)
			}
		})
	}
}

func TestIsDelimiterRow(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"|---|---|", true},
		{"|-|-|", true},
		{"| :--- | ---: |", true},
		{"--- | ---", true},
		{"|:-:|:-:|", true},
		{"| A | B |", false},
		{"|---|", false},      // single segment
		{"|---| B |", false},  // mixed
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsDelimiterRow(tt.line); got != tt.want {
				t.Errorf("IsDelimiterRow(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// FirstTablePair / ContainsTable
// ---------------------------------------------------------------------------

func TestFirstTablePair(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{
			"simple table",
			[]string{"| A | B |", "|---|---|", "| x | y |"},
			0,
		},
		{
			"prose before table",
			[]string{"intro", "| A | B |", "|---|---|"},
			1,
		},
		{
			"segment count mismatch invalidates pair",
			[]string{"| A | B |", "|---|---|---|"},
			-1,
		},
		{
			"mismatch then later valid pair",
			[]string{"| A | B |", "|---|---|---|", "| C | D | E |", "|---|---|---|"},
			2,
		},
		{
			"delimiter without header",
			[]string{"|---|---|"},
			-1,
		},
		{
			"header without delimiter",
			[]string{"| A | B |", "| x | y |"},
			-1,
		},
		{
			"no outer pipes",
			[]string{"Col A | Col B | Col C", "--- | --- | ---"},
			0,
		},
		{
			"empty input",
			nil,
			-1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstTablePair(tt.lines); got != tt.want {
				t.Errorf("FirstTablePair = %d, want %d", got, tt.want)
			}
			if got := ContainsTable(tt.lines); got != (tt.want >= 0) {
				t.Errorf("ContainsTable = %v, want %v", got, tt.want >= 0)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// StripBlockquote
// ---------------------------------------------------------------------------

func TestStripBlockquote(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"> | a | b |", "| a | b |"},
		{">| a | b |", "| a | b |"},
		{"> > nested", "nested"},
		{">", ""},
		{"no quote", "no quote"},
		{"  > indented quote", "indented quote"},
		{">  two spaces kept", " two spaces kept"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := StripBlockquote(tt.line); got != tt.want {
				t.Errorf("StripBlockquote(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
