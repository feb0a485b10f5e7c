package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFromFile_plainText(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads UTF-8 text and normalizes CRLF", func(t *testing.T) {
		path := writeFile(t, dir, "notes.txt", "line one\r\nline two\n")
		att, err := FromFile(path)
		if err != nil {
			t.Fatalf("FromFile: %v", err)
		}
		if att.Name != "notes.txt" {
			t.Errorf("Name = %q, want %q", att.Name, "notes.txt")
		}
		if att.Text != "line one\nline two\n" {
			t.Errorf("Text = %q, want %q", att.Text, "line one\nline two\n")
		}
	})

	t.Run("rejects binary content", func(t *testing.T) {
		path := writeFile(t, dir, "blob.dat", "abc\x00def")
		_, err := FromFile(path)
		if err == nil {
			t.Fatal("expected error for binary file")
		}
		if !strings.Contains(err.Error(), "binary") {
			t.Errorf("error = %q, want mention of binary", err)
		}
	})

	t.Run("errors on missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(dir, "missing.txt"))
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestCapText(t *testing.T) {
	t.Run("leaves short text alone", func(t *testing.T) {
		if got := capText("hello"); got != "hello" {
			t.Errorf("capText = %q, want %q", got, "hello")
		}
	})

	t.Run("truncates oversized text with marker", func(t *testing.T) {
		got := capText(strings.Repeat("x", maxTextBytes+500))
		if !strings.HasSuffix(got, "... (truncated at 100KB)") {
			t.Errorf("missing truncation marker, tail = %q", got[len(got)-40:])
		}
		if len(got) > maxTextBytes+100 {
			t.Errorf("len = %d, want about %d", len(got), maxTextBytes)
		}
	})
}

func TestFromGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "bravo")
	writeFile(t, dir, "c.md", "charlie")
	writeFile(t, dir, filepath.Join("sub", "d.txt"), "delta")

	t.Run("flat pattern matches directory entries", func(t *testing.T) {
		atts, err := FromGlob(filepath.Join(dir, "*.txt"))
		if err != nil {
			t.Fatalf("FromGlob: %v", err)
		}
		if len(atts) != 2 {
			t.Fatalf("got %d attachments, want 2", len(atts))
		}
		if atts[0].Name != "a.txt" || atts[0].Text != "alpha" {
			t.Errorf("atts[0] = {%q, %q}, want {a.txt, alpha}", atts[0].Name, atts[0].Text)
		}
		if atts[1].Name != "b.txt" {
			t.Errorf("atts[1].Name = %q, want %q", atts[1].Name, "b.txt")
		}
	})

	t.Run("doublestar pattern recurses", func(t *testing.T) {
		atts, err := FromGlob(filepath.Join(dir, "**", "*.txt"))
		if err != nil {
			t.Fatalf("FromGlob: %v", err)
		}
		if len(atts) != 3 {
			t.Fatalf("got %d attachments, want 3", len(atts))
		}
	})

	t.Run("skips unreadable files", func(t *testing.T) {
		bindir := t.TempDir()
		writeFile(t, bindir, "keep.txt", "text")
		writeFile(t, bindir, "skip.txt", "bin\x00ary")

		atts, err := FromGlob(filepath.Join(bindir, "*.txt"))
		if err != nil {
			t.Fatalf("FromGlob: %v", err)
		}
		if len(atts) != 1 || atts[0].Name != "keep.txt" {
			t.Errorf("got %d attachments (first %q), want just keep.txt", len(atts), atts[0].Name)
		}
	})

	t.Run("errors when nothing matches", func(t *testing.T) {
		_, err := FromGlob(filepath.Join(dir, "*.nope"))
		if err == nil {
			t.Error("expected error for unmatched pattern")
		}
	})

	t.Run("caps the number of attachments", func(t *testing.T) {
		many := t.TempDir()
		for i := 0; i < maxAttachFiles+3; i++ {
			writeFile(t, many, fmt.Sprintf("f%02d.txt", i), "x")
		}
		atts, err := FromGlob(filepath.Join(many, "*.txt"))
		if err != nil {
			t.Fatalf("FromGlob: %v", err)
		}
		if len(atts) != maxAttachFiles {
			t.Errorf("got %d attachments, want %d", len(atts), maxAttachFiles)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("no attachments returns text unchanged", func(t *testing.T) {
		if got := BuildPrompt("hello", nil); got != "hello" {
			t.Errorf("BuildPrompt = %q, want %q", got, "hello")
		}
	})

	t.Run("wraps attachment in fenced block", func(t *testing.T) {
		atts := []domain.Attachment{{Name: "notes.txt", Text: "line one\nline two\n"}}
		got := BuildPrompt("summarize this", atts)
		want := "summarize this\n\nAttached: notes.txt\n```\nline one\nline two\n```"
		if got != want {
			t.Errorf("BuildPrompt = %q, want %q", got, want)
		}
	})

	t.Run("fence grows past inner backticks", func(t *testing.T) {
		atts := []domain.Attachment{{Name: "code.md", Text: "```go\nx\n```"}}
		got := BuildPrompt("q", atts)
		if !strings.Contains(got, "````\n```go\nx\n```\n````") {
			t.Errorf("expected four-backtick fence, got %q", got)
		}
	})
}

func TestFenceFor(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text", "no ticks here", "```"},
		{"short runs", "a `` b", "```"},
		{"three ticks inside", "x ``` y", "````"},
		{"five ticks inside", "`````", "``````"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fenceFor(tt.text); got != tt.want {
				t.Errorf("fenceFor(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWordXMLText(t *testing.T) {
	const doc = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>col</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>a</w:t><w:br/><w:t>b</w:t></w:r></w:p>` +
		`</w:body>` +
		`</w:document>`

	got := wordXMLText(doc)
	want := "Hello world\nSecond\tcol\na\nb\n"
	if got != want {
		t.Errorf("wordXMLText = %q, want %q", got, want)
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"plain text", []byte("hello world"), false},
		{"empty", nil, false},
		{"nul byte", []byte("ab\x00cd"), true},
		{"nul past probe window", append([]byte(strings.Repeat("a", 600)), 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBinary(tt.data); got != tt.want {
				t.Errorf("isBinary = %v, want %v", got, tt.want)
			}
		})
	}
}
