// Package extract turns local files and URLs into plain text staged for
// the next user message. PDF and DOCX get dedicated extractors;
// everything else is read as UTF-8 text with a size cap.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quillchat/quill/internal/domain"
)

const (
	// maxTextBytes caps the extracted text per file or URL.
	maxTextBytes = 100 * 1024
	// maxAttachFiles caps how many files one /attach can stage.
	maxAttachFiles = 10
)

// FromGlob expands a glob pattern (with ** support) and extracts text
// from each matching file. Files that cannot be extracted are skipped;
// an error is returned only when nothing usable matched.
func FromGlob(pattern string) ([]domain.Attachment, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	sort.Strings(paths)

	var atts []domain.Attachment
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		att, err := FromFile(p)
		if err != nil {
			continue
		}
		atts = append(atts, att)
		if len(atts) == maxAttachFiles {
			break
		}
	}
	if len(atts) == 0 {
		return nil, fmt.Errorf("no readable files match %q", pattern)
	}
	return atts, nil
}

// FromFile extracts text from a single file, dispatching on extension.
func FromFile(path string) (domain.Attachment, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = pdfText(path)
	case ".docx":
		text, err = docxText(path)
	default:
		text, err = plainText(path)
	}
	if err != nil {
		return domain.Attachment{}, err
	}
	return domain.Attachment{Name: filepath.Base(path), Text: capText(text)}, nil
}

// plainText reads a file as UTF-8 text with CRLF normalization.
func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if isBinary(data) {
		return "", fmt.Errorf("%s looks like a binary file", filepath.Base(path))
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// isBinary reports whether data looks like binary content.
func isBinary(data []byte) bool {
	check := data
	if len(check) > 512 {
		check = check[:512]
	}
	for _, b := range check {
		if b == 0 {
			return true
		}
	}
	return false
}

// capText truncates extracted text at maxTextBytes.
func capText(text string) string {
	if len(text) <= maxTextBytes {
		return text
	}
	return text[:maxTextBytes] + "\n... (truncated at 100KB)"
}

// BuildPrompt appends staged attachments to the user's text, each
// inside a fenced block so the extracted content reads as one literal
// chunk in the transcript and in the provider history.
func BuildPrompt(userText string, atts []domain.Attachment) string {
	if len(atts) == 0 {
		return userText
	}
	var b strings.Builder
	b.WriteString(userText)
	for _, a := range atts {
		fence := fenceFor(a.Text)
		b.WriteString("\n\nAttached: ")
		b.WriteString(a.Name)
		b.WriteString("\n")
		b.WriteString(fence)
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(a.Text, "\n"))
		b.WriteString("\n")
		b.WriteString(fence)
	}
	return b.String()
}

// fenceFor returns a backtick fence longer than any backtick run in
// text, so the attachment cannot close its own fence.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := max(3, longest+1)
	return strings.Repeat("`", n)
}
