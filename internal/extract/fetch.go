package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/quillchat/quill/internal/domain"
)

// fetchBodyCap limits how much of a response body is read before text
// extraction.
const fetchBodyCap = 2 * 1024 * 1024

// FetchURL downloads a page and reduces it to readable text. HTML is
// run through a tokenizer that drops script/style content; anything
// else is treated as plain text.
func FetchURL(rawURL string) (domain.Attachment, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Attachment{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "quill/1.0")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.Attachment{}, fmt.Errorf("fetching %s: HTTP %d %s", rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyCap+1))
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(body) > fetchBodyCap {
		body = body[:fetchBodyCap]
	}

	var text string
	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "html") || looksLikeHTML(body):
		text = htmlToText(bytes.NewReader(body))
	case isBinary(body):
		return domain.Attachment{}, fmt.Errorf("%s returned binary content (%s)", rawURL, ct)
	default:
		text = strings.ReplaceAll(string(body), "\r\n", "\n")
	}

	if strings.TrimSpace(text) == "" {
		return domain.Attachment{}, fmt.Errorf("no readable text at %s", rawURL)
	}
	return domain.Attachment{Name: rawURL, Text: capText(text)}, nil
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

// skipTags hold content that never reads as text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true,
}

// blockTags force a line break in the extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "nav": true, "aside": true,
	"main": true, "li": true, "ul": true, "ol": true, "dl": true,
	"dt": true, "dd": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "figure": true, "figcaption": true,
	"form": true, "br": true, "hr": true,
}

// htmlToText reduces HTML to plain text: script/style/head content is
// dropped, inline whitespace collapses to single spaces, and block
// elements become line breaks.
func htmlToText(r io.Reader) string {
	z := html.NewTokenizer(r)

	var b strings.Builder
	skip := 0
	last := byte('\n')
	write := func(s string) {
		if s == "" {
			return
		}
		b.WriteString(s)
		last = s[len(s)-1]
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseBlankLines(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skip++
			}
			// HTML5 allows omitting </head>; an unclosed head would
			// otherwise swallow the whole document.
			if tag == "body" {
				skip = 0
			}
			if blockTags[tag] && last != '\n' {
				write("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skip > 0 {
				skip--
			}
			if blockTags[tag] && last != '\n' {
				write("\n")
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] && last != '\n' {
				write("\n")
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			fields := strings.Fields(string(z.Text()))
			if len(fields) == 0 {
				continue
			}
			if last != '\n' {
				write(" ")
			}
			write(strings.Join(fields, " "))
		}
	}
}

// collapseBlankLines trims trailing space per line and collapses runs
// of blank lines to one.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
