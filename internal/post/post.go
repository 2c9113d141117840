// Package post holds the record fetched from the upstream posts endpoint and
// the text rendered from it.
package post

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"
)

// Post is one upstream record. Values are treated as immutable once fetched.
type Post struct {
	UserID int    `json:"userId" yaml:"user_id"`
	ID     int    `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Body   string `json:"body" yaml:"body"`
}

// FileName is the name the post is saved under.
func (p Post) FileName() string {
	return fmt.Sprintf("post %d.txt", p.ID)
}

// Format selects how a post is rendered before it is typed.
type Format string

const (
	// FormatPlain is the title, a blank line and the body verbatim.
	FormatPlain Format = "plain"
	// FormatBlog wraps the post in a banner with author and source lines.
	FormatBlog Format = "blog"
)

// Valid reports whether f names a known format.
func (f Format) Valid() bool {
	return f == FormatPlain || f == FormatBlog
}

const blogRule = "============================================================"

var blogTemplate = template.Must(template.New("blog").Funcs(template.FuncMap{
	"titlecase": titleCase,
	"rule":      func() string { return blogRule },
}).Parse(`BLOG POST #{{.ID}}
{{rule}}

TITLE: {{titlecase .Title}}

AUTHOR: User #{{.UserID}}

BLOG CONTENT:
{{.Body}}

{{rule}}
Source: {{.SourceURL}}
Generated by postscribe
{{rule}}
`))

// Render returns the text typed into the editor for p.
func (p Post) Render(format Format, sourceURL string) (string, error) {
	switch format {
	case "", FormatPlain:
		return p.Title + "\n\n" + p.Body + "\n", nil
	case FormatBlog:
		data := struct {
			Post
			SourceURL string
		}{Post: p, SourceURL: itemURL(sourceURL, p.ID)}
		var buf bytes.Buffer
		if err := blogTemplate.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("post: render %d: %w", p.ID, err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("post: unknown format %q", format)
	}
}

func itemURL(base string, id int) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return fmt.Sprintf("post %d", id)
	}
	return fmt.Sprintf("%s/%d", base, id)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
