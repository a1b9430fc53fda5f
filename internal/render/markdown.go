package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown converts user markdown to sanitized HTML.
type Markdown struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewMarkdown creates the markup processor used for topics, replies and appendices.
func NewMarkdown() *Markdown {
	// Linkify is left out: it would turn "name@host.tld" style text into
	// mailto links before mentions are scanned.
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
	)
	return &Markdown{
		md:        md,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// ToHTML renders raw markdown.
func (m *Markdown) ToHTML(raw string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(raw), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return m.sanitizer.Sanitize(buf.String()), nil
}
