package utils

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	// raw HTML in the source is escaped by goldmark unless html.WithUnsafe is set
	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// NormalizeContent strips carriage returns and surrounding whitespace from user text.
func NormalizeContent(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "\r", ""))
}

// RenderMarkdown converts post text to sanitized HTML for templates.
// Content that fails to convert is shown escaped.
func RenderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
