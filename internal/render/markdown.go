package render

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips dangerous elements from rendered markdown.
// UGCPolicy allows safe HTML tags for user-generated content while
// removing <script>, event handlers and similar vectors.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown converts markdown source to sanitized HTML for templates.
// Falls back to the escaped source when conversion fails.
func Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)) //nolint:gosec // escaped above
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above
}
