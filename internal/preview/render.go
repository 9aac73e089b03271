// Package preview turns memo markdown into the sanitized HTML shown next to
// the editor.
package preview

import (
	"bytes"
	"log"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	EmptyHTML = `<p><em>Nothing to preview. Type some markdown in the editor.</em></p>`
	ErrorHTML = `<p><strong>Error:</strong> the markdown could not be rendered.</p>`
)

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer builds a GFM renderer. Raw HTML in the source is never passed
// through, and the output is sanitized again before it is returned.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnFullyQualifiedLinks(true)
	// task list items
	policy.AllowAttrs("type", "checked", "disabled").OnElements("input")

	return &Renderer{md: md, policy: policy}
}

func (r *Renderer) Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return EmptyHTML
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		log.Printf("preview: render markdown: %v", err)
		return ErrorHTML
	}
	return wrapTables(r.policy.Sanitize(buf.String()))
}

func wrapTables(out string) string {
	if !strings.Contains(out, "<table>") {
		return out
	}
	out = strings.ReplaceAll(out, "<table>", `<div class="table-container"><table>`)
	return strings.ReplaceAll(out, "</table>", "</table></div>")
}
