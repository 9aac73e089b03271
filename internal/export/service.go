package export

import (
	"context"
	"fmt"
	"html/template"
	"time"
)

// Renderer converts memo markdown into sanitized HTML.
type Renderer interface {
	Render(markdown string) string
}

// Service provides memo export functionality
type Service struct {
	renderer Renderer
	now      func() time.Time
}

func NewService(renderer Renderer) *Service {
	return &Service{renderer: renderer, now: time.Now}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if req.Format == FormatMarkdown {
		return &Result{
			Data:     []byte(req.Content),
			Filename: filenameFor(req.Title, FormatMarkdown),
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	}

	html, err := RenderDocumentHTML(TemplateData{
		Title:       firstNonEmpty(req.Title, fallbackName),
		ContentHTML: template.HTML(s.renderer.Render(req.Content)),
		ExportedAt:  s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: filenameFor(req.Title, FormatHTML),
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, req.Title)
	case FormatDOCX:
		return exportDOCX(ctx, html, req.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
