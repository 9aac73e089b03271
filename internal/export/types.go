// Package export turns a memo into a downloadable file or a Google Doc.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// Format represents the export output format
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// ParseFormat accepts the format names used by the API. An empty name means
// markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Request contains parameters for an export operation. An empty Title means
// there is no active document.
type Request struct {
	Title   string
	Content string
	Format  Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format is not known.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
	// ErrNothingToExport is returned for an upload of blank content.
	ErrNothingToExport = errors.New("nothing to export")
	// ErrUnauthorized means the provider rejected the access token.
	ErrUnauthorized = errors.New("export unauthorized")
)
