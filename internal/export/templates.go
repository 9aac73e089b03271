package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for document template rendering. ContentHTML
// must already be sanitized.
type TemplateData struct {
	Title       string
	ContentHTML template.HTML
	ExportedAt  time.Time
}

// RenderDocumentHTML renders the standalone page for a memo.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
{{.ContentHTML}}
</body>
</html>`
