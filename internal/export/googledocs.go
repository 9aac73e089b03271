package export

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	docs "google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// DocsAPI is the subset of the Google Docs API the uploader needs.
type DocsAPI interface {
	CreateDocument(ctx context.Context, title string) (string, error)
	InsertText(ctx context.Context, documentID, text string) error
}

// GoogleDocs talks to docs.googleapis.com with the caller's token.
type GoogleDocs struct {
	svc *docs.Service
}

// NewGoogleDocs builds a client. endpoint overrides the API base URL and is
// empty in production.
func NewGoogleDocs(ctx context.Context, ts oauth2.TokenSource, endpoint string) (*GoogleDocs, error) {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google docs client: %w", err)
	}
	return &GoogleDocs{svc: svc}, nil
}

func (g *GoogleDocs) CreateDocument(ctx context.Context, title string) (string, error) {
	doc, err := g.svc.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return doc.DocumentId, nil
}

// InsertText writes text at the start of the document body. Index 1 is the
// first position after the implicit section break.
func (g *GoogleDocs) InsertText(ctx context.Context, documentID, text string) error {
	req := &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{{
			InsertText: &docs.InsertTextRequest{
				Location: &docs.Location{Index: 1},
				Text:     text,
			},
		}},
	}
	_, err := g.svc.Documents.BatchUpdate(documentID, req).Context(ctx).Do()
	return err
}

// DocumentURL is the editor link for a Google Doc.
func DocumentURL(documentID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", documentID)
}
