package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

const (
	uploadAttempts = 3
	uploadBackoff  = 500 * time.Millisecond
)

// UploadFormat selects what is inserted into the new Google Doc.
type UploadFormat string

const (
	UploadMarkdown UploadFormat = "markdown"
	UploadHTML     UploadFormat = "html"
)

type UploadRequest struct {
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Format  UploadFormat `json:"format"`
}

type UploadResult struct {
	DocumentID string `json:"documentId"`
	URL        string `json:"url"`
}

// Uploader creates a Google Doc from a memo. Each API call is attempted up
// to three times; a rejected token is never retried.
type Uploader struct {
	renderer Renderer
	backoff  time.Duration
}

func NewUploader(renderer Renderer) *Uploader {
	return &Uploader{renderer: renderer, backoff: uploadBackoff}
}

// WithBackoff sets the base delay between attempts.
func (u *Uploader) WithBackoff(d time.Duration) *Uploader {
	u.backoff = d
	return u
}

func (u *Uploader) Upload(ctx context.Context, api DocsAPI, req UploadRequest) (UploadResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return UploadResult{}, ErrNothingToExport
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fallbackName
	}
	text := req.Content
	if req.Format == UploadHTML && u.renderer != nil {
		text = u.renderer.Render(req.Content)
	}

	var documentID string
	err := u.retry(ctx, "create document", func() error {
		id, err := api.CreateDocument(ctx, title)
		documentID = id
		return err
	})
	if err != nil {
		return UploadResult{}, err
	}

	err = u.retry(ctx, "insert text", func() error {
		return api.InsertText(ctx, documentID, text)
	})
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{DocumentID: documentID, URL: DocumentURL(documentID)}, nil
}

func (u *Uploader) retry(ctx context.Context, step string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if unauthorized(err) {
			return fmt.Errorf("%w: %s: %v", ErrUnauthorized, step, err)
		}
		if !transient(err) || attempt == uploadAttempts {
			break
		}
		log.Printf("export: %s attempt %d failed, retrying: %v", step, attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%s: %w", step, err)
}

func unauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// transient reports whether another attempt can help. Rate limits and 5xx
// responses qualify; other client errors are final.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}
