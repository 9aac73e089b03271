package search

import (
	"context"
	"time"
)

// Result is a single memo hit returned to the caller.
type Result struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Snippet      string    `json:"snippet"`
	LastModified time.Time `json:"lastModified"`
}

// Query describes a notes search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the notes search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

// Searcher can execute a full-text search over memos.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// MemoRecord is the data we index for a memo.
type MemoRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	LastModified string `json:"lastModified"`
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}
