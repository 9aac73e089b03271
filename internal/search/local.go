package search

import (
	"context"
	"html"
	"sort"

	"memopad/internal/store"
)

const snippetRadius = 30

// MemoSource is the part of the memo store the local searcher scans.
type MemoSource interface {
	AllMemos(ctx context.Context) map[string]store.Memo
}

// Local scans the memo map in process. It is always available and serves
// as the fallback when Meilisearch is not configured or unhealthy.
type Local struct {
	memos MemoSource
}

func NewLocal(memos MemoSource) *Local {
	return &Local{memos: memos}
}

func (l *Local) Healthy() bool {
	return l != nil && l.memos != nil
}

func (l *Local) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if q.Text == "" {
		return nil, 0, nil
	}
	type hit struct {
		id   string
		memo store.Memo
		at   []Match
	}
	var hits []hit
	for id, memo := range l.memos.AllMemos(ctx) {
		at := FindAll(q.Text, memo.Content)
		if len(at) == 0 && len(FindAll(q.Text, memo.Title)) == 0 {
			continue
		}
		hits = append(hits, hit{id: id, memo: memo, at: at})
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].memo.LastModified.Equal(hits[j].memo.LastModified) {
			return hits[i].memo.LastModified.After(hits[j].memo.LastModified)
		}
		return hits[i].id < hits[j].id
	})

	total := len(hits)
	if q.Offset >= total {
		return []Result{}, total, nil
	}
	hits = hits[q.Offset:]
	if len(hits) > q.limit() {
		hits = hits[:q.limit()]
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			ID:           h.id,
			Title:        h.memo.Title,
			Snippet:      snippet(h.memo.Content, h.at),
			LastModified: h.memo.LastModified,
		})
	}
	return results, total, nil
}

// snippet cuts a window around the first match and marks it the way
// Meilisearch highlights its hits.
func snippet(content string, at []Match) string {
	runes := []rune(content)
	if len(at) == 0 {
		end := min(len(runes), 2*snippetRadius)
		return html.EscapeString(string(runes[:end]))
	}
	m := at[0]
	from := max(0, m.Start-snippetRadius)
	to := min(len(runes), m.Start+m.Length+snippetRadius)
	out := html.EscapeString(string(runes[from:m.Start])) +
		"<mark>" + html.EscapeString(string(runes[m.Start:m.Start+m.Length])) + "</mark>" +
		html.EscapeString(string(runes[m.Start+m.Length:to]))
	if from > 0 {
		out = "..." + out
	}
	if to < len(runes) {
		out += "..."
	}
	return out
}
