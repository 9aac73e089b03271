package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"memopad/internal/store"
)

func seededMemos(t *testing.T) *store.Memos {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	memos := store.NewMemos(store.NewMemoryBackend(0))
	entries := []struct {
		id, content string
	}{
		{"memo_a", "# Groceries\nmilk and eggs"},
		{"memo_b", "# Work\nship the milk release"},
		{"memo_c", "# Ideas\nnothing here"},
	}
	for i, e := range entries {
		at := base.Add(time.Duration(i) * time.Minute)
		memos.WithClock(func() time.Time { return at })
		if _, err := memos.SaveMemo(ctx, e.id, e.content, ""); err != nil {
			t.Fatalf("SaveMemo(%s) error = %v", e.id, err)
		}
	}
	return memos
}

func TestLocalSearchOrdersByRecency(t *testing.T) {
	local := NewLocal(seededMemos(t))
	results, total, err := local.Search(context.Background(), Query{Text: "MILK"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("total = %d, results = %d", total, len(results))
	}
	if results[0].ID != "memo_b" || results[1].ID != "memo_a" {
		t.Fatalf("unexpected order %s, %s", results[0].ID, results[1].ID)
	}
	if !strings.Contains(results[0].Snippet, "<mark>milk</mark>") {
		t.Fatalf("snippet not highlighted: %q", results[0].Snippet)
	}
	if results[0].Title != "Work" {
		t.Fatalf("title = %q", results[0].Title)
	}
}

func TestLocalSearchMatchesTitleAndPaginates(t *testing.T) {
	local := NewLocal(seededMemos(t))
	ctx := context.Background()

	results, total, _ := local.Search(ctx, Query{Text: "ideas"})
	if total != 1 || results[0].ID != "memo_c" {
		t.Fatalf("title search = %+v (%d)", results, total)
	}

	page, total, _ := local.Search(ctx, Query{Text: "milk", Limit: 1, Offset: 1})
	if total != 2 || len(page) != 1 || page[0].ID != "memo_a" {
		t.Fatalf("page = %+v (%d)", page, total)
	}
	past, _, _ := local.Search(ctx, Query{Text: "milk", Offset: 5})
	if len(past) != 0 {
		t.Fatalf("expected empty page, got %+v", past)
	}
	empty, total, _ := local.Search(ctx, Query{})
	if len(empty) != 0 || total != 0 {
		t.Fatal("empty query should return nothing")
	}
}

func TestSnippetEscapesAndTrims(t *testing.T) {
	content := strings.Repeat("x", 40) + "<b>needle</b>" + strings.Repeat("y", 40)
	got := snippet(content, FindAll("needle", content))
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipses, got %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;<mark>needle</mark>&lt;/b&gt;") {
		t.Fatalf("expected escaped markup, got %q", got)
	}
}

func TestServiceFallsBackToLocal(t *testing.T) {
	svc := NewService(nil, NewLocal(seededMemos(t)))
	resp := svc.Search(context.Background(), Query{Text: "eggs"})
	if resp.Backend != "local" || resp.Total != 1 || resp.Results[0].ID != "memo_a" {
		t.Fatalf("unexpected response %+v", resp)
	}

	none := NewService(nil, nil).Search(context.Background(), Query{Text: "eggs"})
	if none.Results == nil || len(none.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", none)
	}

	// indexing without meilisearch is a no-op
	svc.IndexMemo("memo_a", store.Memo{})
	svc.DeleteMemo("memo_a")
	svc.Close()
}
