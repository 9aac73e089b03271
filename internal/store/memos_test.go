package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateTitle(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", DefaultTitle},
		{"whitespace", "  \n\t\n", DefaultTitle},
		{"heading", "# Shopping list\n- eggs", "Shopping list"},
		{"deep heading", "###   Notes", "Notes"},
		{"skips blank lines", "\n\n  plan  \nmore", "plan"},
		{"only markers", "###", DefaultTitle},
		{"truncates", strings.Repeat("a", 31), strings.Repeat("a", 30) + "..."},
		{"exact length", strings.Repeat("b", 30), strings.Repeat("b", 30)},
		{"counts runes", strings.Repeat("é", 35), strings.Repeat("é", 30) + "..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GenerateTitle(tc.content); got != tc.want {
				t.Fatalf("GenerateTitle(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestMemosRoundTrip(t *testing.T) {
	ctx := context.Background()
	memos := NewMemos(NewMemoryBackend(0))
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	memos.now = func() time.Time { return fixed }

	if _, ok := memos.Memo(ctx, "memo_a"); ok {
		t.Fatal("expected missing memo")
	}
	missing, _ := memos.Memo(ctx, "memo_a")
	if missing.Title != DefaultTitle || missing.Content != "" {
		t.Fatalf("unexpected default memo %+v", missing)
	}

	saved, err := memos.SaveMemo(ctx, "memo_a", "# Hello\nbody", "")
	if err != nil {
		t.Fatalf("SaveMemo failed: %v", err)
	}
	if saved.Title != "Hello" || !saved.LastModified.Equal(fixed) {
		t.Fatalf("unexpected saved memo %+v", saved)
	}
	if _, err := memos.SaveMemo(ctx, "memo_b", "text", "Pinned title"); err != nil {
		t.Fatalf("SaveMemo failed: %v", err)
	}

	all := memos.AllMemos(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 memos, got %d", len(all))
	}
	if all["memo_b"].Title != "Pinned title" {
		t.Fatalf("explicit title not kept: %+v", all["memo_b"])
	}
	got, ok := memos.Memo(ctx, "memo_a")
	if !ok || got.Content != "# Hello\nbody" || !got.LastModified.Equal(fixed) {
		t.Fatalf("unexpected memo %+v", got)
	}

	if err := memos.DeleteMemo(ctx, "memo_a"); err != nil {
		t.Fatalf("DeleteMemo failed: %v", err)
	}
	if _, ok := memos.Memo(ctx, "memo_a"); ok {
		t.Fatal("expected memo to be deleted")
	}
}

func TestMemosTabsAndActivePointer(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	memos := NewMemos(backend)

	if tabs := memos.Tabs(ctx); len(tabs) != 0 {
		t.Fatalf("expected no tabs, got %v", tabs)
	}
	tabs := []TabInfo{{ID: "memo_1", Title: "one"}, {ID: "memo_2", Title: "two"}}
	if err := memos.SaveTabs(ctx, tabs); err != nil {
		t.Fatalf("SaveTabs failed: %v", err)
	}
	if got := memos.Tabs(ctx); len(got) != 2 || got[1].ID != "memo_2" {
		t.Fatalf("unexpected tabs %v", got)
	}

	if err := memos.SaveActiveTabID(ctx, "memo_2"); err != nil {
		t.Fatalf("SaveActiveTabID failed: %v", err)
	}
	raw, _ := backend.Get(ctx, ActiveTabKey)
	if string(raw) != "memo_2" {
		t.Fatalf("active tab must be stored as a bare string, got %q", raw)
	}
	if got := memos.ActiveTabID(ctx); got != "memo_2" {
		t.Fatalf("ActiveTabID = %q", got)
	}
	if err := memos.SaveActiveTabID(ctx, ""); err != nil {
		t.Fatalf("clearing active tab failed: %v", err)
	}
	if got := memos.ActiveTabID(ctx); got != "" {
		t.Fatalf("expected cleared active tab, got %q", got)
	}
}

func TestMemosVisitedFlag(t *testing.T) {
	ctx := context.Background()
	memos := NewMemos(NewMemoryBackend(0))
	if memos.Visited(ctx) {
		t.Fatal("expected first visit")
	}
	if err := memos.MarkVisited(ctx); err != nil {
		t.Fatalf("MarkVisited failed: %v", err)
	}
	if !memos.Visited(ctx) {
		t.Fatal("expected visited flag")
	}
}

func TestMemosReadsTreatCorruptDataAsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	_ = backend.Set(ctx, MemosKey, []byte("{not json"))
	_ = backend.Set(ctx, TabsKey, []byte("[oops"))
	memos := NewMemos(backend)

	if got := memos.AllMemos(ctx); len(got) != 0 {
		t.Fatalf("expected empty memo map, got %v", got)
	}
	if got := memos.Tabs(ctx); len(got) != 0 {
		t.Fatalf("expected empty tabs, got %v", got)
	}
	// nothing in an undecodable record can be kept, so a save replaces it
	if _, err := memos.SaveMemo(ctx, "memo_1", "fresh", ""); err != nil {
		t.Fatalf("SaveMemo failed: %v", err)
	}
	if len(memos.AllMemos(ctx)) != 1 {
		t.Fatal("expected the corrupt map to be replaced")
	}
}

func TestMemosReportsQuotaFailures(t *testing.T) {
	ctx := context.Background()
	memos := NewMemos(NewMemoryBackend(40))
	_, err := memos.SaveMemo(ctx, "memo_1", strings.Repeat("x", 100), "")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestMemosReadsOriginalTimestampFormat(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(0)
	_ = backend.Set(ctx, MemosKey, []byte(`{"memo_1":{"content":"hi","title":"hi","lastModified":"2024-05-01T10:20:30.123Z"}}`))
	memo, ok := NewMemos(backend).Memo(ctx, "memo_1")
	if !ok {
		t.Fatal("expected memo")
	}
	if memo.LastModified.Year() != 2024 || memo.LastModified.Nanosecond() != 123000000 {
		t.Fatalf("unexpected timestamp %v", memo.LastModified)
	}
}

type flakyBackend struct {
	*MemoryBackend
	failGets int
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("connection refused")
	}
	return f.MemoryBackend.Get(ctx, key)
}

func TestMemosWritesKeepDataWhenReadFails(t *testing.T) {
	ctx := context.Background()
	backend := &flakyBackend{MemoryBackend: NewMemoryBackend(0)}
	memos := NewMemos(backend)
	for _, id := range []string{"memo_a", "memo_b", "memo_c"} {
		if _, err := memos.SaveMemo(ctx, id, "content of "+id, ""); err != nil {
			t.Fatalf("SaveMemo(%s) failed: %v", id, err)
		}
	}

	backend.failGets = 1
	if _, err := memos.SaveMemo(ctx, "memo_d", "new", ""); err == nil {
		t.Fatal("expected SaveMemo to report the failed read")
	}
	backend.failGets = 1
	if err := memos.DeleteMemo(ctx, "memo_a"); err == nil {
		t.Fatal("expected DeleteMemo to report the failed read")
	}

	all := memos.AllMemos(ctx)
	if len(all) != 3 {
		t.Fatalf("expected the 3 stored memos to survive, got %v", all)
	}
	for _, id := range []string{"memo_a", "memo_b", "memo_c"} {
		if all[id].Content != "content of "+id {
			t.Fatalf("memo %s changed: %+v", id, all[id])
		}
	}

	if _, err := memos.SaveMemo(ctx, "memo_d", "new", ""); err != nil {
		t.Fatalf("SaveMemo after recovery failed: %v", err)
	}
	if got := len(memos.AllMemos(ctx)); got != 4 {
		t.Fatalf("expected 4 memos after recovery, got %d", got)
	}
}
