package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"memopad/internal/editor"
	"memopad/internal/store"

	"pgregory.net/rapid"
)

func newRapidRegistry(t *rapid.T) (*Registry, *editor.Surface, *store.Memos) {
	memos := store.NewMemos(store.NewMemoryBackend(0))
	surface := editor.NewSurface()
	seq := 0
	reg := New(memos, surface, nil, Options{
		AutosaveDelay: time.Hour,
		NewID: func() string {
			seq++
			return fmt.Sprintf("memo_%04d", seq)
		},
	})
	surface.Subscribe(reg.EditorChanged)
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return reg, surface, memos
}

func checkInvariants(t *rapid.T, reg *Registry, surface *editor.Surface) {
	docs := reg.Documents()
	if len(docs) == 0 {
		t.Fatal("registry is empty")
	}
	active, ok := reg.Active()
	if !ok {
		t.Fatal("no active document")
	}
	found := false
	for _, doc := range docs {
		found = found || doc.ID == active.ID
	}
	if !found {
		t.Fatalf("active id %s is not in the sequence", active.ID)
	}
	if surface.Text() != active.Content {
		t.Fatalf("surface %q does not match active content %q", surface.Text(), active.Content)
	}
}

func testRegistryInvariants_Properties(t *rapid.T) {
	ctx := context.Background()
	reg, surface, memos := newRapidRegistry(t)

	pick := func(label string) string {
		docs := reg.Documents()
		return docs[rapid.IntRange(0, len(docs)-1).Draw(t, label)].ID
	}

	steps := rapid.IntRange(1, 40).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		switch rapid.IntRange(0, 5).Draw(t, "op") {
		case 0:
			content := rapid.StringMatching(`[a-z #\n]{0,20}`).Draw(t, "content")
			reg.Create(ctx, content, "")
		case 1:
			if err := reg.Close(ctx, pick("close")); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
		case 2:
			id := pick("switch")
			if err := reg.SwitchTo(ctx, id); err != nil {
				t.Fatalf("SwitchTo() error = %v", err)
			}
			if reg.ActiveID() != id {
				t.Fatalf("active = %s, want %s", reg.ActiveID(), id)
			}
			doc, _ := reg.Get(id)
			if surface.Text() != doc.Content {
				t.Fatalf("surface %q, stored %q", surface.Text(), doc.Content)
			}
		case 3:
			surface.SetContent(rapid.StringMatching(`[a-z\n]{0,20}`).Draw(t, "edit"))
		case 4:
			if err := reg.SaveActive(ctx); err != nil {
				t.Fatalf("SaveActive() error = %v", err)
			}
			active, _ := reg.Active()
			if active.IsModified {
				t.Fatal("active document still modified after save")
			}
			memo, _ := memos.Memo(ctx, active.ID)
			if memo.Content != surface.Text() {
				t.Fatalf("persisted %q, surface %q", memo.Content, surface.Text())
			}
		case 5:
			if _, err := reg.Duplicate(ctx, pick("duplicate")); err != nil {
				t.Fatalf("Duplicate() error = %v", err)
			}
		}
		checkInvariants(t, reg, surface)
	}

	// every open document is persisted and nothing else is
	if err := reg.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	all := memos.AllMemos(ctx)
	docs := reg.Documents()
	if len(all) != len(docs) {
		t.Fatalf("persisted %d memos for %d documents", len(all), len(docs))
	}
	tabs := memos.Tabs(ctx)
	for i, doc := range docs {
		if _, ok := all[doc.ID]; !ok {
			t.Fatalf("document %s not persisted", doc.ID)
		}
		if tabs[i].ID != doc.ID {
			t.Fatalf("tab order %s != document order %s", tabs[i].ID, doc.ID)
		}
	}
}

func TestRegistryInvariants_Properties(t *testing.T) {
	rapid.Check(t, testRegistryInvariants_Properties)
}

func testRestartRestoresState_Properties(t *rapid.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend(0)
	memos := store.NewMemos(backend)
	first := New(memos, editor.NewSurface(), nil, Options{AutosaveDelay: time.Hour})
	if err := first.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	n := rapid.IntRange(0, 6).Draw(t, "creates")
	for i := 0; i < n; i++ {
		first.Create(ctx, rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "content"), "")
	}
	wantActive := first.ActiveID()
	want := first.Documents()
	first.Stop()

	surface := editor.NewSurface()
	second := New(store.NewMemos(backend), surface, nil, Options{AutosaveDelay: time.Hour})
	if err := second.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer second.Stop()
	got := second.Documents()
	if len(got) != len(want) {
		t.Fatalf("restored %d documents, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Content != want[i].Content {
			t.Fatalf("document %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if second.ActiveID() != wantActive {
		t.Fatalf("active = %s, want %s", second.ActiveID(), wantActive)
	}
}

func TestRestartRestoresState_Properties(t *testing.T) {
	rapid.Check(t, testRestartRestoresState_Properties)
}
