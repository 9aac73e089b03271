// Package registry owns the ordered set of open documents, the active
// document pointer and debounced autosave.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"memopad/internal/debounce"
	"memopad/internal/editor"
	"memopad/internal/store"
	"memopad/internal/util"
)

const (
	DefaultAutosaveDelay = 2 * time.Second
	CopySuffix           = " (copy)"
)

var ErrNotFound = errors.New("document not found")

type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"lastModified"`
	IsModified   bool      `json:"isModified"`
}

type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	IsModified   bool      `json:"isModified"`
	Active       bool      `json:"active"`
}

// MemoStore is the persistence the registry needs; *store.Memos satisfies it.
type MemoStore interface {
	AllMemos(ctx context.Context) map[string]store.Memo
	SaveMemo(ctx context.Context, id, content, title string) (store.Memo, error)
	DeleteMemo(ctx context.Context, id string) error
	Tabs(ctx context.Context) []store.TabInfo
	SaveTabs(ctx context.Context, tabs []store.TabInfo) error
	ActiveTabID(ctx context.Context) string
	SaveActiveTabID(ctx context.Context, id string) error
}

// Surface is the text buffer the active document is shown in.
type Surface interface {
	Text() string
	Load(text string)
}

// Listener receives state changes. Methods run with the registry lock held
// and must not call back into the Registry.
type Listener interface {
	TabsChanged(tabs []Summary, activeID string)
	SaveStatusChanged(saved bool, err error)
	CountChanged(chars, lines int)
	DocumentSaved(doc Document)
	DocumentClosed(id string)
}

type Options struct {
	AutosaveDelay time.Duration
	NewID         func() string
}

type Registry struct {
	mu       sync.Mutex
	memos    MemoStore
	surface  Surface
	listener Listener
	autosave *debounce.Timer
	newID    func() string

	docs        []*Document
	activeID    string
	lastSaveErr error
}

func New(memos MemoStore, surface Surface, listener Listener, opts Options) *Registry {
	if listener == nil {
		listener = NopListener{}
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return util.NewID("memo") }
	}
	r := &Registry{
		memos:    memos,
		surface:  surface,
		listener: listener,
		newID:    opts.NewID,
	}
	r.autosave = debounce.New(opts.AutosaveDelay, r.autosaveFired)
	return r
}

func (r *Registry) autosaveFired() {
	if err := r.SaveActive(context.Background()); err != nil {
		log.Printf("registry: autosave: %v", err)
	}
}

// Initialize restores persisted documents. The memo map is authoritative;
// the tab list only contributes ordering.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	memos := r.memos.AllMemos(ctx)
	seen := make(map[string]bool, len(memos))
	r.docs = r.docs[:0]
	for _, tab := range r.memos.Tabs(ctx) {
		memo, ok := memos[tab.ID]
		if !ok || seen[tab.ID] {
			continue
		}
		seen[tab.ID] = true
		r.docs = append(r.docs, fromMemo(tab.ID, memo, tab.Title))
	}

	orphans := make([]string, 0)
	for id := range memos {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		a, b := memos[orphans[i]].LastModified, memos[orphans[j]].LastModified
		if a.Equal(b) {
			return orphans[i] < orphans[j]
		}
		return a.Before(b)
	})
	for _, id := range orphans {
		r.docs = append(r.docs, fromMemo(id, memos[id], ""))
	}

	if len(r.docs) == 0 {
		r.createLocked(ctx, "", "")
		return nil
	}

	target := r.memos.ActiveTabID(ctx)
	if r.indexLocked(target) < 0 {
		target = r.docs[0].ID
	}
	r.activeID = ""
	r.switchLocked(ctx, target)
	r.notifyTabsLocked()
	return nil
}

func fromMemo(id string, memo store.Memo, fallbackTitle string) *Document {
	title := memo.Title
	if title == "" {
		title = fallbackTitle
	}
	if title == "" {
		title = store.DefaultTitle
	}
	return &Document{ID: id, Title: title, Content: memo.Content, LastModified: memo.LastModified}
}

// Create appends a document, makes it active and persists it.
func (r *Registry) Create(ctx context.Context, content, title string) Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(ctx, content, title)
}

func (r *Registry) createLocked(ctx context.Context, content, title string) Document {
	if r.activeID != "" {
		_ = r.saveActiveLocked(ctx)
	}
	if title == "" {
		title = store.GenerateTitle(content)
	}
	doc := &Document{ID: r.newID(), Title: title, Content: content, LastModified: time.Now().UTC()}
	if memo, err := r.memos.SaveMemo(ctx, doc.ID, content, title); err != nil {
		log.Printf("registry: persist new document %s: %v", doc.ID, err)
	} else {
		doc.LastModified = memo.LastModified
	}

	r.docs = append(r.docs, doc)
	r.activeID = ""
	r.switchLocked(ctx, doc.ID)
	r.persistTabsLocked(ctx)
	r.notifyTabsLocked()
	return *doc
}

// Close removes a document and its persisted record. The registry is never
// left empty.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("close %s: %w", id, ErrNotFound)
	}
	doc := r.docs[idx]
	wasActive := id == r.activeID
	if doc.IsModified {
		if wasActive {
			_ = r.saveActiveLocked(ctx)
		} else {
			_ = r.saveDocumentLocked(ctx, doc, doc.Content)
		}
	}

	r.docs = append(r.docs[:idx], r.docs[idx+1:]...)
	if err := r.memos.DeleteMemo(ctx, id); err != nil {
		log.Printf("registry: delete document %s: %v", id, err)
	}
	r.listener.DocumentClosed(id)

	if len(r.docs) == 0 {
		r.activeID = ""
		r.createLocked(ctx, "", "")
		return nil
	}
	if wasActive {
		r.autosave.Cancel()
		r.activeID = ""
		next := idx
		if next > len(r.docs)-1 {
			next = len(r.docs) - 1
		}
		r.switchLocked(ctx, r.docs[next].ID)
	}
	r.persistTabsLocked(ctx)
	r.notifyTabsLocked()
	return nil
}

// SwitchTo saves the current document and loads id into the surface.
func (r *Registry) SwitchTo(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(id) < 0 {
		return fmt.Errorf("switch to %s: %w", id, ErrNotFound)
	}
	r.switchLocked(ctx, id)
	r.notifyTabsLocked()
	return nil
}

func (r *Registry) switchLocked(ctx context.Context, id string) {
	if r.activeID != "" && r.activeID != id {
		_ = r.saveActiveLocked(ctx)
	}
	idx := r.indexLocked(id)
	if idx < 0 {
		return
	}
	doc := r.docs[idx]
	r.activeID = id
	r.surface.Load(doc.Content)
	r.notifyCountLocked(doc.Content)
	if err := r.memos.SaveActiveTabID(ctx, id); err != nil {
		log.Printf("registry: persist active document: %v", err)
	}
}

// SaveActive writes the surface text to the active document. The modified
// flag is cleared even when the write fails; the error is returned, logged
// and reported through SaveStatusChanged.
func (r *Registry) SaveActive(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveActiveLocked(ctx)
}

func (r *Registry) saveActiveLocked(ctx context.Context) error {
	r.autosave.Cancel()
	doc := r.activeLocked()
	if doc == nil {
		return nil
	}
	err := r.saveDocumentLocked(ctx, doc, r.surface.Text())
	r.notifyTabsLocked()
	r.listener.SaveStatusChanged(true, err)
	return err
}

func (r *Registry) saveDocumentLocked(ctx context.Context, doc *Document, content string) error {
	title := store.GenerateTitle(content)
	doc.Content = content
	doc.Title = title
	doc.IsModified = false

	memo, err := r.memos.SaveMemo(ctx, doc.ID, content, title)
	if err == nil {
		doc.LastModified = memo.LastModified
	}
	err = errors.Join(err, r.persistTabsLocked(ctx))
	r.lastSaveErr = err
	if err != nil {
		log.Printf("registry: save %s: %v", doc.ID, err)
		return fmt.Errorf("save %s: %w", doc.ID, err)
	}
	r.listener.DocumentSaved(*doc)
	return nil
}

// Duplicate creates a copy of id and activates it.
func (r *Registry) Duplicate(ctx context.Context, id string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return Document{}, fmt.Errorf("duplicate %s: %w", id, ErrNotFound)
	}
	source := r.docs[idx]
	content := source.Content
	if id == r.activeID {
		content = r.surface.Text()
	}
	return r.createLocked(ctx, content, source.Title+CopySuffix), nil
}

// EditorChanged records user edits to the active document. Load-originated
// changes are ignored.
func (r *Registry) EditorChanged(change editor.Change) {
	if change.Origin == editor.OriginLoad {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.activeLocked()
	if doc == nil {
		return
	}
	if doc.Content != change.Text {
		doc.Content = change.Text
		doc.IsModified = true
		r.listener.SaveStatusChanged(false, nil)
		r.notifyTabsLocked()
		r.autosave.Trigger()
	}
	r.notifyCountLocked(change.Text)
}

// Flush saves the active document when an autosave is pending or it has
// unsaved edits.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.autosave.Cancel()
	doc := r.activeLocked()
	if doc == nil || (!pending && !doc.IsModified) {
		return nil
	}
	return r.saveActiveLocked(ctx)
}

func (r *Registry) Stop() {
	r.autosave.Cancel()
}

func (r *Registry) AutosavePending() bool {
	return r.autosave.Pending()
}

func (r *Registry) Active() (Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.activeLocked()
	if doc == nil {
		return Document{}, false
	}
	return *doc, true
}

func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

func (r *Registry) Documents() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, *doc)
	}
	return docs
}

func (r *Registry) Summaries() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summariesLocked()
}

func (r *Registry) Get(id string) (Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return Document{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return *r.docs[idx], nil
}

func (r *Registry) HasUnsavedChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.IsModified {
			return true
		}
	}
	return false
}

func (r *Registry) LastSaveError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSaveErr
}

func (r *Registry) activeLocked() *Document {
	idx := r.indexLocked(r.activeID)
	if idx < 0 {
		return nil
	}
	return r.docs[idx]
}

func (r *Registry) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, doc := range r.docs {
		if doc.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) persistTabsLocked(ctx context.Context) error {
	tabs := make([]store.TabInfo, 0, len(r.docs))
	for _, doc := range r.docs {
		tabs = append(tabs, store.TabInfo{ID: doc.ID, Title: doc.Title, LastModified: doc.LastModified})
	}
	if err := r.memos.SaveTabs(ctx, tabs); err != nil {
		log.Printf("registry: persist tab list: %v", err)
		return err
	}
	return nil
}

func (r *Registry) summariesLocked() []Summary {
	summaries := make([]Summary, 0, len(r.docs))
	for _, doc := range r.docs {
		summaries = append(summaries, Summary{
			ID:           doc.ID,
			Title:        doc.Title,
			LastModified: doc.LastModified,
			IsModified:   doc.IsModified,
			Active:       doc.ID == r.activeID,
		})
	}
	return summaries
}

func (r *Registry) notifyTabsLocked() {
	r.listener.TabsChanged(r.summariesLocked(), r.activeID)
}

func (r *Registry) notifyCountLocked(content string) {
	chars, lines := Count(content)
	r.listener.CountChanged(chars, lines)
}

// Count returns the rune and line count shown in the status bar.
func Count(content string) (chars, lines int) {
	return len([]rune(content)), strings.Count(content, "\n") + 1
}

type NopListener struct{}

func (NopListener) TabsChanged([]Summary, string)  {}
func (NopListener) SaveStatusChanged(bool, error)  {}
func (NopListener) CountChanged(int, int)          {}
func (NopListener) DocumentSaved(Document)         {}
func (NopListener) DocumentClosed(string)          {}
