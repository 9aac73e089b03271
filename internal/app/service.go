// Package app wires the memo workspace together and serves it over HTTP.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"memopad/internal/editor"
	"memopad/internal/export"
	"memopad/internal/gitrepo"
	"memopad/internal/preview"
	"memopad/internal/registry"
	"memopad/internal/search"
	"memopad/internal/store"
)

const defaultHistoryLimit = 20

// History lists earlier versions of a memo. Only the git store keeps them.
type History interface {
	MemoRevisions(memoID string, limit int) ([]gitrepo.Revision, error)
}

type Deps struct {
	Memos    *store.Memos
	History  History
	Notes    *search.Service
	Exporter *export.Service
	Renderer *preview.Renderer

	AutosaveDelay time.Duration
	PreviewDelay  time.Duration
	NewID         func() string
}

type SaveStatus struct {
	Saved bool   `json:"saved"`
	Error string `json:"error,omitempty"`
	Chars int    `json:"chars"`
	Lines int    `json:"lines"`
}

// EditorState mirrors the textarea. Selection offsets count runes, not the
// UTF-16 code units a browser reports; clients either convert or select
// through /api/editor/select with "units":"utf16".
type EditorState struct {
	Text           string `json:"text"`
	SelectionStart int    `json:"selectionStart"`
	SelectionEnd   int    `json:"selectionEnd"`
}

type PreviewState struct {
	Visible bool   `json:"visible"`
	HTML    string `json:"html"`
}

type SearchState struct {
	Visible  bool          `json:"visible"`
	Term     string        `json:"term"`
	Count    int           `json:"count"`
	Position int           `json:"position"`
	Current  *search.Match `json:"current"`
}

type State struct {
	Tabs     []registry.Summary `json:"tabs"`
	ActiveID string             `json:"activeId"`
	Revision int                `json:"revision"`
	Editor   EditorState        `json:"editor"`
	Status   SaveStatus         `json:"status"`
	Preview  PreviewState       `json:"preview"`
	Search   SearchState        `json:"search"`
}

// KeyResult tells the browser whether a keydown was consumed and which
// client-side actions (such as a download) it should perform.
type KeyResult struct {
	Handled bool        `json:"handled"`
	Actions []string    `json:"actions"`
	Editor  EditorState `json:"editor"`
}

const ActionDownload = "download"

// Service owns one workspace: the open documents, the editor surface, the
// live preview and the search panel.
type Service struct {
	memos    *store.Memos
	history  History
	notes    *search.Service
	exporter *export.Service

	surface  *editor.Surface
	registry *registry.Registry
	preview  *preview.Live
	engine   *search.Engine

	// mu guards the fields below. It is taken inside registry callbacks, so
	// it is never held while calling the registry or the surface.
	mu            sync.Mutex
	status        SaveStatus
	revision      int
	searchVisible bool
	actions       []string
}

func New(deps Deps) *Service {
	if deps.Renderer == nil {
		deps.Renderer = preview.NewRenderer()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(deps.Renderer)
	}
	if deps.Notes == nil {
		deps.Notes = search.NewService(nil, search.NewLocal(deps.Memos))
	}

	s := &Service{
		memos:    deps.Memos,
		history:  deps.History,
		notes:    deps.Notes,
		exporter: deps.Exporter,
		surface:  editor.NewSurface(),
		engine:   search.NewEngine(),
		status:   SaveStatus{Saved: true, Lines: 1},
	}
	s.registry = registry.New(deps.Memos, s.surface, workspaceListener{s}, registry.Options{
		AutosaveDelay: deps.AutosaveDelay,
		NewID:         deps.NewID,
	})
	s.preview = preview.NewLive(deps.Renderer, s.surface.Text, deps.PreviewDelay)

	s.surface.Subscribe(s.registry.EditorChanged)
	s.surface.Subscribe(s.preview.EditorChanged)
	s.surface.Subscribe(s.editorChanged)
	s.surface.SetShell(s)
	return s
}

// Start restores the persisted workspace and shows the welcome memo on the
// very first run.
func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("restore workspace: %w", err)
	}
	if !s.memos.Visited(ctx) {
		if err := s.memos.MarkVisited(ctx); err != nil {
			log.Printf("app: mark visited: %v", err)
		}
		s.surface.SetContent(WelcomeText)
		s.surface.Select(0, 0)
	}
	s.preview.Refresh()
	s.notes.ReindexAll(ctx, s.memos)
	return nil
}

// Shutdown saves pending edits and stops the timers.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.registry.Flush(ctx)
	s.registry.Stop()
	s.preview.Stop()
	s.notes.Close()
	if err != nil {
		return fmt.Errorf("flush workspace: %w", err)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return store.Ping(ctx, s.memos.Backend())
}

func (s *Service) State() State {
	tabs := s.registry.Summaries()
	activeID := s.registry.ActiveID()

	s.mu.Lock()
	status := s.status
	revision := s.revision
	s.mu.Unlock()

	return State{
		Tabs:     tabs,
		ActiveID: activeID,
		Revision: revision,
		Editor:   s.Editor(),
		Status:   status,
		Preview:  s.Preview(),
		Search:   s.SearchState(),
	}
}

func (s *Service) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Tabs

func (s *Service) Tabs() ([]registry.Summary, string) {
	return s.registry.Summaries(), s.registry.ActiveID()
}

func (s *Service) Document(id string) (registry.Document, error) {
	return s.registry.Get(id)
}

func (s *Service) CreateTab(ctx context.Context, content, title string) registry.Document {
	return s.registry.Create(ctx, content, title)
}

func (s *Service) ActivateTab(ctx context.Context, id string) error {
	return s.registry.SwitchTo(ctx, id)
}

func (s *Service) DuplicateTab(ctx context.Context, id string) (registry.Document, error) {
	return s.registry.Duplicate(ctx, id)
}

func (s *Service) CloseTab(ctx context.Context, id string) error {
	return s.registry.Close(ctx, id)
}

func (s *Service) SaveActive(ctx context.Context) error {
	return s.registry.SaveActive(ctx)
}

func (s *Service) TabHistory(id string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.registry.Get(id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, errHistoryUnavailable
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	revisions, err := s.history.MemoRevisions(id, limit)
	if err != nil {
		return nil, fmt.Errorf("memo history: %w", err)
	}
	return revisions, nil
}

// Editor

func (s *Service) Editor() EditorState {
	start, end := s.surface.Selection()
	return EditorState{Text: s.surface.Text(), SelectionStart: start, SelectionEnd: end}
}

// ReplaceEditor mirrors the whole textarea: text and selection.
func (s *Service) ReplaceEditor(state EditorState) EditorState {
	if state.Text != s.surface.Text() {
		s.surface.SetContent(state.Text)
	}
	s.surface.Select(state.SelectionStart, state.SelectionEnd)
	return s.Editor()
}

// Type inserts typed text at the selection.
func (s *Service) Type(text string) EditorState {
	s.surface.Type(text)
	return s.Editor()
}

func (s *Service) Select(start, end int) EditorState {
	s.surface.Select(start, end)
	return s.Editor()
}

// SelectUTF16 is Select with offsets in UTF-16 code units.
func (s *Service) SelectUTF16(start, end int) EditorState {
	s.surface.SelectUTF16(start, end)
	return s.Editor()
}

// Format applies a toolbar action to the selection.
func (s *Service) Format(action, url string) (EditorState, error) {
	switch action {
	case "bold":
		s.surface.ToggleBold()
	case "italic":
		s.surface.ToggleItalic()
	case "link":
		s.surface.InsertLink(strings.TrimSpace(url))
	case "indent":
		s.surface.InsertTab(false)
	case "outdent":
		s.surface.InsertTab(true)
	default:
		return EditorState{}, errUnknownFormat
	}
	return s.Editor(), nil
}

// Key dispatches a keydown. With the editor focused the surface handles it;
// otherwise only the global shortcuts and Escape apply.
func (s *Service) Key(ctx context.Context, key editor.Key, focused bool) KeyResult {
	var handled bool
	if focused {
		handled = s.surface.HandleKey(ctx, key)
	} else {
		handled = s.globalKey(ctx, key)
	}
	if key.Name == "Escape" && s.SearchState().Visible {
		s.CloseSearch()
		handled = true
	}
	return KeyResult{Handled: handled, Actions: s.drainActions(), Editor: s.Editor()}
}

func (s *Service) globalKey(ctx context.Context, key editor.Key) bool {
	if !key.Modified() {
		return false
	}
	switch strings.ToLower(key.Name) {
	case "s":
		s.Download(ctx)
	case "t":
		s.NewDocument(ctx)
	case "w":
		s.CloseDocument(ctx)
	case "f":
		s.ToggleSearch()
	default:
		return false
	}
	return true
}

// Blur saves the active document, as leaving the textarea does in the
// browser.
func (s *Service) Blur(ctx context.Context) error {
	return s.registry.SaveActive(ctx)
}

// Shell

func (s *Service) NewDocument(ctx context.Context) {
	s.registry.Create(ctx, "", "")
}

func (s *Service) CloseDocument(ctx context.Context) {
	if err := s.registry.Close(ctx, s.registry.ActiveID()); err != nil {
		log.Printf("app: close active document: %v", err)
	}
}

func (s *Service) ToggleSearch() {
	s.mu.Lock()
	s.searchVisible = !s.searchVisible
	visible := s.searchVisible
	s.mu.Unlock()
	if !visible {
		s.engine.Clear()
	}
}

func (s *Service) SaveToStore(ctx context.Context) {
	if err := s.registry.SaveActive(ctx); err != nil {
		log.Printf("app: save active document: %v", err)
	}
}

// Download asks the browser to fetch the markdown export.
func (s *Service) Download(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, ActionDownload)
}

func (s *Service) drainActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := s.actions
	s.actions = nil
	if actions == nil {
		return []string{}
	}
	return actions
}

// Preview

func (s *Service) Preview() PreviewState {
	return PreviewState{Visible: s.preview.Visible(), HTML: s.preview.HTML()}
}

func (s *Service) TogglePreview() PreviewState {
	s.preview.Toggle()
	return s.Preview()
}

func (s *Service) SyncScroll(src, dst preview.Viewport) int {
	return preview.SyncScroll(src, dst)
}

// Search panel

func (s *Service) SearchState() SearchState {
	s.mu.Lock()
	visible := s.searchVisible
	s.mu.Unlock()

	status := s.engine.Status()
	state := SearchState{
		Visible:  visible,
		Term:     s.engine.Term(),
		Count:    status.Count,
		Position: status.Position,
	}
	if match, ok := s.engine.CurrentMatch(); ok {
		state.Current = &match
	}
	return state
}

func (s *Service) Search(term string) SearchState {
	s.mu.Lock()
	s.searchVisible = true
	s.mu.Unlock()
	s.engine.Search(term, s.surface.Text())
	s.selectCurrentMatch()
	return s.SearchState()
}

func (s *Service) NextMatch() SearchState {
	s.engine.Next()
	s.selectCurrentMatch()
	return s.SearchState()
}

func (s *Service) PreviousMatch() SearchState {
	s.engine.Previous()
	s.selectCurrentMatch()
	return s.SearchState()
}

// ReplaceCurrent replaces the current match and moves on to the next one.
func (s *Service) ReplaceCurrent(replacement string) (SearchState, bool) {
	next, ok := s.engine.ReplaceOne(s.surface.Text(), replacement)
	if ok {
		s.surface.SetContent(next)
		s.selectCurrentMatch()
	}
	return s.SearchState(), ok
}

func (s *Service) ReplaceAll(replacement string) (SearchState, int) {
	next, count := s.engine.ReplaceAll(s.surface.Text(), replacement)
	if count > 0 {
		s.surface.SetContent(next)
	}
	return s.SearchState(), count
}

func (s *Service) CloseSearch() SearchState {
	s.mu.Lock()
	s.searchVisible = false
	s.mu.Unlock()
	s.engine.Clear()
	return s.SearchState()
}

func (s *Service) selectCurrentMatch() {
	if match, ok := s.engine.CurrentMatch(); ok {
		s.surface.Select(match.Start, match.Start+match.Length)
	}
}

// editorChanged re-runs an open search when another document is loaded.
// It may run under the registry lock.
func (s *Service) editorChanged(change editor.Change) {
	if change.Origin != editor.OriginLoad {
		return
	}
	if term := s.engine.Term(); term != "" {
		s.engine.Search(term, change.Text)
	}
}

// Notes and export

func (s *Service) SearchNotes(ctx context.Context, q search.Query) search.Response {
	return s.notes.Search(ctx, q)
}

// Export renders the active document in format.
func (s *Service) Export(ctx context.Context, format export.Format) (*export.Result, error) {
	req := export.Request{Content: s.surface.Text(), Format: format}
	if doc, ok := s.registry.Active(); ok {
		req.Title = doc.Title
	}
	return s.exporter.Export(ctx, req)
}

// workspaceListener mirrors registry events into the workspace status and
// the notes index. It runs under the registry lock.
type workspaceListener struct {
	s *Service
}

func (l workspaceListener) TabsChanged([]registry.Summary, string) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.revision++
}

func (l workspaceListener) SaveStatusChanged(saved bool, err error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.status.Saved = saved
	l.s.status.Error = ""
	if err != nil {
		l.s.status.Error = err.Error()
	}
}

func (l workspaceListener) CountChanged(chars, lines int) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.status.Chars = chars
	l.s.status.Lines = lines
}

func (l workspaceListener) DocumentSaved(doc registry.Document) {
	l.s.notes.IndexMemo(doc.ID, store.Memo{
		Content:      doc.Content,
		Title:        doc.Title,
		LastModified: doc.LastModified,
	})
}

func (l workspaceListener) DocumentClosed(id string) {
	l.s.notes.DeleteMemo(id)
}
