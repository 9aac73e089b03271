package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// Memos is the typed view over a Backend. Reads never fail: a missing or
// unreadable record is logged and treated as empty. Writes return errors and
// never build on a read that failed.
type Memos struct {
	backend Backend
	mu      sync.Mutex
	now     func() time.Time
}

func NewMemos(backend Backend) *Memos {
	return &Memos{backend: backend, now: time.Now}
}

// WithClock replaces the timestamp source used by SaveMemo.
func (m *Memos) WithClock(now func() time.Time) *Memos {
	m.now = now
	return m
}

func (m *Memos) Backend() Backend {
	return m.backend
}

func (m *Memos) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := m.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (m *Memos) setJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.backend.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (m *Memos) AllMemos(ctx context.Context) map[string]Memo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allMemosLocked(ctx)
}

func (m *Memos) allMemosLocked(ctx context.Context) map[string]Memo {
	memos := map[string]Memo{}
	if err := m.getJSON(ctx, MemosKey, &memos); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("store: read memos: %v", err)
		}
		return map[string]Memo{}
	}
	return memos
}

// memosForWriteLocked reads the memo map before a write. A backend failure
// aborts the write so a transient error cannot replace the stored map with a
// partial one. An undecodable record holds nothing to keep and is replaced.
func (m *Memos) memosForWriteLocked(ctx context.Context) (map[string]Memo, error) {
	memos := map[string]Memo{}
	raw, err := m.backend.Get(ctx, MemosKey)
	if errors.Is(err, ErrNotFound) {
		return memos, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MemosKey, err)
	}
	if err := json.Unmarshal(raw, &memos); err != nil {
		log.Printf("store: replacing undecodable %s: %v", MemosKey, err)
		return map[string]Memo{}, nil
	}
	return memos, nil
}

// Memo returns the stored memo, or an untitled empty memo when absent.
func (m *Memos) Memo(ctx context.Context, id string) (Memo, bool) {
	memo, ok := m.AllMemos(ctx)[id]
	if !ok {
		return Memo{Title: DefaultTitle}, false
	}
	return memo, true
}

// SaveMemo writes content under id. An empty title is derived from content.
func (m *Memos) SaveMemo(ctx context.Context, id, content, title string) (Memo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if title == "" {
		title = GenerateTitle(content)
	}
	memo := Memo{Content: content, Title: title, LastModified: m.now().UTC()}
	memos, err := m.memosForWriteLocked(ctx)
	if err != nil {
		return memo, err
	}
	memos[id] = memo
	if err := m.setJSON(ctx, MemosKey, memos); err != nil {
		return memo, err
	}
	return memo, nil
}

func (m *Memos) DeleteMemo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	memos, err := m.memosForWriteLocked(ctx)
	if err != nil {
		return err
	}
	if _, ok := memos[id]; !ok {
		return nil
	}
	delete(memos, id)
	return m.setJSON(ctx, MemosKey, memos)
}

func (m *Memos) Tabs(ctx context.Context) []TabInfo {
	var tabs []TabInfo
	if err := m.getJSON(ctx, TabsKey, &tabs); err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("store: read tabs: %v", err)
		}
		return []TabInfo{}
	}
	return tabs
}

func (m *Memos) SaveTabs(ctx context.Context, tabs []TabInfo) error {
	if tabs == nil {
		tabs = []TabInfo{}
	}
	return m.setJSON(ctx, TabsKey, tabs)
}

// ActiveTabID is stored as a bare string, not JSON.
func (m *Memos) ActiveTabID(ctx context.Context) string {
	raw, err := m.backend.Get(ctx, ActiveTabKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("store: read active tab: %v", err)
		}
		return ""
	}
	return string(raw)
}

func (m *Memos) SaveActiveTabID(ctx context.Context, id string) error {
	if id == "" {
		if err := m.backend.Delete(ctx, ActiveTabKey); err != nil {
			return fmt.Errorf("clear active tab: %w", err)
		}
		return nil
	}
	if err := m.backend.Set(ctx, ActiveTabKey, []byte(id)); err != nil {
		return fmt.Errorf("write active tab: %w", err)
	}
	return nil
}

func (m *Memos) Visited(ctx context.Context) bool {
	raw, err := m.backend.Get(ctx, VisitedKey)
	if err != nil {
		return false
	}
	return string(raw) == "true"
}

func (m *Memos) MarkVisited(ctx context.Context) error {
	if err := m.backend.Set(ctx, VisitedKey, []byte("true")); err != nil {
		return fmt.Errorf("write visited flag: %w", err)
	}
	return nil
}

// GenerateTitle uses the first non-empty line of content with heading
// markers removed, truncated to 30 runes.
func GenerateTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		title := strings.TrimSpace(headingPrefix.ReplaceAllString(line, ""))
		if title == "" {
			return DefaultTitle
		}
		runes := []rune(title)
		if len(runes) > titleMaxLength {
			return string(runes[:titleMaxLength]) + "..."
		}
		return title
	}
	return DefaultTitle
}
