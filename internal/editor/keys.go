package editor

import (
	"context"
	"strings"
)

// Key is one keydown event forwarded from the browser. Text carries the
// typed characters for printable keys and the url for the link shortcut.
type Key struct {
	Name  string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Text  string `json:"text,omitempty"`
}

func (k Key) Modified() bool {
	return k.Ctrl || k.Meta
}

// HandleKey dispatches a keydown on the focused surface and reports whether
// it was consumed. Shortcuts owned by the shell are delegated to it after
// the surface lock is released.
func (s *Surface) HandleKey(ctx context.Context, key Key) bool {
	if key.Modified() {
		return s.handleShortcut(ctx, key)
	}
	switch key.Name {
	case "Tab":
		s.InsertTab(key.Shift)
		return true
	case "Enter":
		if !s.HandleEnter() {
			s.InsertText("\n")
		}
		return true
	}
	if key.Text != "" && !key.Alt {
		s.Type(key.Text)
		return true
	}
	return false
}

func (s *Surface) handleShortcut(ctx context.Context, key Key) bool {
	switch strings.ToLower(key.Name) {
	case "b":
		s.ToggleBold()
		return true
	case "i":
		s.ToggleItalic()
		return true
	case "k":
		s.InsertLink(key.Text)
		return true
	}

	s.mu.Lock()
	shell := s.shell
	s.mu.Unlock()
	if shell == nil {
		return false
	}

	switch strings.ToLower(key.Name) {
	case "s":
		if key.Alt {
			shell.SaveToStore(ctx)
		} else {
			shell.Download(ctx)
		}
	case "t":
		shell.NewDocument(ctx)
	case "w":
		shell.CloseDocument(ctx)
	case "f", "/":
		shell.ToggleSearch()
	default:
		return false
	}
	return true
}
