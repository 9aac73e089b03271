// Package editor holds the text surface mirrored from the browser textarea
// and the markdown editing macros applied to it. Offsets are in runes;
// SelectUTF16 takes the UTF-16 code unit offsets a browser textarea reports.
package editor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"
)

const indentUnit = "    "

type Origin int

const (
	OriginInput Origin = iota
	OriginLoad
)

type Change struct {
	Text   string
	Origin Origin
}

// Shell receives the shortcuts the surface does not handle itself.
type Shell interface {
	NewDocument(ctx context.Context)
	CloseDocument(ctx context.Context)
	ToggleSearch()
	SaveToStore(ctx context.Context)
	Download(ctx context.Context)
}

type Surface struct {
	mu        sync.Mutex
	text      []rune
	selStart  int
	selEnd    int
	listeners []func(Change)
	shell     Shell
}

func NewSurface() *Surface {
	return &Surface{}
}

// Subscribe registers fn for every content change. Listeners run after the
// surface lock is released.
func (s *Surface) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Surface) SetShell(shell Shell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shell = shell
}

func (s *Surface) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.text)
}

func (s *Surface) Selection() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selStart, s.selEnd
}

func (s *Surface) Select(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLocked(start, end)
}

// SelectUTF16 selects the range given in UTF-16 code units.
func (s *Surface) SelectUTF16(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectLocked(runeOffset(s.text, start), runeOffset(s.text, end))
}

func (s *Surface) SelectedText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.text[s.selStart:s.selEnd])
}

// SetContent replaces the text as if typed, notifying listeners as input.
func (s *Surface) SetContent(text string) {
	s.edit(func() bool {
		s.text = []rune(text)
		s.selectLocked(len(s.text), len(s.text))
		return true
	})
}

// Load replaces the text without it counting as an edit.
func (s *Surface) Load(text string) {
	s.mu.Lock()
	s.text = []rune(text)
	s.selStart, s.selEnd = 0, 0
	change, listeners := Change{Text: text, Origin: OriginLoad}, s.snapshotListeners()
	s.mu.Unlock()
	notify(listeners, change)
}

func (s *Surface) ReplaceSelection(start, end int, text string) {
	s.edit(func() bool {
		s.replaceLocked(start, end, text)
		return true
	})
}

// InsertText replaces the selection and puts the caret after the insert.
func (s *Surface) InsertText(text string) {
	s.edit(func() bool {
		s.insertLocked(text)
		return true
	})
}

// WrapSelection surrounds the selection with prefix and suffix, keeping the
// original text selected. With no selection the caret lands between them.
func (s *Surface) WrapSelection(prefix, suffix string) {
	s.edit(func() bool {
		s.wrapLocked(prefix, suffix)
		return true
	})
}

func (s *Surface) ToggleBold() {
	s.WrapSelection("**", "**")
}

func (s *Surface) ToggleItalic() {
	s.WrapSelection("*", "*")
}

// InsertLink replaces the selection with a markdown link. An empty url does
// nothing.
func (s *Surface) InsertLink(url string) {
	s.edit(func() bool {
		return s.linkLocked(url)
	})
}

// InsertTab indents (or with shift outdents) by four spaces.
func (s *Surface) InsertTab(shift bool) {
	s.edit(func() bool {
		return s.tabLocked(shift)
	})
}

// HandleEnter applies list continuation and fence closing. It reports
// false when Enter should insert a plain newline.
func (s *Surface) HandleEnter() bool {
	handled := false
	s.edit(func() bool {
		handled = s.enterLocked()
		return handled
	})
	return handled
}

// Type inserts typed text and completes "](" with a url scheme.
func (s *Surface) Type(text string) {
	s.edit(func() bool {
		s.insertLocked(text)
		if strings.HasSuffix(string(s.text[:s.selStart]), "](") {
			s.insertLocked("https://")
		}
		return true
	})
}

func (s *Surface) edit(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if !changed {
		s.mu.Unlock()
		return
	}
	change, listeners := Change{Text: string(s.text), Origin: OriginInput}, s.snapshotListeners()
	s.mu.Unlock()
	notify(listeners, change)
}

func (s *Surface) snapshotListeners() []func(Change) {
	listeners := make([]func(Change), len(s.listeners))
	copy(listeners, s.listeners)
	return listeners
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Surface) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(s.text) {
		return len(s.text)
	}
	return offset
}

func (s *Surface) selectLocked(start, end int) {
	start, end = s.clamp(start), s.clamp(end)
	if start > end {
		start, end = end, start
	}
	s.selStart, s.selEnd = start, end
}

// runeOffset maps a UTF-16 offset into text to a rune offset. An offset
// that falls inside a surrogate pair maps to the start of that rune.
func runeOffset(text []rune, units int) int {
	seen := 0
	for i, r := range text {
		width := utf16.RuneLen(r)
		if width < 1 {
			width = 1
		}
		if seen+width > units {
			return i
		}
		seen += width
	}
	return len(text)
}

func (s *Surface) replaceLocked(start, end int, text string) {
	start, end = s.clamp(start), s.clamp(end)
	if start > end {
		start, end = end, start
	}
	insert := []rune(text)
	next := make([]rune, 0, len(s.text)-(end-start)+len(insert))
	next = append(next, s.text[:start]...)
	next = append(next, insert...)
	next = append(next, s.text[end:]...)
	s.text = next
	s.selectLocked(s.selStart, s.selEnd)
}

func (s *Surface) insertLocked(text string) {
	start := s.selStart
	s.replaceLocked(start, s.selEnd, text)
	caret := start + len([]rune(text))
	s.selectLocked(caret, caret)
}

func (s *Surface) wrapLocked(prefix, suffix string) {
	start, end := s.selStart, s.selEnd
	offset := len([]rune(prefix))
	if start == end {
		s.insertLocked(prefix + suffix)
		s.selectLocked(start+offset, start+offset)
		return
	}
	selected := string(s.text[start:end])
	s.replaceLocked(start, end, prefix+selected+suffix)
	s.selectLocked(start+offset, end+offset)
}

func (s *Surface) linkLocked(url string) bool {
	if url == "" {
		return false
	}
	label := string(s.text[s.selStart:s.selEnd])
	if label == "" {
		label = "link text"
	}
	s.insertLocked("[" + label + "](" + url + ")")
	return true
}

func (s *Surface) tabLocked(shift bool) bool {
	start, end := s.selStart, s.selEnd
	selected := string(s.text[start:end])

	if strings.Contains(selected, "\n") {
		lines := strings.Split(selected, "\n")
		for i, line := range lines {
			if !shift {
				lines[i] = indentUnit + line
				continue
			}
			switch {
			case strings.HasPrefix(line, indentUnit):
				lines[i] = line[len(indentUnit):]
			case strings.HasPrefix(line, "\t"):
				lines[i] = line[1:]
			}
		}
		updated := strings.Join(lines, "\n")
		s.replaceLocked(start, end, updated)
		s.selectLocked(start, start+len([]rune(updated)))
		return true
	}

	if !shift {
		s.insertLocked(indentUnit)
		return true
	}

	lineStart := s.lineStartLocked(start)
	line := s.lineAtLocked(lineStart)
	strip := 0
	switch {
	case strings.HasPrefix(line, indentUnit):
		strip = len(indentUnit)
	case strings.HasPrefix(line, "\t"):
		strip = 1
	}
	if strip == 0 {
		return false
	}
	s.selectLocked(lineStart, lineStart+strip)
	s.insertLocked("")
	return true
}

var listItem = regexp.MustCompile(`^(\s*)([-*+]|\d+\.)\s`)

func (s *Surface) enterLocked() bool {
	caret := s.selStart
	lineStart := s.lineStartLocked(caret)
	current := string(s.text[lineStart:caret])

	if match := listItem.FindStringSubmatch(current); match != nil {
		indent, marker := match[1], match[2]
		if strings.TrimSpace(current) == marker {
			// an empty item ends the list
			s.selectLocked(lineStart, caret)
			s.insertLocked("\n")
			return true
		}
		next := marker
		if strings.HasSuffix(marker, ".") {
			n, err := strconv.Atoi(strings.TrimSuffix(marker, "."))
			if err == nil {
				next = strconv.Itoa(n+1) + "."
			}
		}
		s.insertLocked("\n" + indent + next + " ")
		return true
	}

	if strings.TrimSpace(current) == "```" {
		s.insertLocked("\n\n```")
		s.selectLocked(caret+1, caret+1)
		return true
	}
	return false
}

func (s *Surface) lineStartLocked(offset int) int {
	for i := offset - 1; i >= 0; i-- {
		if s.text[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func (s *Surface) lineAtLocked(lineStart int) string {
	end := lineStart
	for end < len(s.text) && s.text[end] != '\n' {
		end++
	}
	return string(s.text[lineStart:end])
}
