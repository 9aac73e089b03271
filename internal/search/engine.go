package search

import (
	"sync"
	"unicode"
)

// Match is one occurrence of the search term. Offsets are in runes.
type Match struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Status is what the search panel shows: the match count and the 1-based
// position of the current match, both zero when nothing matched.
type Status struct {
	Count    int `json:"count"`
	Position int `json:"position"`
}

// Engine finds a literal term case-insensitively in the active text and
// keeps a cursor over the matches for next/previous navigation.
type Engine struct {
	mu      sync.Mutex
	term    string
	matches []Match
	current int
}

func NewEngine() *Engine {
	return &Engine{current: -1}
}

// Search recomputes the matches of term in text. An empty term clears the
// state. The first match becomes current.
func (e *Engine) Search(term, text string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchLocked(term, text)
	return e.statusLocked()
}

func (e *Engine) searchLocked(term, text string) {
	if term == "" {
		e.clearLocked()
		return
	}
	e.term = term
	e.matches = FindAll(term, text)
	e.current = -1
	if len(e.matches) > 0 {
		e.current = 0
	}
}

// Next moves to the following match, wrapping to the first.
func (e *Engine) Next() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.matches) > 0 {
		e.current = (e.current + 1) % len(e.matches)
	}
	return e.statusLocked()
}

// Previous moves to the preceding match, wrapping to the last.
func (e *Engine) Previous() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.matches) > 0 {
		if e.current <= 0 {
			e.current = len(e.matches) - 1
		} else {
			e.current--
		}
	}
	return e.statusLocked()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Current returns the index of the current match, or -1.
func (e *Engine) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// CurrentMatch returns the span to select in the editor.
func (e *Engine) CurrentMatch() (Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current < 0 {
		return Match{}, false
	}
	return e.matches[e.current], true
}

func (e *Engine) Matches() []Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Match, len(e.matches))
	copy(out, e.matches)
	return out
}

func (e *Engine) Term() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.term
}

func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Engine) clearLocked() {
	e.term = ""
	e.matches = nil
	e.current = -1
}

// ReplaceOne substitutes the current match and searches again. It does
// nothing when the span no longer holds the term, which happens when the
// text was edited after the last search.
func (e *Engine) ReplaceOne(text, replacement string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current < 0 {
		return text, false
	}
	match := e.matches[e.current]
	runes := []rune(text)
	if match.Start+match.Length > len(runes) || !equalFold(runes[match.Start:match.Start+match.Length], []rune(e.term)) {
		return text, false
	}
	next := string(runes[:match.Start]) + replacement + string(runes[match.Start+match.Length:])
	e.searchLocked(e.term, next)
	return next, true
}

// ReplaceAll substitutes every occurrence of the term and clears the state.
// It returns the new text and the number of replacements.
func (e *Engine) ReplaceAll(text, replacement string) (string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.matches) == 0 {
		return text, 0
	}
	matches := FindAll(e.term, text)
	e.clearLocked()
	if len(matches) == 0 {
		return text, 0
	}
	return splice(text, matches, replacement), len(matches)
}

func (e *Engine) statusLocked() Status {
	return Status{Count: len(e.matches), Position: e.current + 1}
}

// FindAll returns the non-overlapping occurrences of term in text, compared
// rune by rune under simple case folding.
func FindAll(term, text string) []Match {
	needle := []rune(term)
	if len(needle) == 0 {
		return nil
	}
	haystack := []rune(text)
	var matches []Match
	for i := 0; i+len(needle) <= len(haystack); {
		if equalFold(haystack[i:i+len(needle)], needle) {
			matches = append(matches, Match{Start: i, Length: len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return matches
}

func splice(text string, matches []Match, replacement string) string {
	runes := []rune(text)
	out := make([]rune, 0, len(runes))
	prev := 0
	for _, m := range matches {
		out = append(out, runes[prev:m.Start]...)
		out = append(out, []rune(replacement)...)
		prev = m.Start + m.Length
	}
	out = append(out, runes[prev:]...)
	return string(out)
}

func equalFold(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !foldRune(a[i], b[i]) {
			return false
		}
	}
	return true
}

func foldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
