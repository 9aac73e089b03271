package search

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSearchFindsCaseInsensitiveMatches(t *testing.T) {
	cases := []struct {
		name   string
		term   string
		text   string
		starts []int
	}{
		{"basic", "abc", "xabcxabcx", []int{1, 5}},
		{"case folded", "Go", "go GO gO", []int{0, 3, 6}},
		{"non overlapping", "aa", "aaaa", []int{0, 2}},
		{"regexp chars are literal", "a.b", "axb a.b", []int{4}},
		{"multibyte offsets in runes", "語", "日本語日本語", []int{2, 5}},
		{"no match", "zzz", "abc", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine()
			status := e.Search(tc.term, tc.text)
			if status.Count != len(tc.starts) {
				t.Fatalf("count = %d, want %d", status.Count, len(tc.starts))
			}
			matches := e.Matches()
			for i, start := range tc.starts {
				if matches[i].Start != start {
					t.Fatalf("match %d starts at %d, want %d", i, matches[i].Start, start)
				}
			}
			if len(tc.starts) == 0 && (status.Position != 0 || e.Current() != -1) {
				t.Fatalf("expected empty status, got %+v current %d", status, e.Current())
			}
			if len(tc.starts) > 0 && status.Position != 1 {
				t.Fatalf("expected first match current, got %+v", status)
			}
		})
	}
}

func TestNavigationWraps(t *testing.T) {
	e := NewEngine()
	e.Search("abc", "xabcxabcx")

	if got := e.Next(); got != (Status{Count: 2, Position: 2}) {
		t.Fatalf("next = %+v", got)
	}
	if got := e.Next(); got != (Status{Count: 2, Position: 1}) {
		t.Fatalf("next should wrap to first, got %+v", got)
	}
	if got := e.Previous(); got != (Status{Count: 2, Position: 2}) {
		t.Fatalf("previous should wrap to last, got %+v", got)
	}
	m, ok := e.CurrentMatch()
	if !ok || m.Start != 5 || m.Length != 3 {
		t.Fatalf("current match = %+v %v", m, ok)
	}
}

func TestNavigationWithoutMatchesIsNoop(t *testing.T) {
	e := NewEngine()
	if got := e.Next(); got != (Status{}) {
		t.Fatalf("next = %+v", got)
	}
	if got := e.Previous(); got != (Status{}) {
		t.Fatalf("previous = %+v", got)
	}
	if _, ok := e.CurrentMatch(); ok {
		t.Fatal("expected no current match")
	}
}

func TestEmptyTermClears(t *testing.T) {
	e := NewEngine()
	e.Search("a", "aaa")
	if got := e.Search("", "aaa"); got != (Status{}) {
		t.Fatalf("status = %+v", got)
	}
	if e.Term() != "" || len(e.Matches()) != 0 {
		t.Fatal("empty term should reset the engine")
	}
}

func TestReplaceOne(t *testing.T) {
	e := NewEngine()
	e.Search("abc", "xabcxabcx")
	e.Next()

	text, ok := e.ReplaceOne("xabcxabcx", "Z")
	if !ok || text != "xabcxZx" {
		t.Fatalf("replace = %q %v", text, ok)
	}
	if got := e.Status(); got != (Status{Count: 1, Position: 1}) {
		t.Fatalf("status after replace = %+v", got)
	}
}

func TestReplaceOneRefusesStaleSpan(t *testing.T) {
	e := NewEngine()
	e.Search("abc", "xabcx")

	text, ok := e.ReplaceOne("xyyyx", "Z")
	if ok || text != "xyyyx" {
		t.Fatalf("stale replace = %q %v", text, ok)
	}
	short, ok := e.ReplaceOne("x", "Z")
	if ok || short != "x" {
		t.Fatalf("truncated replace = %q %v", short, ok)
	}
}

func TestReplaceOneWithoutMatch(t *testing.T) {
	e := NewEngine()
	if text, ok := e.ReplaceOne("abc", "Z"); ok || text != "abc" {
		t.Fatalf("replace = %q %v", text, ok)
	}
}

func TestReplaceAll(t *testing.T) {
	e := NewEngine()
	e.Search("abc", "xabcxABCx")

	text, n := e.ReplaceAll("xabcxABCx", "Z")
	if text != "xZxZx" || n != 2 {
		t.Fatalf("replace all = %q %d", text, n)
	}
	if got := e.Status(); got != (Status{}) {
		t.Fatalf("state should be cleared, got %+v", got)
	}
	if again, n := e.ReplaceAll(text, "Q"); again != text || n != 0 {
		t.Fatalf("second replace all = %q %d", again, n)
	}
}

func testReplaceAll_Properties(t *rapid.T) {
	term := rapid.StringMatching(`[a-c]{1,3}`).Draw(t, "term")
	text := rapid.StringMatching(`[a-cA-C ]{0,40}`).Draw(t, "text")

	e := NewEngine()
	status := e.Search(term, text)
	want := len(FindAll(term, text))
	if status.Count != want {
		t.Fatalf("count %d, FindAll %d", status.Count, want)
	}

	out, n := e.ReplaceAll(text, "_")
	if n != want {
		t.Fatalf("replaced %d, want %d", n, want)
	}
	if got := strings.Count(out, "_"); got != n {
		t.Fatalf("%d markers in %q, want %d", got, out, n)
	}
	if n == 0 && out != text {
		t.Fatalf("text changed without replacements: %q -> %q", text, out)
	}
}

func TestReplaceAll_Properties(t *testing.T) {
	rapid.Check(t, testReplaceAll_Properties)
}
