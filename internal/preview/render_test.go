package preview

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r := NewRenderer()
	cases := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{"heading", "# Title", []string{"<h1", "Title</h1>"}, nil},
		{"hard wraps", "line one\nline two", []string{"line one<br"}, nil},
		{"raw html dropped", "<script>alert(1)</script>\n\nok", []string{"ok"}, []string{"<script", "alert(1)</script>"}},
		{"inline html dropped", "a <img src=x onerror=alert(1)> b", nil, []string{"onerror"}},
		{"external link", "[go](https://go.dev)", []string{`href="https://go.dev"`, `target="_blank"`, "noreferrer"}, nil},
		{"linkify", "see https://example.com now", []string{`href="https://example.com"`}, nil},
		{"table wrapped", "| a | b |\n|---|---|\n| 1 | 2 |", []string{`<div class="table-container"><table>`, "</table></div>"}, nil},
		{"strikethrough", "~~old~~", []string{"<del>old</del>"}, nil},
		{"javascript url", "[x](javascript:alert(1))", nil, []string{"javascript:"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Render(tc.in)
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Fatalf("Render(%q) = %q, missing %q", tc.in, got, want)
				}
			}
			for _, bad := range tc.notWant {
				if strings.Contains(got, bad) {
					t.Fatalf("Render(%q) = %q, must not contain %q", tc.in, got, bad)
				}
			}
		})
	}
}

func TestRenderBlank(t *testing.T) {
	r := NewRenderer()
	for _, in := range []string{"", "   ", "\n\t\n"} {
		if got := r.Render(in); got != EmptyHTML {
			t.Fatalf("Render(%q) = %q", in, got)
		}
	}
}

func TestSyncScroll(t *testing.T) {
	cases := []struct {
		name     string
		src, dst Viewport
		want     int
	}{
		{"halfway", Viewport{ScrollTop: 50, ScrollHeight: 200, ClientHeight: 100}, Viewport{ScrollHeight: 500, ClientHeight: 100}, 200},
		{"top", Viewport{ScrollTop: 0, ScrollHeight: 200, ClientHeight: 100}, Viewport{ScrollHeight: 500, ClientHeight: 100}, 0},
		{"bottom", Viewport{ScrollTop: 100, ScrollHeight: 200, ClientHeight: 100}, Viewport{ScrollHeight: 300, ClientHeight: 100}, 200},
		{"source cannot scroll", Viewport{ScrollTop: 10, ScrollHeight: 100, ClientHeight: 100}, Viewport{ScrollHeight: 300, ClientHeight: 100}, 0},
		{"target cannot scroll", Viewport{ScrollTop: 10, ScrollHeight: 300, ClientHeight: 100}, Viewport{ScrollHeight: 50, ClientHeight: 100}, 0},
		{"overscroll clamps", Viewport{ScrollTop: 400, ScrollHeight: 200, ClientHeight: 100}, Viewport{ScrollHeight: 300, ClientHeight: 100}, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SyncScroll(tc.src, tc.dst); got != tc.want {
				t.Fatalf("SyncScroll() = %d, want %d", got, tc.want)
			}
		})
	}
}
