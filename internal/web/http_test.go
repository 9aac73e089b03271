package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"memopad/internal/auth"
)

func TestMiddlewareSetsHeaders(t *testing.T) {
	var seenID string
	handler := WithMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		WriteJSON(w, http.StatusTeapot, map[string]any{"ok": true})
	}), StaticOrigin("*"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if seenID != "req-1" || rec.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("request id not propagated: %q", seenID)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
}

func TestMiddlewareAnswersPreflight(t *testing.T) {
	called := false
	handler := WithMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/x", nil))
	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight status = %d, handler called = %v", rec.Code, called)
	}
}

func TestAllowList(t *testing.T) {
	cors := AllowList([]string{"http://localhost:3000"})
	cases := []struct {
		origin      string
		wantAllowed bool
	}{
		{"http://localhost:3000", true},
		{"http://evil.test", false},
		{"", false},
	}
	for _, tc := range cases {
		header := http.Header{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		cors(header, req)
		allowed := header.Get("Access-Control-Allow-Origin") == tc.origin && tc.origin != ""
		if allowed != tc.wantAllowed {
			t.Fatalf("origin %q allowed = %v", tc.origin, allowed)
		}
		if tc.wantAllowed && header.Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatal("credentials must be allowed for listed origins")
		}
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{NewError(http.StatusNotFound, "TAB_NOT_FOUND", "Tab not found", nil), http.StatusNotFound, "TAB_NOT_FOUND"},
		{fmt.Errorf("wrapped: %w", NewError(http.StatusConflict, "CONFLICT", "c", nil)), http.StatusConflict, "CONFLICT"},
		{auth.ErrExpiredToken, http.StatusUnauthorized, "UNAUTHORIZED"},
		{errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tc := range cases {
		status, code, _, _ := MapError(tc.err)
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("MapError(%v) = %d %s", tc.err, status, code)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	var body struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeBody(req, &body); err != nil || body.Name != "x" {
		t.Fatalf("DecodeBody() = %v, %+v", err, body)
	}
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeBody(empty, &body); err != nil {
		t.Fatalf("empty body should decode, got %v", err)
	}
	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	if err := DecodeBody(bad, &body); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestBearerTokenAndSplitPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer  abc ")
	if got := BearerToken(req); got != "abc" {
		t.Fatalf("BearerToken() = %q", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := BearerToken(req); got != "" {
		t.Fatalf("BearerToken() = %q", got)
	}
	parts := SplitPath("/api/tabs/memo_1/activate/")
	if len(parts) != 4 || parts[2] != "memo_1" {
		t.Fatalf("SplitPath() = %v", parts)
	}
	if SplitPath("/") != nil {
		t.Fatal("root should split to nil")
	}
}
