package app

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memopad/internal/auth"
	"memopad/internal/editor"
	"memopad/internal/export"
	"memopad/internal/preview"
	"memopad/internal/search"
	"memopad/internal/web"
)

type HTTPServer struct {
	service  *Service
	cors     web.CORS
	apiToken string
}

// NewHTTPServer serves the workspace API. A non-empty apiToken must be
// presented as a bearer token on every route but health and readiness.
func NewHTTPServer(service *Service, corsOrigin, apiToken string) *HTTPServer {
	return &HTTPServer{service: service, cors: web.StaticOrigin(corsOrigin), apiToken: apiToken}
}

func (s *HTTPServer) Handler() http.Handler {
	return web.WithMiddleware(http.HandlerFunc(s.handle), s.cors)
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		web.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if !s.authorized(r) {
		web.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	parts := web.SplitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		web.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "state":
		if len(parts) == 2 && r.Method == http.MethodGet {
			web.WriteJSON(w, http.StatusOK, s.service.State())
			return
		}
	case "tabs":
		if s.handleTabs(w, r, parts[2:]) {
			return
		}
	case "editor":
		if s.handleEditor(w, r, parts[2:]) {
			return
		}
	case "preview":
		if s.handlePreview(w, r, parts[2:]) {
			return
		}
	case "search":
		if s.handleSearch(w, r, parts[2:]) {
			return
		}
	case "notes":
		if len(parts) == 3 && parts[2] == "search" && r.Method == http.MethodGet {
			s.handleNotesSearch(w, r)
			return
		}
	case "export":
		if len(parts) == 2 && r.Method == http.MethodGet {
			s.handleExport(w, r)
			return
		}
	}

	web.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) authorized(r *http.Request) bool {
	if s.apiToken == "" {
		return true
	}
	return auth.MatchToken(web.BearerToken(r), s.apiToken)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"store": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["store"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	web.WriteJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) writeTabs(w http.ResponseWriter, status int, extra map[string]any) {
	tabs, activeID := s.service.Tabs()
	payload := map[string]any{"tabs": tabs, "activeId": activeID}
	for key, value := range extra {
		payload[key] = value
	}
	web.WriteJSON(w, status, payload)
}

func (s *HTTPServer) handleTabs(w http.ResponseWriter, r *http.Request, parts []string) bool {
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.writeTabs(w, http.StatusOK, nil)
		case http.MethodPost:
			var body struct {
				Content string `json:"content"`
				Title   string `json:"title"`
			}
			if err := web.DecodeBody(r, &body); err != nil {
				web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return true
			}
			doc := s.service.CreateTab(ctx, body.Content, strings.TrimSpace(body.Title))
			s.writeTabs(w, http.StatusCreated, map[string]any{"document": doc})
		default:
			return false
		}
		return true
	}

	if len(parts) == 1 && parts[0] == "save" && r.Method == http.MethodPost {
		if err := s.service.SaveActive(ctx); err != nil {
			writeDomainError(w, err)
			return true
		}
		web.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": s.service.Status()})
		return true
	}

	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			doc, err := s.service.Document(id)
			if err != nil {
				writeDomainError(w, err)
				return true
			}
			web.WriteJSON(w, http.StatusOK, doc)
		case http.MethodDelete:
			if err := s.service.CloseTab(ctx, id); err != nil {
				writeDomainError(w, err)
				return true
			}
			s.writeTabs(w, http.StatusOK, nil)
		default:
			return false
		}
		return true
	}

	if len(parts) != 2 {
		return false
	}
	switch {
	case parts[1] == "activate" && r.Method == http.MethodPost:
		if err := s.service.ActivateTab(ctx, id); err != nil {
			writeDomainError(w, err)
			return true
		}
		s.writeTabs(w, http.StatusOK, map[string]any{"editor": s.service.Editor()})
	case parts[1] == "duplicate" && r.Method == http.MethodPost:
		doc, err := s.service.DuplicateTab(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return true
		}
		s.writeTabs(w, http.StatusCreated, map[string]any{"document": doc})
	case parts[1] == "history" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		revisions, err := s.service.TabHistory(id, limit)
		if err != nil {
			writeDomainError(w, err)
			return true
		}
		web.WriteJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
	default:
		return false
	}
	return true
}

func (s *HTTPServer) handleEditor(w http.ResponseWriter, r *http.Request, parts []string) bool {
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			web.WriteJSON(w, http.StatusOK, s.service.Editor())
		case http.MethodPut:
			var body EditorState
			if err := web.DecodeBody(r, &body); err != nil {
				web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return true
			}
			web.WriteJSON(w, http.StatusOK, s.service.ReplaceEditor(body))
		default:
			return false
		}
		return true
	}

	if len(parts) != 1 || r.Method != http.MethodPost {
		return false
	}

	switch parts[0] {
	case "input":
		var body struct {
			Text string `json:"text"`
		}
		if err := web.DecodeBody(r, &body); err != nil {
			web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		web.WriteJSON(w, http.StatusOK, s.service.Type(body.Text))
	case "select":
		var body struct {
			Start int    `json:"start"`
			End   int    `json:"end"`
			Units string `json:"units"`
		}
		if err := web.DecodeBody(r, &body); err != nil {
			web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		switch body.Units {
		case "", "runes":
			web.WriteJSON(w, http.StatusOK, s.service.Select(body.Start, body.End))
		case "utf16":
			web.WriteJSON(w, http.StatusOK, s.service.SelectUTF16(body.Start, body.End))
		default:
			web.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "units must be runes or utf16", map[string]any{"units": body.Units})
		}
	case "key":
		var body struct {
			editor.Key
			Focused *bool `json:"focused"`
		}
		if err := web.DecodeBody(r, &body); err != nil {
			web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		if body.Name == "" {
			web.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "key is required", nil)
			return true
		}
		focused := body.Focused == nil || *body.Focused
		web.WriteJSON(w, http.StatusOK, s.service.Key(ctx, body.Key, focused))
	case "format":
		var body struct {
			Action string `json:"action"`
			URL    string `json:"url"`
		}
		if err := web.DecodeBody(r, &body); err != nil {
			web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		state, err := s.service.Format(strings.ToLower(strings.TrimSpace(body.Action)), body.URL)
		if err != nil {
			writeDomainError(w, err)
			return true
		}
		web.WriteJSON(w, http.StatusOK, state)
	case "blur":
		if err := s.service.Blur(ctx); err != nil {
			writeDomainError(w, err)
			return true
		}
		web.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "status": s.service.Status()})
	default:
		return false
	}
	return true
}

func (s *HTTPServer) handlePreview(w http.ResponseWriter, r *http.Request, parts []string) bool {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		web.WriteJSON(w, http.StatusOK, s.service.Preview())
	case len(parts) == 1 && parts[0] == "toggle" && r.Method == http.MethodPost:
		web.WriteJSON(w, http.StatusOK, s.service.TogglePreview())
	case len(parts) == 1 && parts[0] == "scroll" && r.Method == http.MethodPost:
		var body struct {
			Source preview.Viewport `json:"source"`
			Target preview.Viewport `json:"target"`
		}
		if err := web.DecodeBody(r, &body); err != nil {
			web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return true
		}
		web.WriteJSON(w, http.StatusOK, map[string]any{"scrollTop": s.service.SyncScroll(body.Source, body.Target)})
	default:
		return false
	}
	return true
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, parts []string) bool {
	if r.Method != http.MethodPost {
		if len(parts) == 0 && r.Method == http.MethodGet {
			web.WriteJSON(w, http.StatusOK, s.service.SearchState())
			return true
		}
		return false
	}

	var body struct {
		Term        string `json:"term"`
		Replacement string `json:"replacement"`
	}
	if err := web.DecodeBody(r, &body); err != nil {
		web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return true
	}

	if len(parts) == 0 {
		web.WriteJSON(w, http.StatusOK, map[string]any{
			"search": s.service.Search(body.Term),
			"editor": s.service.Editor(),
		})
		return true
	}
	if len(parts) != 1 {
		return false
	}

	switch parts[0] {
	case "next":
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": s.service.NextMatch(), "editor": s.service.Editor()})
	case "previous":
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": s.service.PreviousMatch(), "editor": s.service.Editor()})
	case "replace":
		state, replaced := s.service.ReplaceCurrent(body.Replacement)
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": state, "replaced": replaced, "editor": s.service.Editor()})
	case "replace-all":
		state, count := s.service.ReplaceAll(body.Replacement)
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": state, "replaced": count, "editor": s.service.Editor()})
	case "toggle":
		s.service.ToggleSearch()
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": s.service.SearchState()})
	case "close":
		web.WriteJSON(w, http.StatusOK, map[string]any{"search": s.service.CloseSearch()})
	default:
		return false
	}
	return true
}

func (s *HTTPServer) handleNotesSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	text := strings.TrimSpace(query.Get("q"))
	if text == "" {
		web.WriteError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
		return
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	web.WriteJSON(w, http.StatusOK, s.service.SearchNotes(r.Context(), search.Query{
		Text:   text,
		Limit:  limit,
		Offset: offset,
	}))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := s.service.Export(r.Context(), format)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.Write(result.Data)
}
