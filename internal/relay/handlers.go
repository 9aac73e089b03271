package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"memopad/internal/export"
	"memopad/internal/session"
	"memopad/internal/util"
	"memopad/internal/web"
)

// requireConfigured answers 503 when the relay has no client credentials.
func (s *Server) requireConfigured(w http.ResponseWriter) bool {
	if s.Configured() {
		return true
	}
	web.WriteError(w, http.StatusServiceUnavailable, "OAUTH_NOT_CONFIGURED", "Google OAuth is not configured", nil)
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, provider string) {
	if provider != Provider {
		web.WriteError(w, http.StatusNotFound, "UNKNOWN_PROVIDER", "Unknown provider", map[string]any{"provider": provider})
		return
	}
	if !s.requireConfigured(w) {
		return
	}

	id, data := s.loadSession(r)
	data.State = util.RandomHex(16)
	if err := s.saveSession(w, r, id, data); err != nil {
		log.Printf("relay: save session: %v", err)
		web.WriteError(w, http.StatusInternalServerError, "SESSION_ERROR", "Could not start sign-in", nil)
		return
	}

	authURL := s.oauth.AuthCodeURL(data.State,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	web.WriteJSON(w, http.StatusOK, map[string]any{"authUrl": authURL})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request, provider string) {
	if provider != Provider {
		web.WriteError(w, http.StatusNotFound, "UNKNOWN_PROVIDER", "Unknown provider", map[string]any{"provider": provider})
		return
	}
	if !s.requireConfigured(w) {
		return
	}
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		s.redirectWithError(w, r, providerErr)
		return
	}
	code := query.Get("code")
	if code == "" {
		s.redirectWithError(w, r, "no_code")
		return
	}

	id, data := s.loadSession(r)
	if data.State == "" || query.Get("state") != data.State {
		s.redirectWithError(w, r, "invalid_state")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("relay: exchange code: %v", err)
		s.redirectWithError(w, r, "auth_failed")
		return
	}
	user, err := s.fetchUserInfo(r.Context(), token)
	if err != nil {
		log.Printf("relay: fetch user info: %v", err)
		s.redirectWithError(w, r, "auth_failed")
		return
	}

	data.State = ""
	data.Auth = &session.AuthData{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		UserInfo:     user,
	}
	if err := s.saveSession(w, r, id, data); err != nil {
		log.Printf("relay: save session: %v", err)
		s.redirectWithError(w, r, "auth_failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackTemplate.Execute(w, user); err != nil {
		log.Printf("relay: render callback: %v", err)
	}
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target := s.appURL + "?error=" + url.QueryEscape(reason)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) fetchUserInfo(ctx context.Context, token *oauth2.Token) (session.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return session.UserInfo{}, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return session.UserInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return session.UserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var user session.UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return session.UserInfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return user, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, data := s.loadSession(r)
	if data.Auth == nil {
		web.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false, "reason": "not_authenticated"})
		return
	}
	if data.Auth.Expired(s.now()) {
		data.Auth = nil
		if err := s.saveSession(w, r, id, data); err != nil {
			log.Printf("relay: save session: %v", err)
		}
		web.WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false, "reason": "token_expired"})
		return
	}
	payload := map[string]any{
		"authenticated": true,
		"accessToken":   data.Auth.AccessToken,
		"userInfo":      data.Auth.UserInfo,
	}
	if !data.Auth.ExpiresAt.IsZero() {
		payload["expiresAt"] = data.Auth.ExpiresAt.UnixMilli()
	}
	web.WriteJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigured(w) {
		return
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := web.DecodeBody(r, &body); err != nil {
		web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.RefreshToken) == "" {
		web.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "refresh_token is required", nil)
		return
	}

	token, err := s.oauth.TokenSource(r.Context(), &oauth2.Token{RefreshToken: body.RefreshToken}).Token()
	if err != nil {
		log.Printf("relay: refresh token: %v", err)
		web.WriteError(w, http.StatusUnauthorized, "REFRESH_FAILED", "Failed to refresh token", nil)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token.AccessToken,
		"expires_at":   token.Expiry.UnixMilli(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := s.loadSession(r)
	s.clearSession(w, r, id)
	web.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if !s.requireConfigured(w) {
		return
	}
	var body export.UploadRequest
	if err := web.DecodeBody(r, &body); err != nil {
		web.WriteError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	switch body.Format {
	case "":
		body.Format = export.UploadMarkdown
	case export.UploadMarkdown, export.UploadHTML:
	default:
		web.WriteError(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be markdown or html", nil)
		return
	}

	id, data := s.loadSession(r)
	if data.Auth == nil {
		web.WriteError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "Sign in with Google first", nil)
		return
	}

	current := &oauth2.Token{
		AccessToken:  data.Auth.AccessToken,
		RefreshToken: data.Auth.RefreshToken,
		TokenType:    data.Auth.TokenType,
		Expiry:       data.Auth.ExpiresAt,
	}
	ts := oauth2.ReuseTokenSource(current, s.oauth.TokenSource(r.Context(), current))
	api, err := s.docs(r.Context(), ts)
	if err != nil {
		log.Printf("relay: docs client: %v", err)
		web.WriteError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not reach Google Docs", nil)
		return
	}

	result, err := s.uploader.Upload(r.Context(), api, body)
	if err != nil {
		s.writeUploadError(w, r, id, data, err)
		return
	}

	// keep a token the source refreshed during the upload
	if latest, err := ts.Token(); err == nil && latest.AccessToken != current.AccessToken {
		data.Auth.AccessToken = latest.AccessToken
		data.Auth.ExpiresAt = latest.Expiry
		if latest.RefreshToken != "" {
			data.Auth.RefreshToken = latest.RefreshToken
		}
		if err := s.saveSession(w, r, id, data); err != nil {
			log.Printf("relay: save refreshed token: %v", err)
		}
	}
	web.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, id string, data session.Data, err error) {
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		web.WriteError(w, http.StatusUnprocessableEntity, "NOTHING_TO_EXPORT", "There is no content to upload", nil)
	case errors.Is(err, export.ErrUnauthorized), errors.As(err, &retrieveErr):
		data.Auth = nil
		if saveErr := s.saveSession(w, r, id, data); saveErr != nil {
			log.Printf("relay: save session: %v", saveErr)
		}
		web.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Google rejected the credentials, sign in again", nil)
	default:
		log.Printf("relay: upload: %v", err)
		web.WriteError(w, http.StatusBadGateway, "UPLOAD_FAILED", err.Error(), nil)
	}
}
