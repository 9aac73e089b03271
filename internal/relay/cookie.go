package relay

import (
	"errors"
	"log"
	"net/http"

	"memopad/internal/auth"
	"memopad/internal/session"
	"memopad/internal/util"
)

// loadSession resolves the session cookie. An absent, forged or expired
// cookie yields an empty id and empty data.
func (s *Server) loadSession(r *http.Request) (string, session.Data) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", session.Data{}
	}
	claims, err := auth.ParseToken(s.secret, cookie.Value)
	if err != nil {
		return "", session.Data{}
	}
	data, err := s.sessions.Load(r.Context(), claims.Sub)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Printf("relay: load session: %v", err)
		}
		return claims.Sub, session.Data{}
	}
	return claims.Sub, data
}

// saveSession stores data and refreshes the cookie. It must run before the
// response header is written.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, id string, data session.Data) error {
	if id == "" {
		id = util.NewID("sess")
	}
	if err := s.sessions.Save(r.Context(), id, data); err != nil {
		return err
	}
	token, err := auth.IssueSessionToken(s.secret, id, s.ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request, id string) {
	if id != "" {
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			log.Printf("relay: delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
