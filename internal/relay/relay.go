// Package relay is the OAuth relay that signs a browser into Google and
// uploads memos to Google Docs on its behalf.
package relay

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"memopad/internal/export"
	"memopad/internal/session"
	"memopad/internal/web"
)

const (
	Provider    = "google"
	CookieName  = "memopad_relay_session"
	ServiceName = "memopad export relay"
	UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

var Scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/documents",
	"https://www.googleapis.com/auth/drive.file",
}

//go:embed templates/callback.html
var templateFS embed.FS

var callbackTemplate = template.Must(template.ParseFS(templateFS, "templates/callback.html"))

// DocsFactory builds a Docs client that authenticates with ts.
type DocsFactory func(ctx context.Context, ts oauth2.TokenSource) (export.DocsAPI, error)

type Options struct {
	OAuth         *oauth2.Config
	UserInfoURL   string
	AppURL        string
	CORSOrigins   []string
	SessionSecret []byte
	SessionTTL    time.Duration
	SecureCookies bool
	Sessions      session.Store
	Uploader      *export.Uploader
	Docs          DocsFactory
}

type Server struct {
	oauth       *oauth2.Config
	userInfoURL string
	appURL      string
	cors        web.CORS
	secret      []byte
	ttl         time.Duration
	secure      bool
	sessions    session.Store
	uploader    *export.Uploader
	docs        DocsFactory
	now         func() time.Time
}

// NewOAuthConfig returns the Google client configuration for the relay.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// GoogleDocsFactory talks to the real API, or to endpoint when set.
func GoogleDocsFactory(endpoint string) DocsFactory {
	return func(ctx context.Context, ts oauth2.TokenSource) (export.DocsAPI, error) {
		return export.NewGoogleDocs(ctx, ts, endpoint)
	}
}

func New(opts Options) *Server {
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = UserInfoURL
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore(opts.SessionTTL)
	}
	if opts.Uploader == nil {
		opts.Uploader = export.NewUploader(nil)
	}
	if opts.Docs == nil {
		opts.Docs = GoogleDocsFactory("")
	}
	return &Server{
		oauth:       opts.OAuth,
		userInfoURL: opts.UserInfoURL,
		appURL:      opts.AppURL,
		cors:        web.AllowList(opts.CORSOrigins),
		secret:      opts.SessionSecret,
		ttl:         opts.SessionTTL,
		secure:      opts.SecureCookies,
		sessions:    opts.Sessions,
		uploader:    opts.Uploader,
		docs:        opts.Docs,
		now:         time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	return web.WithMiddleware(http.HandlerFunc(s.handle), s.cors)
}

// Configured reports whether Google client credentials are present.
func (s *Server) Configured() bool {
	return s.oauth != nil && s.oauth.ClientID != "" && s.oauth.ClientSecret != ""
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := web.SplitPath(r.URL.Path)

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		web.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"service":    ServiceName,
			"configured": s.Configured(),
		})
	case r.Method == http.MethodGet && r.URL.Path == "/auth/status":
		s.handleStatus(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/refresh":
		s.handleRefresh(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/logout":
		s.handleLogout(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/docs":
		s.handleDocs(w, r)
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "auth":
		s.handleLogin(w, r, parts[1])
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "auth" && parts[2] == "callback":
		s.handleCallback(w, r, parts[1])
	default:
		web.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
