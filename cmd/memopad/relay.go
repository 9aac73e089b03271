package main

import (
	"log"
	"strings"

	"github.com/spf13/cobra"

	"memopad/internal/config"
	"memopad/internal/export"
	"memopad/internal/preview"
	"memopad/internal/relay"
	"memopad/internal/session"
)

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	cfg.RelayAddr = flagOverride(cmd, "addr", cfg.RelayAddr)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for relay sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionSecret, cfg.SessionTTL)
		if err != nil {
			log.Printf("redis connection failed: %v", err)
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory relay sessions")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	opts := relay.Options{
		AppURL:        cfg.AppURL,
		CORSOrigins:   cfg.RelayCORSOrigins,
		SessionSecret: []byte(cfg.SessionSecret),
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		Sessions:      sessions,
		Uploader:      export.NewUploader(preview.NewRenderer()),
		Docs:          relay.GoogleDocsFactory(cfg.DocsEndpoint),
	}
	if cfg.OAuthConfigured() {
		opts.OAuth = relay.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURI)
	} else {
		log.Printf("WARNING: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google Docs export is disabled")
	}

	server := newHTTPServer(cfg.RelayAddr, relay.New(opts).Handler())
	return listenUntilSignal("Export relay", server, nil)
}
