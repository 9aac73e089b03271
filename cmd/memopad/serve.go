package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"memopad/internal/app"
	"memopad/internal/config"
	"memopad/internal/gitrepo"
	"memopad/internal/preview"
	"memopad/internal/search"
	"memopad/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	cfg.Addr = flagOverride(cmd, "addr", cfg.Addr)
	cfg.StoreDriver = strings.ToLower(flagOverride(cmd, "store", cfg.StoreDriver))
	ctx := context.Background()

	backend, history, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Printf("Using %s store", cfg.StoreDriver)

	memos := store.NewMemos(backend)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}

	service := app.New(app.Deps{
		Memos:         memos,
		History:       history,
		Notes:         search.NewService(meiliClient, search.NewLocal(memos)),
		Renderer:      preview.NewRenderer(),
		AutosaveDelay: cfg.AutosaveDelay,
		PreviewDelay:  cfg.PreviewDelay,
	})
	if err := service.Start(ctx); err != nil {
		return err
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.APIToken)
	server := newHTTPServer(cfg.Addr, httpServer.Handler())
	return listenUntilSignal("Memopad API", server, func(ctx context.Context) {
		if err := service.Shutdown(ctx); err != nil {
			log.Printf("workspace shutdown: %v", err)
		}
	})
}

// openStore builds the configured backend. history is non-nil only for the
// git driver.
func openStore(ctx context.Context, cfg config.Config) (store.Backend, app.History, func(), error) {
	noop := func() {}
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryBackend(0), nil, noop, nil
	case "", "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		backend, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		return backend, nil, func() { _ = backend.Close() }, nil
	case "postgres":
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		return store.NewPostgresBackend(db), nil, func() { _ = db.Close() }, nil
	case "redis":
		backend, err := store.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return backend, nil, func() { _ = backend.Close() }, nil
	case "git":
		repo, err := gitrepo.Open(cfg.GitDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("git store: %w", err)
		}
		return repo, repo, noop, nil
	case "s3":
		backend, err := store.NewObjectBackend(ctx, store.ObjectConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("s3 store: %w", err)
		}
		return backend, nil, noop, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
