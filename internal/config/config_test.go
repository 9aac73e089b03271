package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MEMOPAD_ADDR", "PORT", "MEMOPAD_STORE", "MEMOPAD_AUTOSAVE_MS", "RELAY_CORS_ORIGINS", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.RelayAddr != ":3001" {
		t.Errorf("RelayAddr = %q", cfg.RelayAddr)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.AutosaveDelay != 2*time.Second {
		t.Errorf("AutosaveDelay = %v", cfg.AutosaveDelay)
	}
	if cfg.PreviewDelay != 300*time.Millisecond {
		t.Errorf("PreviewDelay = %v", cfg.PreviewDelay)
	}
	if len(cfg.RelayCORSOrigins) == 0 {
		t.Error("expected default relay origins")
	}
	if cfg.OAuthConfigured() {
		t.Error("expected OAuth to be unconfigured without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "4100")
	t.Setenv("MEMOPAD_STORE", "Redis")
	t.Setenv("MEMOPAD_AUTOSAVE_MS", "50")
	t.Setenv("RELAY_CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg := Load()
	if cfg.RelayAddr != ":4100" {
		t.Errorf("RelayAddr = %q", cfg.RelayAddr)
	}
	if cfg.StoreDriver != "redis" {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.AutosaveDelay != 50*time.Millisecond {
		t.Errorf("AutosaveDelay = %v", cfg.AutosaveDelay)
	}
	if len(cfg.RelayCORSOrigins) != 2 || cfg.RelayCORSOrigins[1] != "http://b.test" {
		t.Errorf("RelayCORSOrigins = %v", cfg.RelayCORSOrigins)
	}
	if !cfg.S3UseSSL {
		t.Error("expected S3UseSSL")
	}
	if !cfg.OAuthConfigured() {
		t.Error("expected OAuth to be configured")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MEMOPAD_PREVIEW_MS", "soon")
	cfg := Load()
	if cfg.PreviewDelay != 300*time.Millisecond {
		t.Errorf("PreviewDelay = %v", cfg.PreviewDelay)
	}
}
