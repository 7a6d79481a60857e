package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	body := "listen_addr = \"0.0.0.0:9999\"\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:9999", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MetricsAddr != DefaultServerConfig().MetricsAddr {
		t.Errorf("MetricsAddr = %q, want default preserved", cfg.MetricsAddr)
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	if _, err := LoadServerConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}

func TestLoadClientConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.toml")
	body := "server_addr = \"example.com:51946\"\nplayer_name = \"hatsuko\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadClientConfig(path)
	if err != nil {
		t.Fatalf("LoadClientConfig: %v", err)
	}
	if cfg.ServerAddr != "example.com:51946" {
		t.Errorf("ServerAddr = %q, want example.com:51946", cfg.ServerAddr)
	}
	if cfg.PlayerName != "hatsuko" {
		t.Errorf("PlayerName = %q, want hatsuko", cfg.PlayerName)
	}
}
