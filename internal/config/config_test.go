package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.SessionTTLSeconds != 60 || cfg.FetchTimeoutSeconds != 10 || cfg.ListCap != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memebox.yaml")
	doc := "data_dir: /var/lib/memebox\nsession_ttl_seconds: 120\nport: 9090\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/memebox" || cfg.SessionTTLSeconds != 120 || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.CommandPrefix != "/meme" || cfg.ListCap != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memebox.yaml")
	if err := os.WriteFile(path, []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEMEBOX_PORT", "7070")
	t.Setenv("MEMEBOX_COMMAND_PREFIX", "/sticker")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want env value", cfg.Port)
	}
	if cfg.CommandPrefix != "/sticker" {
		t.Errorf("CommandPrefix = %q", cfg.CommandPrefix)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memebox.yaml")
	if err := os.WriteFile(path, []byte(":\n  - not valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
