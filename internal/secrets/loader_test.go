package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  file-secret\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %s", err)
	}

	got, err := Load(Source{Name: "api token", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if got != "file-secret" {
		t.Fatalf("file must win over value and be trimmed, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HH_SCREENER_TEST_SECRET", "env-secret")

	got, err := Load(Source{Name: "api token", Env: "HH_SCREENER_TEST_SECRET", Value: "inline"})
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if got != "env-secret" {
		t.Fatalf("env must win over value, got %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(Source{Name: "api token"}); err == nil {
		t.Fatalf("expected an error for an unconfigured secret")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %s", err)
	}

	if _, err := Load(Source{Name: "api token", File: path}); err == nil {
		t.Fatalf("expected an error for an empty secret file")
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "api token"})
	if err != nil || got != "" {
		t.Fatalf("absent optional secret must be empty without error: %q %v", got, err)
	}

	// A configured but unreadable file is still fatal.
	if _, err := LoadOptional(Source{Name: "api token", File: "/nonexistent/token"}); err == nil {
		t.Fatalf("expected an error for an unreadable secret file")
	}
}
