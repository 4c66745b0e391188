package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	return path
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("MATCHER_TEST_SECRET", " from-env ")

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{
			name: "file wins",
			src:  Source{File: writeSecret(t, "from-file\n"), Env: "MATCHER_TEST_SECRET", Value: "inline"},
			want: "from-file",
		},
		{
			name: "env beats inline",
			src:  Source{Env: "MATCHER_TEST_SECRET", Value: "inline"},
			want: "from-env",
		},
		{
			name: "inline",
			src:  Source{Env: "MATCHER_TEST_UNSET", Value: "  inline  "},
			want: "inline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Source{Name: "database url"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if !strings.Contains(err.Error(), "database url") {
		t.Fatalf("expected the secret name in %q", err)
	}

	_, err = Load(Source{Name: "geocoder key", File: writeSecret(t, "  \n")})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	_, err = Load(Source{File: filepath.Join(t.TempDir(), "missing")})
	if err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "geocoder key"})
	if err != nil || got != "" {
		t.Fatalf("expected empty secret without error, got %q, %v", got, err)
	}

	got, err = LoadOptional(Source{Value: "key"})
	if err != nil || got != "key" {
		t.Fatalf("expected key, got %q, %v", got, err)
	}
}
