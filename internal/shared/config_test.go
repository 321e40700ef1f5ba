package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ytplay.db" {
			t.Errorf("expected database path ./ytplay.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Catalog.Debounce != 300*time.Millisecond {
			t.Errorf("expected debounce 300ms, got %v", config.Catalog.Debounce)
		}
		if config.Catalog.SearchTimeout != 10*time.Second {
			t.Errorf("expected search timeout 10s, got %v", config.Catalog.SearchTimeout)
		}
		if config.Auth.SignUpCooldown != 30*time.Second {
			t.Errorf("expected sign up cooldown 30s, got %v", config.Auth.SignUpCooldown)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("overrides defaults", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := `
[catalog]
base_url = "https://music.example.com/api"
debounce = "0s"

[auth.oauth.google]
client_id = "abc"
auth_url = "https://accounts.example.com/auth"
token_url = "https://accounts.example.com/token"
scopes = ["openid", "email"]
`
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if config.Catalog.BaseURL != "https://music.example.com/api" {
				t.Errorf("expected overridden base url, got %s", config.Catalog.BaseURL)
			}
			if config.Catalog.Debounce != 0 {
				t.Errorf("expected zero debounce, got %v", config.Catalog.Debounce)
			}
			if config.Catalog.SearchTimeout != 10*time.Second {
				t.Errorf("expected default search timeout to survive, got %v", config.Catalog.SearchTimeout)
			}
			google, ok := config.Auth.OAuth["google"]
			if !ok {
				t.Fatal("expected google oauth provider")
			}
			if len(google.Scopes) != 2 {
				t.Errorf("expected 2 scopes, got %d", len(google.Scopes))
			}
		})

		t.Run("missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Fatal("expected error for missing file")
			}
		})

		t.Run("invalid toml", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[catalog\nbase_url ="), 0644)

			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
				t.Fatalf("expected parse error, got %v", err)
			}
		})

		t.Run("incomplete oauth provider", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[auth.oauth.github]\nclient_id = \"x\"\n"), 0644)

			_, err := LoadConfig(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Library.Timeout = 0
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for zero library timeout, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected config file to exist: %v", err)
		}
		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when config file already exists")
		}
	})

	t.Run("ServerConfig", func(t *testing.T) {
		s := ServerConfig{Host: "127.0.0.1", Port: 3000}
		if s.CallbackURL() != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected callback url %s", s.CallbackURL())
		}
	})
}
