package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spx.db" {
			t.Errorf("expected database path ./spx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected redirect uri http://127.0.0.1:3000/callback, got %s", config.Spotify.RedirectURI)
		}

		if len(config.Spotify.Scopes) != 10 {
			t.Errorf("expected 10 scopes, got %d", len(config.Spotify.Scopes))
		}

		if config.Player.ConnectTimeout.Duration != 8*time.Second {
			t.Errorf("expected connect timeout 8s, got %v", config.Player.ConnectTimeout.Duration)
		}

		if config.Player.SuppressWindow.Duration != 500*time.Millisecond {
			t.Errorf("expected suppress window 500ms, got %v", config.Player.SuppressWindow.Duration)
		}

		if config.Spotify.MaxRateLimitRetries != 0 {
			t.Errorf("expected unbounded rate limit retries, got %d", config.Spotify.MaxRateLimitRetries)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("overrides defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[spotify]
client_id = "test_client_id"

[player]
connect_timeout = "3s"
`
			if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.Database.Path != "/custom/path.db" {
				t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
			}
			if config.Server.Addr() != "0.0.0.0:8080" {
				t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
			}
			if config.Spotify.ClientID != "test_client_id" {
				t.Errorf("expected spotify client_id test_client_id, got %s", config.Spotify.ClientID)
			}
			if config.Player.ConnectTimeout.Duration != 3*time.Second {
				t.Errorf("expected connect timeout 3s, got %v", config.Player.ConnectTimeout.Duration)
			}
			if config.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
				t.Errorf("expected default token url to survive, got %s", config.Spotify.TokenURL)
			}
		})

		t.Run("invalid duration", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("[player]\npoll_interval = \"soon\"\n"), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			if _, err := LoadConfig(configPath); err == nil {
				t.Error("expected error for invalid duration")
			}
		})

		t.Run("missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Spotify.ClientID = "saved"
		config.Player.PollInterval = Duration{2 * time.Second}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Spotify.ClientID != "saved" {
			t.Errorf("expected client id saved, got %s", loaded.Spotify.ClientID)
		}
		if loaded.Player.PollInterval.Duration != 2*time.Second {
			t.Errorf("expected poll interval 2s, got %v", loaded.Player.PollInterval.Duration)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Run("environment overrides", func(t *testing.T) {
			t.Setenv("SPX_CLIENT_ID", "from-env")
			t.Setenv("SPX_DEVICE_NAME", "Kitchen")

			config := DefaultConfig()
			if err := config.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
				t.Fatalf("expected missing dotenv file to be ignored, got %v", err)
			}

			if config.Spotify.ClientID != "from-env" {
				t.Errorf("expected client id from-env, got %s", config.Spotify.ClientID)
			}
			if config.Player.DeviceName != "Kitchen" {
				t.Errorf("expected device name Kitchen, got %s", config.Player.DeviceName)
			}
		})

		t.Run("dotenv file", func(t *testing.T) {
			t.Setenv("SPX_DATABASE_PATH", "")
			envPath := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envPath, []byte("SPX_DATABASE_PATH=/tmp/from-dotenv.db\n"), 0644); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}
			os.Unsetenv("SPX_DATABASE_PATH")

			config := DefaultConfig()
			if err := config.ApplyEnv(envPath); err != nil {
				t.Fatalf("failed to apply env: %v", err)
			}

			if config.Database.Path != "/tmp/from-dotenv.db" {
				t.Errorf("expected database path from dotenv, got %s", config.Database.Path)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig for placeholder client id, got %v", err)
		}

		config.Spotify.ClientID = "abc"
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})
}
