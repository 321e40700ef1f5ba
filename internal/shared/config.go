package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Server   ServerConfig   `toml:"server"`
}

// CatalogConfig contains search and stream endpoint settings.
type CatalogConfig struct {
	BaseURL       string        `toml:"base_url"`
	Debounce      time.Duration `toml:"debounce"`
	SearchTimeout time.Duration `toml:"search_timeout"`
}

// AuthConfig contains identity provider settings.
type AuthConfig struct {
	BaseURL        string                 `toml:"base_url"`
	APIKey         string                 `toml:"api_key"`
	SessionPath    string                 `toml:"session_path"`
	SignUpCooldown time.Duration          `toml:"signup_cooldown"`
	OAuth          map[string]OAuthConfig `toml:"oauth"`
}

// OAuthConfig contains the OAuth2 client settings for one sign-in provider.
type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LibraryConfig contains library persistence settings.
type LibraryConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

// ServerConfig contains the local HTTP server settings used for OAuth callbacks.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CallbackURL returns the OAuth redirect URL served by the local callback server.
func (s ServerConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s/callback", s.Addr())
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values that the core cannot run without.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("%w: catalog.base_url is required", ErrInvalidConfig)
	}
	if c.Catalog.Debounce < 0 {
		return fmt.Errorf("%w: catalog.debounce must not be negative", ErrInvalidConfig)
	}
	if c.Catalog.SearchTimeout <= 0 {
		return fmt.Errorf("%w: catalog.search_timeout must be positive", ErrInvalidConfig)
	}
	if c.Library.Timeout <= 0 {
		return fmt.Errorf("%w: library.timeout must be positive", ErrInvalidConfig)
	}
	if c.Auth.SignUpCooldown < 0 {
		return fmt.Errorf("%w: auth.signup_cooldown must not be negative", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	for name, o := range c.Auth.OAuth {
		if o.ClientID == "" || o.AuthURL == "" || o.TokenURL == "" {
			return fmt.Errorf("%w: auth.oauth.%s needs client_id, auth_url and token_url", ErrInvalidConfig, name)
		}
	}
	return nil
}
