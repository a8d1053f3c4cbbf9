// Package config provides configuration management for the dsptool CLI.
//
// Settings layer in the usual order: defaults, then dsptool.yaml, then
// DSP_-prefixed environment variables, then flags.
package config

// TenantConfig holds the Datasphere tenant connection settings.
type TenantConfig struct {
	Host         string `koanf:"host"`
	TokenURL     string `koanf:"token_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`
}

// DatabaseConfig holds the HANA SQL connection settings.
type DatabaseConfig struct {
	Address  string `koanf:"address"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port: 8712,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset
// values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = 8712
	}
	return ui
}

// Config holds all CLI configuration options.
type Config struct {
	Tenant       *TenantConfig   `koanf:"tenant"`
	Database     *DatabaseConfig `koanf:"database"`
	StatePath    string          `koanf:"state_path"`
	Space        string          `koanf:"space"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	UI           *UIConfig       `koanf:"ui"`
}

// Default configuration values.
const (
	DefaultStateFile = ".dsptool/snapshots.db"
	DefaultOutput    = "table"
	DefaultHDBPort   = 443
)
