package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
// This key is shared with the cli package via LoggerKey.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > dsptool.yaml > dsptool.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("dsptool.yaml"); err == nil {
		return "dsptool.yaml"
	}
	if _, err := os.Stat("dsptool.yml"); err == nil {
		return "dsptool.yml"
	}
	return ""
}

// configExistsIn checks if a dsptool config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"dsptool.yaml", "dsptool.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findConfigDirUpward searches upward from startDir for a dsptool config
// file. Returns empty string if not found within maxUpwardSearchLevels.
func findConfigDirUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":    DefaultStateFile,
		"output":        DefaultOutput,
		"verbose":       false,
		"database.port": DefaultHDBPort,
		"ui.port":       DefaultUIConfig().Port,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file, searching upward when none is given
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			if dir := findConfigDirUpward(cwd); dir != "" {
				for _, name := range []string{"dsptool.yaml", "dsptool.yml"} {
					candidate := filepath.Join(dir, name)
					if _, err := os.Stat(candidate); err == nil {
						cfgFile = candidate
						break
					}
				}
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (DSP_ prefix)
	// Transform: DSP_TENANT__CLIENT_ID -> tenant.client_id
	if err := k.Load(env.Provider("DSP_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "DSP_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --state for brevity, the config key is state_path
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Expand ${VAR} references in credentials so secrets can stay out of
	// the config file.
	expandTenantEnvVars(cfg.Tenant)
	expandDatabaseEnvVars(cfg.Database)

	// Resolve the state path relative to the config file's directory.
	if cfg.StatePath != "" && !filepath.IsAbs(cfg.StatePath) && configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.StatePath = filepath.Join(filepath.Dir(abs), cfg.StatePath)
		}
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger. This lets
// the commands package retrieve the logger from context without an import
// cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

func expandTenantEnvVars(t *TenantConfig) {
	if t == nil {
		return
	}
	t.Host = expandEnvVars(t.Host)
	t.TokenURL = expandEnvVars(t.TokenURL)
	t.ClientID = expandEnvVars(t.ClientID)
	t.ClientSecret = expandEnvVars(t.ClientSecret)
	t.AccessToken = expandEnvVars(t.AccessToken)
	t.RefreshToken = expandEnvVars(t.RefreshToken)
}

func expandDatabaseEnvVars(d *DatabaseConfig) {
	if d == nil {
		return
	}
	d.Address = expandEnvVars(d.Address)
	d.User = expandEnvVars(d.User)
	d.Password = expandEnvVars(d.Password)
}
