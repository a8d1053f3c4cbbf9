package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "dsptool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultHDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultUIConfig().Port, cfg.GetUIConfig().Port)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()

	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
tenant:
  host: https://tenant.eu10.hcs.cloud.sap
  client_id: the-client
  client_secret: the-secret
  token_url: https://tenant.authentication.eu10.hana.ondemand.com/oauth/token
database:
  address: tenant.hana.ondemand.com
  user: DBADMIN
  password: hunter2
space: SALES
output: json
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://tenant.eu10.hcs.cloud.sap", cfg.Tenant.Host)
	assert.Equal(t, "the-client", cfg.Tenant.ClientID)
	assert.Equal(t, "tenant.hana.ondemand.com", cfg.Database.Address)
	assert.Equal(t, DefaultHDBPort, cfg.Database.Port)
	assert.Equal(t, "SALES", cfg.Space)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, path, GetConfigFileUsed())
	// The default state path resolves next to the config file.
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	ResetConfig()

	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
tenant:
  host: https://from-file.example
`)
	t.Setenv("DSP_TENANT__HOST", "https://from-env.example")
	t.Setenv("DSP_OUTPUT", "csv")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example", cfg.Tenant.Host)
	assert.Equal(t, "csv", cfg.OutputFormat)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	t.Setenv("DSP_OUTPUT", "csv")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("space", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "table", "--space", "FINANCE", "--state", "/tmp/snapshots.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.OutputFormat, "flag beats env var")
	assert.Equal(t, "FINANCE", cfg.Space)
	assert.Equal(t, "/tmp/snapshots.db", cfg.StatePath, "--state maps to state_path")
}

func TestLoadConfigExpandsSecretRefs(t *testing.T) {
	ResetConfig()

	dir := t.TempDir()
	path := writeConfigFile(t, dir, `
tenant:
  host: https://tenant.example
  client_secret: ${DSPTEST_SECRET}
database:
  address: db.example
  password: ${DSPTEST_DB_PASSWORD}
`)
	t.Setenv("DSPTEST_SECRET", "s3cret")
	t.Setenv("DSPTEST_DB_PASSWORD", "pw")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Tenant.ClientSecret)
	assert.Equal(t, "pw", cfg.Database.Password)
}

func TestValidateTenant(t *testing.T) {
	tests := []struct {
		name      string
		tenant    *TenantConfig
		wantErr   bool
		errSubstr string
	}{
		{
			name:      "nil tenant",
			tenant:    nil,
			wantErr:   true,
			errSubstr: "tenant.host is required",
		},
		{
			name:      "missing host",
			tenant:    &TenantConfig{ClientID: "c"},
			wantErr:   true,
			errSubstr: "tenant.host is required",
		},
		{
			name:      "no credentials",
			tenant:    &TenantConfig{Host: "https://t.example"},
			wantErr:   true,
			errSubstr: "credentials are incomplete",
		},
		{
			name:    "access token alone is enough",
			tenant:  &TenantConfig{Host: "https://t.example", AccessToken: "tok"},
			wantErr: false,
		},
		{
			name: "full oauth client",
			tenant: &TenantConfig{
				Host: "https://t.example", ClientID: "c", ClientSecret: "s", TokenURL: "https://t/oauth/token",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Tenant: tt.tenant}
			err := cfg.ValidateTenant()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDatabase(t *testing.T) {
	tests := []struct {
		name    string
		db      *DatabaseConfig
		wantErr bool
	}{
		{name: "nil database", db: nil, wantErr: true},
		{name: "missing user", db: &DatabaseConfig{Address: "db.example", Port: 443}, wantErr: true},
		{name: "bad port", db: &DatabaseConfig{Address: "db.example", User: "u", Password: "p", Port: 0}, wantErr: true},
		{name: "valid", db: &DatabaseConfig{Address: "db.example", User: "u", Password: "p", Port: 443}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Database: tt.db}
			err := cfg.ValidateDatabase()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
