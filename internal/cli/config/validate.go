package config

import "fmt"

// ValidateTenant checks that the REST credentials are usable.
func (c *Config) ValidateTenant() error {
	t := c.Tenant
	if t == nil || t.Host == "" {
		return fmt.Errorf("tenant.host is required\nHint: set it in dsptool.yaml or via DSP_TENANT__HOST")
	}
	if t.AccessToken == "" && (t.ClientID == "" || t.ClientSecret == "" || t.TokenURL == "") {
		return fmt.Errorf("tenant credentials are incomplete: provide access_token, or client_id, client_secret and token_url")
	}
	return nil
}

// ValidateDatabase checks that the SQL connection settings are usable.
func (c *Config) ValidateDatabase() error {
	d := c.Database
	if d == nil || d.Address == "" {
		return fmt.Errorf("database.address is required\nHint: set it in dsptool.yaml or via DSP_DATABASE__ADDRESS")
	}
	if d.User == "" || d.Password == "" {
		return fmt.Errorf("database.user and database.password are required")
	}
	if d.Port <= 0 {
		return fmt.Errorf("database.port must be positive, got %d", d.Port)
	}
	return nil
}
