package config

import (
	"fmt"
	"net/url"
)

// ValidateClient performs business-rule validation on the client section.
// The hrds CLI calls it after loading.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Client.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("client.server_url must be an absolute URL (got %q)", c.Client.ServerURL)
	}
	if c.Client.RequestTimeout <= 0 {
		return fmt.Errorf("client.request_timeout must be > 0 (got %v)", c.Client.RequestTimeout)
	}
	return nil
}

// ValidateServer performs business-rule validation on the registryd section.
func (c *Config) ValidateServer() error {
	if len(c.Server.JWTSecret) < 32 {
		return fmt.Errorf("server.jwt_secret must be at least 32 characters (got %d)", len(c.Server.JWTSecret))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be > 0 (got %v)", c.Server.SessionTTL)
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("server.db_path must not be empty")
	}
	return nil
}
