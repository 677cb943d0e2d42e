package config

import (
	"time"
)

// Config is the root application configuration, shared by the hrds client
// CLI and the registryd development server. Each binary validates only the
// sections it uses.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ClientConfig holds settings for the client core (session manager,
// registry client, record repository).
type ClientConfig struct {
	ServerURL       string        `yaml:"server_url"       env:"HRDS_SERVER_URL"       env-default:"http://localhost:3000"`
	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"HRDS_REQUEST_TIMEOUT"  env-default:"15s"`
	CredentialsPath string        `yaml:"credentials_path" env:"HRDS_CREDENTIALS_PATH"`
}

// ServerConfig holds registryd HTTP server and storage settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"REGISTRYD_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"REGISTRYD_PORT"             env-default:"3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"REGISTRYD_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"REGISTRYD_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"REGISTRYD_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"REGISTRYD_SHUTDOWN_TIMEOUT" env-default:"10s"`
	DBPath          string        `yaml:"db_path"          env:"REGISTRYD_DB_PATH"          env-default:"registryd.db"`
	JWTSecret       string        `yaml:"jwt_secret"       env:"REGISTRYD_JWT_SECRET"`
	JWTIssuer       string        `yaml:"jwt_issuer"       env:"REGISTRYD_JWT_ISSUER"       env-default:"hrds-registryd"`
	SessionTTL      time.Duration `yaml:"session_ttl"      env:"REGISTRYD_SESSION_TTL"      env-default:"12h"`
	GoogleClientID  string        `yaml:"google_client_id" env:"REGISTRYD_GOOGLE_CLIENT_ID"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
