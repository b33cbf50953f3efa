package mssql

import (
	"fmt"

	"github.com/crewstack/crewstack-engine/pkg/config"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromConfig builds a SQL Server adapter config from the datasource section
// of the engine configuration. Only SQL authentication is supported; the
// User field maps to a SQL Server login.
func FromConfig(ds *config.DatasourceConfig) (*Config, error) {
	cfg := &Config{
		Host:              ds.Host,
		Port:              ds.Port,
		Database:          ds.Database,
		Username:          ds.User,
		Password:          ds.Password,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}

	// The YAML field carries postgres-style values ("disable", "require") as
	// well as the mssql ones ("true", "false", "strict").
	switch ds.Encrypt {
	case "true", "strict", "require":
		cfg.Encrypt = true
	default:
		cfg.Encrypt = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the config can produce a usable connection string.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("username is required for SQL authentication")
	}
	return nil
}
