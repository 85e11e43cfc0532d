package app

import (
	"strings"

	"github.com/mysite19/mysite/internal/database"
)

// DatabaseSettings converts the database section into database.Config for the selected driver.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var host DBAuthConfig
	switch cfg.Driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
		return cfg
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		host = c.Postgres
	case "mysql", "mariadb":
		cfg.Driver = "mysql"
		host = c.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return cfg
	}

	cfg.Host = strings.TrimSpace(host.Host)
	cfg.Port = host.Port
	cfg.Name = strings.TrimSpace(host.Database)
	cfg.User = strings.TrimSpace(host.Username)
	cfg.Password = host.Password
	cfg.Options = host.Options
	return cfg
}
