package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite file path; empty or ":memory:" opens an in-memory database
	DSN      string // overrides every other connection field
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string

	// Logger receives GORM's SQL log. Nil silences it.
	Logger gormlogger.Interface
}

// Open initialises a gorm.DB for the configured driver.
func Open(cfg Config) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}

	gormCfg := &gorm.Config{Logger: cfg.Logger}
	if gormCfg.Logger == nil {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	switch driver {
	case "sqlite":
		return openSQLite(cfg, gormCfg)
	case "postgres", "postgresql":
		return openPostgres(cfg, gormCfg)
	case "mysql", "mariadb":
		return openMySQL(cfg, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// AutoMigrateAndSeed migrates the schema and inserts permissions and default groups.
func AutoMigrateAndSeed(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := SeedData(db); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
