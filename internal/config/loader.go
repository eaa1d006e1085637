package config

import (
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/lncpro/rosteraudit/internal/db"
	"github.com/lncpro/rosteraudit/internal/domain"
)

// Config is the full application configuration.
type Config struct {
	Database   db.Config
	Server     ServerConfig
	Validation ValidationConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr           string
	MigrationsPath string
}

// ValidationConfig holds the audit tuning knobs.
type ValidationConfig struct {
	FuzzyThreshold float64
	LicenseMaxAge  time.Duration
}

// Load reads config.yaml from configPath, with environment overrides
// (ROSTERAUDIT_DATABASE_HOST and friends). Missing file means defaults.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("ROSTERAUDIT")

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("server.migrations_path")
	v.BindEnv("validation.fuzzy_threshold")
	v.BindEnv("validation.license_max_age_hours")

	if err := v.ReadInConfig(); err != nil {
		log.Println("[config] no config.yaml found, using defaults and env vars")
	} else {
		log.Printf("[config] loaded %s", v.ConfigFileUsed())
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}
	if v.IsSet("validation.fuzzy_threshold") {
		cfg.Validation.FuzzyThreshold = v.GetFloat64("validation.fuzzy_threshold")
	}
	if v.IsSet("validation.license_max_age_hours") {
		cfg.Validation.LicenseMaxAge = time.Duration(v.GetInt("validation.license_max_age_hours")) * time.Hour
	}

	return cfg, nil
}

// Default returns the configuration used when nothing is provided.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			MigrationsPath: "migrations",
		},
		Validation: ValidationConfig{
			FuzzyThreshold: domain.DefaultFuzzyThreshold,
			LicenseMaxAge:  7 * 24 * time.Hour,
		},
	}
}
