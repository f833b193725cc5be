// Package config provides Viper-based configuration loading for the stash server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendBoth     = "both"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds the inventory gRPC service settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC listener.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC listener.
	GRPCPort int `mapstructure:"grpc_port"`
	// ShutdownTimeout bounds graceful shutdown before in-flight calls are cut off.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// EngineConfig holds inventory engine settings.
type EngineConfig struct {
	// CatalogDir is the directory of item definition YAML files.
	CatalogDir string `mapstructure:"catalog_dir"`
	// DefaultSlots is the slot count used when a client creates an inventory
	// without specifying one.
	DefaultSlots int `mapstructure:"default_slots"`
	// MaxSlots caps the slot count a client may request.
	MaxSlots int `mapstructure:"max_slots"`
}

// StorageConfig holds snapshot persistence settings.
type StorageConfig struct {
	// Backend selects where snapshots go: "none", "file", "postgres" or "both".
	Backend string `mapstructure:"backend"`
	// Dir is the snapshot directory for the file backend.
	Dir string `mapstructure:"dir"`
	// SnapshotName is the name the server saves and restores its state under.
	SnapshotName string `mapstructure:"snapshot_name"`
	// AutosaveInterval is the period between snapshots; 0 disables autosave.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// UsesFile reports whether snapshots are written to disk.
func (s StorageConfig) UsesFile() bool {
	return s.Backend == BackendFile || s.Backend == BackendBoth
}

// UsesPostgres reports whether snapshots are written to PostgreSQL.
func (s StorageConfig) UsesPostgres() bool {
	return s.Backend == BackendPostgres || s.Backend == BackendBoth
}

// Config is the top-level application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when the storage backend uses PostgreSQL.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Storage.UsesPostgres() {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.ShutdownTimeout < 0 {
		errs = append(errs, "gameserver.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.CatalogDir == "" {
		errs = append(errs, "engine.catalog_dir must not be empty")
	}
	if e.MaxSlots < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_slots must be >= 1, got %d", e.MaxSlots))
	}
	if e.DefaultSlots < 1 || e.DefaultSlots > e.MaxSlots {
		errs = append(errs, fmt.Sprintf("engine.default_slots must be 1-%d, got %d", e.MaxSlots, e.DefaultSlots))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	var errs []string
	validBackends := map[string]bool{BackendNone: true, BackendFile: true, BackendPostgres: true, BackendBoth: true}
	if !validBackends[s.Backend] {
		errs = append(errs, fmt.Sprintf("storage.backend must be one of [none, file, postgres, both], got %q", s.Backend))
	}
	if s.UsesFile() && s.Dir == "" {
		errs = append(errs, "storage.dir must not be empty for the file backend")
	}
	if s.SnapshotName == "" || strings.ContainsAny(s.SnapshotName, `/\`) || strings.HasPrefix(s.SnapshotName, ".") {
		errs = append(errs, fmt.Sprintf("storage.snapshot_name must be a plain name, got %q", s.SnapshotName))
	}
	if s.AutosaveInterval < 0 {
		errs = append(errs, "storage.autosave_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with STASH_ prefix
	v.SetEnvPrefix("STASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the built-in defaults.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "stash")
	v.SetDefault("database.password", "stash")
	v.SetDefault("database.name", "stash")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50061)
	v.SetDefault("gameserver.shutdown_timeout", "10s")

	v.SetDefault("engine.catalog_dir", "content/items")
	v.SetDefault("engine.default_slots", 20)
	v.SetDefault("engine.max_slots", 256)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", "data/snapshots")
	v.SetDefault("storage.snapshot_name", "world")
	v.SetDefault("storage.autosave_interval", "1m")
}
