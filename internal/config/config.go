// Package config loads the deployment configuration file: the backend
// host, credential hook, admin server settings, export storage, and the
// per-table schema correction surface.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/filestore"
	"github.com/koustreak/restadmin/internal/logger"
	"github.com/koustreak/restadmin/internal/schema"
)

// Config is the full deployment configuration.
type Config struct {
	// Host is the base URL of the backend API, e.g. "http://localhost:3000".
	Host string `yaml:"host"`

	// TokenEnv names the environment variable holding the bearer token.
	// The external auth flow may replace the token later via the client's
	// SetToken hook.
	TokenEnv string `yaml:"token_env"`

	// Listen is the admin server's bind address.
	Listen string `yaml:"listen"`

	Log LogConfig `yaml:"log"`

	// Tables is an explicit ordered table list; empty means "all tables in
	// document order".
	Tables []string `yaml:"tables"`

	// Aliases maps presented table names to actual document names.
	Aliases map[string]string `yaml:"aliases"`

	// LabelColumns forces the label column per referenced table.
	LabelColumns map[string]string `yaml:"label_columns"`

	// FormFields restricts, per table, which columns appear on forms.
	FormFields map[string][]string `yaml:"form_fields"`

	Export ExportConfig `yaml:"export"`
}

// LogConfig mirrors logger.Config for the yaml surface.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExportConfig configures the optional export archive storage.
type ExportConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Host:   "http://localhost:3000",
		Listen: ":8080",
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads and validates the yaml configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, fmt.Sprintf("cannot read config %q", path), err)
	}
	return Parse(data)
}

// Parse decodes and validates raw yaml configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, "malformed config", err)
	}
	if cfg.Host == "" {
		return nil, errs.New(errs.ErrKindDecode, "config: host is required")
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	return cfg, nil
}

// Token reads the configured bearer token from the environment. Empty when
// unset — the client reports an auth error on first use, not here.
func (c *Config) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// Overrides assembles the schema decoder's correction surface.
func (c *Config) Overrides() schema.Overrides {
	return schema.Overrides{
		Aliases:      c.Aliases,
		LabelColumns: c.LabelColumns,
		FormFields:   c.FormFields,
		Tables:       c.Tables,
	}
}

// LoggerConfig converts the yaml log settings for logger.New.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}

// StoreConfig converts the export settings for the filestore provider, or
// nil when export archiving is not configured.
func (c *Config) StoreConfig() *filestore.Config {
	if c.Export.Endpoint == "" {
		return nil
	}
	cfg := filestore.DefaultConfig(c.Export.Endpoint, c.Export.AccessKey, c.Export.SecretKey)
	cfg.UseSSL = c.Export.UseSSL
	if c.Export.Bucket != "" {
		cfg.Bucket = c.Export.Bucket
	}
	return cfg
}
