package config

import (
	"fmt"
	"time"

	"github.com/pipedeck/console/internal/common"
)

const (
	StorageBackendFile   = "file"
	StorageBackendRedis  = "redis"
	StorageBackendMemory = "memory"
)

// Config represents the application configuration structure
type Config struct {
	Identity IdentityConfig `mapstructure:"identity"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	diagnostics *DiagnosticsHook
}

// IdentityConfig points at the remote identity service
type IdentityConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"` // Bound on verification calls without a caller deadline
}

// StorageConfig selects where session credentials are persisted
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // file, redis or memory
	Path    string      `mapstructure:"path"`    // Directory for the file backend
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the dashboard web service
type ServerConfig struct {
	Host     string         `mapstructure:"host"`
	Port     int            `mapstructure:"port"`
	Secret   string         `mapstructure:"secret"` // Secret used for signing session cookies
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Security SecurityConfig `mapstructure:"security"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c *Config) HasIdentityEndpoint() bool {
	return len(c.Identity.Endpoint) > 0
}

// GetIdentityHostname names the storage namespace, so sessions for
// different identity services never collide.
func (c *Config) GetIdentityHostname() string {
	return common.HostnameOf(c.Identity.Endpoint)
}

func (c *Config) GetLocalServerUrl() string {
	host := c.Server.Host
	if len(host) == 0 || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Diagnostics returns the hook recording recent warnings and errors, or nil
// when logging was never set up.
func (c *Config) Diagnostics() *DiagnosticsHook {
	return c.diagnostics
}
