package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

var ErrNoIdentityEndpoint = errors.New(
	"no identity endpoint configured. Set identity.endpoint or PIPEDECK_IDENTITY_ENDPOINT")

func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		// defaults are static, this can only fail on a programming error
		panic(fmt.Sprintf("error unmarshaling default config: %v", err))
	}

	return &config
}

// Load loads the configuration from the config file, .env and the
// environment, then configures logging.
func Load(configFile string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setupViperConfig(v, configFile)
	bindEnvironmentVariables(v)

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() {
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}
}

func setupViperConfig(v *viper.Viper, configFile string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pipedeck")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pipedeck"))
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix("PIPEDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
}

// bindEnvironmentVariables binds the variables AutomaticEnv cannot discover
// on its own during Unmarshal
func bindEnvironmentVariables(v *viper.Viper) {
	v.BindEnv("identity.endpoint", "PIPEDECK_IDENTITY_ENDPOINT")
	v.BindEnv("identity.timeout", "PIPEDECK_IDENTITY_TIMEOUT")

	v.BindEnv("storage.backend", "PIPEDECK_STORAGE_BACKEND")
	v.BindEnv("storage.path", "PIPEDECK_STORAGE_PATH")
	v.BindEnv("storage.redis.addr", "PIPEDECK_STORAGE_REDIS_ADDR")
	v.BindEnv("storage.redis.password", "PIPEDECK_STORAGE_REDIS_PASSWORD")
	v.BindEnv("storage.redis.db", "PIPEDECK_STORAGE_REDIS_DB")
	v.BindEnv("storage.redis.prefix", "PIPEDECK_STORAGE_REDIS_PREFIX")

	v.BindEnv("server.host", "PIPEDECK_SERVER_HOST")
	v.BindEnv("server.port", "PIPEDECK_SERVER_PORT", "PORT")
	v.BindEnv("server.secret", "PIPEDECK_SERVER_SECRET")

	v.BindEnv("logging.level", "PIPEDECK_LOGGING_LEVEL")
	v.BindEnv("logging.format", "PIPEDECK_LOGGING_FORMAT")
}

func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// installDiagnosticsHook swaps any diagnostics hook left by an earlier Load
// for the given one. Other hooks stay registered.
func installDiagnosticsHook(logger *logrus.Logger, hook *DiagnosticsHook) {
	hooks := make(logrus.LevelHooks)
	for level, registered := range logger.Hooks {
		for _, existing := range registered {
			if _, ok := existing.(*DiagnosticsHook); ok {
				continue
			}
			hooks[level] = append(hooks[level], existing)
		}
	}
	hooks.Add(hook)
	logger.ReplaceHooks(hooks)
}

func setupLogging(config *Config, v *viper.Viper) error {
	level, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(level)

	config.diagnostics = NewDiagnosticsHook(defaultDiagnosticsSize)
	installDiagnosticsHook(logrus.StandardLogger(), config.diagnostics)

	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format": config.Logging.Format,
		}).Warn("Unknown log format")
	}

	if level >= logrus.DebugLevel {
		for key, value := range v.AllSettings() {
			if strings.Contains(key, "secret") || strings.Contains(key, "password") {
				continue
			}
			logrus.Debugf("Config '%s': %v", key, value)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Identity service defaults
	v.SetDefault("identity.endpoint", "")
	v.SetDefault("identity.timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.backend", StorageBackendFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "pipedeck:session")
	v.SetDefault("storage.redis.timeout", "2s")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5230)
	v.SetDefault("server.secret", "")
	v.SetDefault("server.metrics.enabled", true)
	v.SetDefault("server.metrics.path", "/metrics")
	v.SetDefault("server.security.allowed_origins", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}
