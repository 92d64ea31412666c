package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"interlink/internal/core"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Database Database `mapstructure:"database"`
	Linking  Linking  `mapstructure:"linking"`
	Server   Server   `mapstructure:"server"`
	PostHog  PostHog  `mapstructure:"posthog"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug     bool   `mapstructure:"debug"`
	ReportDir string `mapstructure:"report_dir"`
}

// AI holds judgment service configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// Database selects and configures the content store
type Database struct {
	Driver          string `mapstructure:"driver"` // postgres or sqlite
	URL             string `mapstructure:"url"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

// Linking holds the tunables of the linking pipeline
type Linking struct {
	URLPattern           string   `mapstructure:"url_pattern"`
	SuggestionsLimit     int      `mapstructure:"suggestions_limit"`
	MaxSuggestions       int      `mapstructure:"max_suggestions"`
	MinCatalogSize       int      `mapstructure:"min_catalog_size"`
	MinRelevance         int      `mapstructure:"min_relevance"`
	ContextRadius        int      `mapstructure:"context_radius"`
	ContextSnippetLength int      `mapstructure:"context_snippet_length"`
	ScoringTimeout       string   `mapstructure:"scoring_timeout"`
	ValidationTimeout    string   `mapstructure:"validation_timeout"`
	URLValidationTimeout string   `mapstructure:"url_validation_timeout"`
	URLCheckConcurrency  int      `mapstructure:"url_check_concurrency"`
	GenericAnchors       []string `mapstructure:"generic_anchors"`
}

// Server holds HTTP API configuration
type Server struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	RequestTimeout string   `mapstructure:"request_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AdminAPIKey    string   `mapstructure:"admin_api_key"` // Guards mutating endpoints; empty disables them
}

// PostHog holds product analytics configuration
type PostHog struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
}

// Metrics holds Prometheus exposition configuration
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".interlink")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.report_dir", "reports")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.temperature", 0.2)

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.sqlite_path", ".interlink/interlink.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	viper.SetDefault("linking.url_pattern", "/blog/{slug}")
	viper.SetDefault("linking.suggestions_limit", 8)
	viper.SetDefault("linking.max_suggestions", 15)
	viper.SetDefault("linking.min_catalog_size", 3)
	viper.SetDefault("linking.min_relevance", 8)
	viper.SetDefault("linking.context_radius", 150)
	viper.SetDefault("linking.context_snippet_length", 100)
	viper.SetDefault("linking.scoring_timeout", "30s")
	viper.SetDefault("linking.validation_timeout", "30s")
	viper.SetDefault("linking.url_validation_timeout", "10s")
	viper.SetDefault("linking.url_check_concurrency", 8)

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.request_timeout", "90s")
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("posthog.enabled", false)
	viper.SetDefault("posthog.host", "https://us.i.posthog.com")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("database.url", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("linking.url_pattern", []string{
		"INTERNAL_LINK_PATTERN",
	})

	bindEnvKeys("server.admin_api_key", []string{
		"ADMIN_API_KEY",
	})

	bindEnvKeys("posthog.api_key", []string{
		"POSTHOG_API_KEY",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"INTERLINK_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Database.SQLitePath != "" {
		config.Database.SQLitePath = expandPath(config.Database.SQLitePath)
	}
	if config.App.ReportDir != "" {
		config.App.ReportDir = expandPath(config.App.ReportDir)
	}

	durations := map[string]string{
		"database.conn_max_lifetime":     config.Database.ConnMaxLifetime,
		"linking.scoring_timeout":        config.Linking.ScoringTimeout,
		"linking.validation_timeout":     config.Linking.ValidationTimeout,
		"linking.url_validation_timeout": config.Linking.URLValidationTimeout,
		"server.request_timeout":         config.Server.RequestTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is coherent
func validateConfig(config *Config) error {
	var errors []string

	switch config.Database.Driver {
	case "postgres":
		// DATABASE_URL is only required by commands that open the store
	case "sqlite":
		if config.Database.SQLitePath == "" {
			errors = append(errors, "database.sqlite_path is required when database.driver is sqlite")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown database driver: %s. Supported: postgres, sqlite", config.Database.Driver))
	}

	if !strings.Contains(config.Linking.URLPattern, "{slug}") {
		errors = append(errors, fmt.Sprintf("linking.url_pattern %q must contain {slug}", config.Linking.URLPattern))
	}

	if config.Linking.MaxSuggestions > 0 && config.Linking.SuggestionsLimit > config.Linking.MaxSuggestions {
		errors = append(errors, "linking.suggestions_limit cannot exceed linking.max_suggestions")
	}

	if config.PostHog.Enabled && config.PostHog.APIKey == "" {
		errors = append(errors, "PostHog is enabled but no API key is set. Set POSTHOG_API_KEY or posthog.api_key")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App           { return Get().App }
func GetAI() AI             { return Get().AI }
func GetDatabase() Database { return Get().Database }
func GetLinking() Linking   { return Get().Linking }
func GetServer() Server     { return Get().Server }
func GetPostHog() PostHog   { return Get().PostHog }
func GetMetrics() Metrics   { return Get().Metrics }
func GetLogging() Logging   { return Get().Logging }

func GetGeminiAPIKey() string { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string  { return Get().AI.Gemini.Model }
func IsDebugMode() bool       { return Get().App.Debug }

// LinkSettings maps the linking section onto the pipeline settings.
func (l Linking) LinkSettings() core.Settings {
	return core.Settings{
		URLPattern:           l.URLPattern,
		SuggestionLimit:      l.SuggestionsLimit,
		MaxSuggestions:       l.MaxSuggestions,
		MinCatalogSize:       l.MinCatalogSize,
		MinRelevanceScore:    l.MinRelevance,
		ContextRadius:        l.ContextRadius,
		ContextSnippetLength: l.ContextSnippetLength,
		ScoringTimeout:       parseDuration(l.ScoringTimeout),
		ValidationTimeout:    parseDuration(l.ValidationTimeout),
		GenericAnchors:       l.GenericAnchors,
	}.WithDefaults()
}

// URLCheckTimeout returns the per-request timeout for URL validation.
func (l Linking) URLCheckTimeout() time.Duration {
	if d := parseDuration(l.URLValidationTimeout); d > 0 {
		return d
	}
	return 10 * time.Second
}

// ConnLifetime returns the parsed connection lifetime, zero when unset.
func (d Database) ConnLifetime() time.Duration {
	return parseDuration(d.ConnMaxLifetime)
}

// Timeout returns the parsed per-request timeout of the HTTP API.
func (s Server) Timeout() time.Duration {
	if d := parseDuration(s.RequestTimeout); d > 0 {
		return d
	}
	return 90 * time.Second
}

// parseDuration returns zero for empty or invalid values; Load already
// rejected invalid ones.
func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
