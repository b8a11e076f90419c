package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	AIProvider   string `mapstructure:"ai_provider"` // gemini, openai, anthropic, ollama, lmstudio
	DefaultModel string `mapstructure:"default_model"`
	GeminiKey    string `mapstructure:"gemini_key"`
	OpenAIKey    string `mapstructure:"openai_key"`
	AnthropicKey string `mapstructure:"anthropic_key"`
	OllamaURL    string `mapstructure:"ollama_url"`
	LMStudioURL  string `mapstructure:"lmstudio_url"`
	// Document store
	StoreDriver string `mapstructure:"store_driver"` // sqlite, postgres
	DatabaseURL string `mapstructure:"database_url"`
	DataDir     string `mapstructure:"data_dir"`
	// Sign-in
	AuthSecret    string   `mapstructure:"auth_secret"`
	AllowedEmails []string `mapstructure:"allowed_emails"`
	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// EnvPrefix prefixes environment overrides, e.g. APPLYTRACK_GEMINI_KEY
const EnvPrefix = "APPLYTRACK"

// AllowedEmailsKey is reloaded while the application runs
const AllowedEmailsKey = "allowed_emails"

var AppConfig *Config

var defaults = map[string]any{
	"ai_provider":    "gemini",
	"default_model":  "",
	"gemini_key":     "",
	"openai_key":     "",
	"anthropic_key":  "",
	"ollama_url":     "http://localhost:11434",
	"lmstudio_url":   "http://localhost:1234",
	"store_driver":   "sqlite",
	"database_url":   "",
	"data_dir":       "",
	"auth_secret":    "",
	AllowedEmailsKey: []string{},
	"log_level":      "info",
	"log_format":     "text",
}

// Initialize loads or creates the configuration under ~/.applytrack
func Initialize() error {
	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	return InitializeAt(dir)
}

// DefaultDir is ~/.applytrack
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".applytrack"), nil
}

// InitializeAt loads or creates dir/config.yaml. A .env file in the working
// directory is loaded first so its variables can override the file.
func InitializeAt(dir string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	configFile := filepath.Join(dir, "config.yaml")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	viper.SetDefault("data_dir", dir)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load unmarshals the current viper state
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// APPLYTRACK_ALLOWED_EMAILS arrives as one comma separated string
	cfg.AllowedEmails = splitList(strings.Join(cfg.AllowedEmails, ","))
	return cfg, nil
}

// Viper exposes the loaded configuration for live reloads
func Viper() *viper.Viper {
	return viper.GetViper()
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# applytrack configuration
# AI Provider: gemini, openai, anthropic, ollama, lmstudio
ai_provider: gemini
default_model: ""
ollama_url: http://localhost:11434
lmstudio_url: http://localhost:1234

# API Keys (keep this file secure!)
gemini_key: ""
openai_key: ""
anthropic_key: ""

# Document store: sqlite (file under data_dir) or postgres (database_url)
store_driver: sqlite
database_url: ""

# Sign-in. Only these addresses may use the application; edits apply immediately.
auth_secret: ""
allowed_emails: []

log_level: info
log_format: text
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// Keys lists every known configuration key
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set updates a configuration value
func Set(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if key == AllowedEmailsKey {
		viper.Set(key, splitList(value))
	} else {
		viper.Set(key, value)
	}
	return viper.WriteConfig()
}

// Get retrieves a configuration value
func Get(key string) string {
	if key == AllowedEmailsKey {
		return strings.Join(viper.GetStringSlice(key), ",")
	}
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if f := viper.ConfigFileUsed(); f != "" {
		return f
	}
	dir, _ := DefaultDir()
	return filepath.Join(dir, "config.yaml")
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
