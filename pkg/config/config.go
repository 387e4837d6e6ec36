package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("VIDLY")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("backend.base_url") == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}

	// Auto-correct degenerate poll bounds: an unbounded wait would let a
	// poll loop outlive the pipeline's terminal transition.
	if viper.GetInt("transcription.max_attempts") <= 0 {
		viper.Set("transcription.max_attempts", 60)
	}
	if viper.GetDuration("transcription.poll_interval") <= 0 {
		viper.Set("transcription.poll_interval", 5*time.Second)
	}

	if viper.GetInt("dictation.bars") <= 0 {
		viper.Set("dictation.bars", 48)
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}

	if c.Transcription.MaxAttempts <= 0 {
		c.Transcription.MaxAttempts = 60
	}
	if c.Transcription.PollInterval <= 0 {
		c.Transcription.PollInterval = 5 * time.Second
	}
	if c.Dictation.Bars <= 0 {
		c.Dictation.Bars = 48
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Processing backend defaults
	viper.SetDefault("backend.base_url", "http://localhost:8002")
	viper.SetDefault("backend.timeout", 30*time.Second)
	viper.SetDefault("backend.user_agent", "Vidly/1.0")

	// Metadata lookup defaults
	viper.SetDefault("oembed.base_url", "https://www.youtube.com/oembed")

	// Transcription wait defaults
	viper.SetDefault("transcription.poll_interval", 5*time.Second)
	viper.SetDefault("transcription.max_attempts", 60)
	viper.SetDefault("transcription.stream", false)

	// Live recognition defaults
	viper.SetDefault("recognition.ws_url", "ws://localhost:8003/recognize")
	viper.SetDefault("recognition.language", "en-US")
	viper.SetDefault("recognition.sample_rate", 16000)
	viper.SetDefault("recognition.handshake_timeout", 10*time.Second)

	// Database defaults
	viper.SetDefault("database.dsn", "file::memory:?cache=shared")
	viper.SetDefault("database.verbose", false)

	// Playback sync defaults
	viper.SetDefault("playback.min_index_jump", 2)
	viper.SetDefault("playback.scroll_cooldown", 1*time.Second)
	viper.SetDefault("playback.scroll_delay", 100*time.Millisecond)

	// Dictation defaults
	viper.SetDefault("dictation.settle_delay", 800*time.Millisecond)
	viper.SetDefault("dictation.bars", 48)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization"})

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"videos":    30,
		"chat":      30,
		"playback":  600,
		"sessions":  120,
		"dictation": 60,
		"default":   120,
	})
}
