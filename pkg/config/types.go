package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Server        ServerConfig        `mapstructure:"server"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Oembed        OembedConfig        `mapstructure:"oembed"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Recognition   RecognitionConfig   `mapstructure:"recognition"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Playback      PlaybackConfig      `mapstructure:"playback"`
	Dictation     DictationConfig     `mapstructure:"dictation"`
	Security      SecurityConfig      `mapstructure:"security"`
	RateLimiting  RateLimitConfig     `mapstructure:"rate_limiting"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// BackendConfig points at the remote processing backend
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// OembedConfig contains the metadata lookup endpoint
type OembedConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// TranscriptionConfig bounds the transcription wait
type TranscriptionConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Stream       bool          `mapstructure:"stream"`
}

// RecognitionConfig contains the live recognition service settings
type RecognitionConfig struct {
	WSURL            string        `mapstructure:"ws_url"`
	Language         string        `mapstructure:"language"`
	SampleRate       int           `mapstructure:"sample_rate"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// DatabaseConfig contains session store settings
type DatabaseConfig struct {
	DSN     string `mapstructure:"dsn"`
	Verbose bool   `mapstructure:"verbose"`
}

// PlaybackConfig tunes the auto-scroll hysteresis
type PlaybackConfig struct {
	MinIndexJump   int           `mapstructure:"min_index_jump"`
	ScrollCooldown time.Duration `mapstructure:"scroll_cooldown"`
	ScrollDelay    time.Duration `mapstructure:"scroll_delay"`
}

// DictationConfig tunes the dictation session
type DictationConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Bars        int           `mapstructure:"bars"`
}

// SecurityConfig contains CORS settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	CORSMethods []string `mapstructure:"cors_methods"`
	CORSHeaders []string `mapstructure:"cors_headers"`
}

// RateLimitConfig contains per-endpoint rate limits (requests per minute)
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}
