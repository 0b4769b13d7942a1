package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// GracePeriod is how long a disconnected member keeps its seat before
	// the departure takes effect.
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	// MaxMessageBytes caps a single inbound frame, attachments included.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MessageRateLimit is the per-connection inbound frame budget per
	// minute. Zero disables limiting.
	MessageRateLimit int `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	// RejoinSecret signs reconnection tokens. Empty means a random
	// per-process secret.
	RejoinSecret string `mapstructure:"rejoin_secret" yaml:"rejoin_secret"`
	// ProfanityWords configures the masking filter. Empty disables it.
	ProfanityWords []string `mapstructure:"profanity_words" yaml:"profanity_words"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		GracePeriod:       30 * time.Second,
		MaxMessageBytes:   25 << 20, // attachments arrive inline
		MessageRateLimit:  240,
	}
}
