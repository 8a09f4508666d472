package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig contains HTTP/WebSocket server configuration
type ServerConfig struct {
	Port       int    `yaml:"port"`
	Address    string `yaml:"address"`
	PublicHost string `yaml:"public_host"` // externally reachable host for media stream URLs
}

// AudioConfig contains telephony audio parameters
type AudioConfig struct {
	SampleRate   int    `yaml:"sample_rate"`
	FrameBytes   int    `yaml:"frame_bytes"`
	GreetingPath string `yaml:"greeting_path"`
	FollowupPath string `yaml:"followup_path"`
}

// SessionConfig contains per-call session engine configuration
type SessionConfig struct {
	ReplyCooldown float64 `yaml:"reply_cooldown"` // seconds
	GreetingDelay float64 `yaml:"greeting_delay"` // seconds
	IdleTimeout   int     `yaml:"idle_timeout"`   // seconds
	RecordDir     string  `yaml:"record_dir"`
}

// TranscriptionConfig contains the speech recognition API configuration
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// GenerationConfig contains the reply generation subprocess configuration
type GenerationConfig struct {
	Binary  string `yaml:"binary"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds
}

// SynthesisConfig contains the speech synthesis subprocess configuration
type SynthesisConfig struct {
	Binary    string `yaml:"binary"`
	ModelPath string `yaml:"model_path"`
	WorkDir   string `yaml:"work_dir"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// TwilioConfig contains telephony vendor credentials and numbers
type TwilioConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	FromNumber     string `yaml:"from_number"`
	VerifiedNumber string `yaml:"verified_number"` // fallback SMS recipient
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file, then overlays
// credentials and model paths from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv overrides secret-bearing fields from the environment so
// credentials never need to live in the config file.
func (c *Config) applyEnv() {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	overlay(&c.Transcription.APIKey, "OPENAI_API_KEY")
	overlay(&c.Generation.Binary, "OLLAMA_BIN")
	overlay(&c.Generation.Model, "OLLAMA_MODEL")
	overlay(&c.Synthesis.Binary, "PIPER_BIN")
	overlay(&c.Synthesis.ModelPath, "PIPER_MODEL")
	overlay(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	overlay(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	overlay(&c.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	overlay(&c.Twilio.VerifiedNumber, "VERIFIED_NUMBER")
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 8000 {
		return fmt.Errorf("sample_rate must be 8000 Hz for telephony media streams, got %d", a.SampleRate)
	}

	if a.FrameBytes < 160 || a.FrameBytes > 16000 {
		return fmt.Errorf("frame_bytes must be between 160 and 16000, got %d", a.FrameBytes)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.ReplyCooldown <= 0 {
		return fmt.Errorf("reply_cooldown must be positive, got %f", s.ReplyCooldown)
	}

	if s.GreetingDelay < 0 {
		return fmt.Errorf("greeting_delay cannot be negative, got %f", s.GreetingDelay)
	}

	if s.IdleTimeout < 1 {
		return fmt.Errorf("idle_timeout must be at least 1 second, got %d", s.IdleTimeout)
	}

	return nil
}

// Validate validates transcription configuration. Endpoint and API key
// may be empty: the session then treats every utterance as silence
// instead of refusing to start.
func (t *TranscriptionConfig) Validate() error {
	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates generation configuration
func (g *GenerationConfig) Validate() error {
	if g.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", g.Timeout)
	}

	return nil
}

// Validate validates synthesis configuration. A missing model path is
// allowed and disables spoken replies.
func (s *SynthesisConfig) Validate() error {
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReplyCooldown returns the inter-reply cooldown as a time.Duration
func (s *SessionConfig) GetReplyCooldown() time.Duration {
	return time.Duration(s.ReplyCooldown * float64(time.Second))
}

// GetGreetingDelay returns the greeting delay as a time.Duration
func (s *SessionConfig) GetGreetingDelay() time.Duration {
	return time.Duration(s.GreetingDelay * float64(time.Second))
}

// GetIdleTimeout returns the session idle timeout as a time.Duration
func (s *SessionConfig) GetIdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the generation timeout as a time.Duration
func (g *GenerationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
