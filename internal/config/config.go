// Package config loads server configuration from an optional YAML file
// with environment-variable overrides, and applies runtime defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`

	// SQLitePath is the durable store for users, rooms, and messages.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`

	// RedisAddr, when set, moves message history to Redis; the room and
	// user directory stays in SQLite.
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`

	// Rooms is the static, pre-provisioned room set, seeded at startup.
	Rooms []string `yaml:"rooms" env:"ROOMS"`

	MaxConns         int `yaml:"max_conns" env:"MAX_CONNS"`
	SendBuffer       int `yaml:"send_buffer" env:"SEND_BUFFER"`
	MaxMessageLength int `yaml:"max_message_length" env:"MAX_MESSAGE_LENGTH"`
	MaxImageBytes    int `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES"`

	// RetainPerRoom caps Redis message retention per room (0 = unlimited).
	RetainPerRoom int `yaml:"retain_per_room" env:"RETAIN_PER_ROOM"`

	RateLimitMax    int           `yaml:"rate_limit_max" env:"RATE_LIMIT_MAX"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		SQLitePath:       "buzzchat.db",
		Rooms:            []string{"General", "Tech Talk", "Random"},
		MaxConns:         0,
		SendBuffer:       16,
		MaxMessageLength: 2000,
		MaxImageBytes:    1 << 20,
		RetainPerRoom:    1000,
		RateLimitMax:     60,
		RateLimitWindow:  time.Minute,
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (if given), then environment variables, then a sanitize pass.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return sanitize(cfg), nil
}

// sanitize replaces unusable values with defaults.
func sanitize(cfg Config) Config {
	def := Default()

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = def.SQLitePath
	}
	if len(cfg.Rooms) == 0 {
		cfg.Rooms = def.Rooms
	}
	if cfg.MaxConns < 0 {
		cfg.MaxConns = 0
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}
	if cfg.RetainPerRoom < 0 {
		cfg.RetainPerRoom = 0
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = def.RateLimitMax
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	return cfg
}
