// Package config provides the runtime configuration for the pixelplace
// server: defaults, environment loading, and sanitising of invalid values.
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	defaultPort            = 8080
	defaultStaticDir       = "./public"
	defaultStorage         = "file:data/place.json"
	defaultAllowedOrigins  = "*"
	defaultMaxMessageSize  = 1024
	defaultRateLimit       = 10
	defaultRateLimitWindow = time.Second
	defaultSaveInterval    = 5 * time.Second
	defaultBoardSize       = 128
	defaultChatHistory     = 100
	defaultMaxNameLength   = 24
	defaultMaxChatLength   = 300
	defaultCensorChar      = "*"
	defaultLogLevel        = "INFO"
)

// Config holds the server configuration settings. Field tags bind each
// setting to its environment variable.
type Config struct {
	Port            int           `env:"PORT"`
	StaticDir       string        `env:"STATIC_DIR"`
	Storage         string        `env:"STORAGE"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize  int           `env:"MAX_MESSAGE_SIZE"`
	RateLimit       int           `env:"RATE_LIMIT"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW"`
	SaveInterval    time.Duration `env:"SAVE_INTERVAL"`
	BoardWidth      int           `env:"BOARD_WIDTH"`
	BoardHeight     int           `env:"BOARD_HEIGHT"`
	ChatHistory     int           `env:"CHAT_HISTORY"`
	MaxNameLength   int           `env:"MAX_NAME_LENGTH"`
	MaxChatLength   int           `env:"MAX_CHAT_LENGTH"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CensorChar      string        `env:"CENSOR_CHAR"`
	LogLevel        string        `env:"LOG_LEVEL"`
}

// Default returns a Config populated with default values for all settings.
func Default() Config {
	return Config{
		Port:            defaultPort,
		StaticDir:       defaultStaticDir,
		Storage:         defaultStorage,
		AllowedOrigins:  defaultAllowedOrigins,
		MaxMessageSize:  defaultMaxMessageSize,
		RateLimit:       defaultRateLimit,
		RateLimitWindow: defaultRateLimitWindow,
		SaveInterval:    defaultSaveInterval,
		BoardWidth:      defaultBoardSize,
		BoardHeight:     defaultBoardSize,
		ChatHistory:     defaultChatHistory,
		MaxNameLength:   defaultMaxNameLength,
		MaxChatLength:   defaultMaxChatLength,
		CensorChar:      defaultCensorChar,
		LogLevel:        defaultLogLevel,
	}
}

// FromEnv loads an optional .env file, then reads the process environment.
// Unset or invalid values fall back to defaults.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return Sanitize(cfg), nil
}

// Sanitize replaces zero or invalid values with their defaults.
func Sanitize(cfg Config) Config {
	def := Default()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = def.Port
	}
	if strings.TrimSpace(cfg.StaticDir) == "" {
		cfg.StaticDir = def.StaticDir
	}
	if strings.TrimSpace(cfg.Storage) == "" {
		cfg.Storage = def.Storage
	}
	if strings.TrimSpace(cfg.AllowedOrigins) == "" {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = def.SaveInterval
	}
	if cfg.BoardWidth <= 0 {
		cfg.BoardWidth = def.BoardWidth
	}
	if cfg.BoardHeight <= 0 {
		cfg.BoardHeight = def.BoardHeight
	}
	if cfg.ChatHistory <= 0 {
		cfg.ChatHistory = def.ChatHistory
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = def.MaxNameLength
	}
	if cfg.MaxChatLength <= 0 {
		cfg.MaxChatLength = def.MaxChatLength
	}
	if len([]rune(cfg.CensorChar)) != 1 {
		cfg.CensorChar = def.CensorChar
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CensorRune returns the mask character used for redaction.
func (c Config) CensorRune() rune {
	r := []rune(c.CensorChar)
	if len(r) != 1 {
		return '*'
	}
	return r[0]
}

// Words returns the configured forbidden substrings, or nil when the
// embedded default list should be used.
func (c Config) Words() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	return splitList(c.CensoredWords)
}

// Origins returns the websocket origin allow-list.
func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(value string) []string {
	parts := lo.Map(strings.Split(value, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Uniq(lo.Compact(parts))
}
