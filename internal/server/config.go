// Package server provides the hub options that define runtime defaults,
// validation, and rate-limiting parameters for the pixelplace service.
package server

import (
	"time"

	"github.com/Tyrowin/pixelplace/internal/config"
)

// RateLimitConfig defines the per-session sliding window for mutations.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// Options holds the hub settings including security controls.
type Options struct {
	AllowedOrigins []string
	MaxMessageSize int64
	MaxChatLength  int
	SendBuffer     int
	RateLimit      RateLimitConfig
}

func defaultOptions() Options {
	return Options{
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 1024,
		MaxChatLength:  300,
		SendBuffer:     256,
		RateLimit: RateLimitConfig{
			Limit:  10,
			Window: time.Second,
		},
	}
}

func sanitizeOptions(opts Options) Options {
	def := defaultOptions()

	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.MaxChatLength <= 0 {
		opts.MaxChatLength = def.MaxChatLength
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.RateLimit.Limit <= 0 {
		opts.RateLimit.Limit = def.RateLimit.Limit
	}
	if opts.RateLimit.Window <= 0 {
		opts.RateLimit.Window = def.RateLimit.Window
	}
	opts.AllowedOrigins = append([]string(nil), opts.AllowedOrigins...)
	return opts
}

// DefaultOptions returns Options populated with default values.
func DefaultOptions() Options {
	return defaultOptions()
}

// OptionsFromConfig derives hub options from the process configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return sanitizeOptions(Options{
		AllowedOrigins: cfg.Origins(),
		MaxMessageSize: int64(cfg.MaxMessageSize),
		MaxChatLength:  cfg.MaxChatLength,
		RateLimit: RateLimitConfig{
			Limit:  cfg.RateLimit,
			Window: cfg.RateLimitWindow,
		},
	})
}
