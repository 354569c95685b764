// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token service) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for revocation markers and permission snapshots.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Permission cache miss policies.
const (
	MissPolicyZero      = "zero"
	MissPolicyRecompute = "recompute"
)

// # Configuration Schema

// Config holds all runtime configuration for the admin API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"3000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// StoreBackend selects where revocation markers and permission snapshots live.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// MemoryStoreSize bounds the in-memory backends (entries per store).
	MemoryStoreSize int `env:"MEMORY_STORE_SIZE" envDefault:"100000"`

	// Token signing
	JWTSecret    string `env:"JWT_SECRET,required,notEmpty,unset"`
	JWTIssuer    string `env:"JWT_ISSUER"     envDefault:"merchant-admin"`
	JWTExpiresIn string `env:"JWT_EXPIRES_IN" envDefault:"7d"`

	// Permission snapshot caching
	PermissionCacheTTL        string `env:"PERMISSION_CACHE_TTL"         envDefault:"7d"`
	PermissionCacheMissPolicy string `env:"PERMISSION_CACHE_MISS_POLICY" envDefault:"zero"`

	// RevocationFallbackTTL is used when a token's expiry cannot be read.
	// Empty means "same as the token lifetime".
	RevocationFallbackTTL string `env:"REVOCATION_FALLBACK_TTL"`

	// LoginRateLimitRPS throttles credential checks per client IP.
	LoginRateLimitRPS float64 `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"1"`

	// Cross-Origin Resource Sharing
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	// TrustedProxyCIDRs lists the reverse proxies whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty trusts no one.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXIES"`

	tokenTTL           time.Duration
	permissionCacheTTL time.Duration
	revocationTTL      time.Duration
	trustedProxies     []netip.Prefix
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate resolves duration strings and checks enumerated settings.
func (c *Config) validate() error {
	var err error

	if c.tokenTTL, err = ParseDuration(c.JWTExpiresIn); err != nil {
		return fmt.Errorf("config: JWT_EXPIRES_IN: %w", err)
	}
	if c.permissionCacheTTL, err = ParseDuration(c.PermissionCacheTTL); err != nil {
		return fmt.Errorf("config: PERMISSION_CACHE_TTL: %w", err)
	}

	c.revocationTTL = c.tokenTTL
	if c.RevocationFallbackTTL != "" {
		if c.revocationTTL, err = ParseDuration(c.RevocationFallbackTTL); err != nil {
			return fmt.Errorf("config: REVOCATION_FALLBACK_TTL: %w", err)
		}
	}

	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, c.StoreBackend)
	}

	switch c.PermissionCacheMissPolicy {
	case MissPolicyZero, MissPolicyRecompute:
	default:
		return fmt.Errorf("config: PERMISSION_CACHE_MISS_POLICY must be %q or %q, got %q",
			MissPolicyZero, MissPolicyRecompute, c.PermissionCacheMissPolicy)
	}

	if c.MemoryStoreSize <= 0 {
		return fmt.Errorf("config: MEMORY_STORE_SIZE must be positive")
	}

	c.trustedProxies = nil
	for _, entry := range c.TrustedProxyCIDRs {
		prefix, err := parseProxy(entry)
		if err != nil {
			return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		c.trustedProxies = append(c.trustedProxies, prefix)
	}

	return nil
}

// TokenTTL returns the parsed token lifetime.
func (c *Config) TokenTTL() time.Duration { return c.tokenTTL }

// PermissionTTL returns the parsed permission snapshot lifetime.
func (c *Config) PermissionTTL() time.Duration { return c.permissionCacheTTL }

// RevocationTTL returns the upper-bound TTL for markers of unreadable tokens.
func (c *Config) RevocationTTL() time.Duration { return c.revocationTTL }

// MaxMarkerTTL returns the longest lifetime any revocation marker can need.
// It covers both a full token lifetime and the fallback TTL.
func (c *Config) MaxMarkerTTL() time.Duration { return max(c.tokenTTL, c.revocationTTL) }

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the comma-separated CORS_ORIGIN entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// TrustedProxies returns the parsed TRUSTED_PROXIES networks.
func (c *Config) TrustedProxies() []netip.Prefix { return c.trustedProxies }

// parseProxy accepts a CIDR block or a single address.
func parseProxy(entry string) (netip.Prefix, error) {
	entry = strings.TrimSpace(entry)
	if prefix, err := netip.ParsePrefix(entry); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid proxy address %q", entry)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Diagnostics reports whether 5xx responses may include the internal cause.
// It is never enabled in production.
func (c *Config) Diagnostics() bool {
	return c.Debug && !c.IsProduction()
}

// ParseDuration accepts Go duration strings plus a whole-day suffix ("7d").
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if days, ok := strings.CutSuffix(value, "d"); ok {
		count, err := strconv.Atoi(days)
		if err != nil || count <= 0 {
			return 0, fmt.Errorf("invalid day duration %q", value)
		}
		return time.Duration(count) * 24 * time.Hour, nil
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", value)
	}
	return duration, nil
}
