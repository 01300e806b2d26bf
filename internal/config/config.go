// ABOUTME: Configuration loading and parsing for todo-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left unset.
const (
	DefaultPageLimit             = 15
	DefaultStreamBuffer          = 64
	DefaultIdempotencyTTL        = 10 * time.Minute
	DefaultIdempotencyMaxEntries = 10000
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"

	// MinJWTSecretLength mirrors auth.MinSecretLength.
	MinJWTSecretLength = 32
)

// Config represents the complete todo-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Records   RecordsConfig   `yaml:"records" toml:"records"`
	Events    EventsConfig    `yaml:"events" toml:"events"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve HTTP on :443 with tailnet certificates
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Expose HTTP publicly via Funnel (implies HTTPS)
}

// DatabaseConfig holds the event ledger location
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret           string `yaml:"jwt_secret" toml:"jwt_secret"`
	SSHEnabled          bool   `yaml:"ssh_enabled" toml:"ssh_enabled"`
	TrustIdentityHeader bool   `yaml:"trust_identity_header" toml:"trust_identity_header"`
}

// RecordsConfig holds the initial record store settings
type RecordsConfig struct {
	Owner                   string `yaml:"owner" toml:"owner"`
	BoundAdminReadsByTarget bool   `yaml:"bound_admin_reads_by_target" toml:"bound_admin_reads_by_target"`

	// PageLimit is resolved from PageLimitRaw; zero is a legal explicit value.
	PageLimit    uint64  `yaml:"-" toml:"-"`
	PageLimitRaw *uint64 `yaml:"page_limit" toml:"page_limit"`
}

// EventsConfig holds live feed and idempotency settings
type EventsConfig struct {
	StreamBuffer          int           `yaml:"stream_buffer" toml:"stream_buffer"`
	IdempotencyMaxEntries int           `yaml:"idempotency_max_entries" toml:"idempotency_max_entries"`
	IdempotencyTTL        time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	IdempotencyTTLRaw string `yaml:"idempotency_ttl" toml:"idempotency_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.Records.PageLimitRaw != nil {
		c.Records.PageLimit = *c.Records.PageLimitRaw
	} else {
		c.Records.PageLimit = DefaultPageLimit
	}
	c.Records.Owner = strings.TrimSpace(c.Records.Owner)

	if c.Events.StreamBuffer <= 0 {
		c.Events.StreamBuffer = DefaultStreamBuffer
	}
	if c.Events.IdempotencyTTL == 0 {
		c.Events.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if c.Events.IdempotencyMaxEntries <= 0 {
		c.Events.IdempotencyMaxEntries = DefaultIdempotencyMaxEntries
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Tailscale.Funnel {
		c.Tailscale.HTTPS = true
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server addresses are required unless Tailscale is enabled
	if !c.Tailscale.Enabled {
		if c.Server.GRPCAddr == "" {
			return fmt.Errorf("server.grpc_addr is required (or enable tailscale)")
		}
		if c.Server.HTTPAddr == "" {
			return fmt.Errorf("server.http_addr is required (or enable tailscale)")
		}
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Records.Owner == "" {
		return fmt.Errorf("records.owner is required")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}
	if c.Auth.JWTSecret == "" && !c.Auth.SSHEnabled && !c.Auth.TrustIdentityHeader {
		return fmt.Errorf("no authentication method enabled: set auth.jwt_secret, auth.ssh_enabled, or auth.trust_identity_header")
	}

	if c.Events.IdempotencyTTL < 0 {
		return fmt.Errorf("events.idempotency_ttl must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Events.IdempotencyTTLRaw != "" {
		cfg.Events.IdempotencyTTL, err = time.ParseDuration(cfg.Events.IdempotencyTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing idempotency_ttl %q: %w", cfg.Events.IdempotencyTTLRaw, err)
		}
	}

	return nil
}

// DefaultPath resolves the config file location: TODO_GATEWAY_CONFIG, then
// $XDG_CONFIG_HOME/todo-gateway/gateway.yaml, then ~/.config/todo-gateway/gateway.yaml.
func DefaultPath() string {
	if p := os.Getenv("TODO_GATEWAY_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "todo-gateway", "gateway.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "gateway.yaml"
	}
	return filepath.Join(home, ".config", "todo-gateway", "gateway.yaml")
}
