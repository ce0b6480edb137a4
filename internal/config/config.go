package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framewire/internal/protocol/session"
)

var ErrInvalidConfig = errors.New("config: invalid")

// NodeConfig names the addresses framectl binds and dials.
type NodeConfig struct {
	ID         string
	ListenAddr string
	DialAddr   string
	// AdminAddr serves health, readiness, metrics and stream listings.
	// Empty disables the admin API.
	AdminAddr    string
	AdminOrigins []string
}

// Config is the resolved framectl configuration.
type Config struct {
	Node     NodeConfig
	Session  session.Config
	LogLevel string
}

// framectl config.toml key mapping.
type fileConfig struct {
	Node struct {
		ID           string   `toml:"id"`
		ListenAddr   string   `toml:"listen_addr"`
		DialAddr     string   `toml:"dial_addr"`
		AdminAddr    string   `toml:"admin_addr"`
		AdminOrigins []string `toml:"admin_origins,omitempty"`
	} `toml:"node"`
	Transport struct {
		DialTimeout              string  `toml:"dial_timeout"`
		ReadTimeout              string  `toml:"read_timeout"`
		WriteTimeout             string  `toml:"write_timeout"`
		MaxDialAttempts          int     `toml:"max_dial_attempts"`
		MaxPayloadBytes          uint64  `toml:"max_payload_bytes"`
		SkipGeometryCheck        bool    `toml:"skip_geometry_check"`
		RejectUnknownConnections bool    `toml:"reject_unknown_connections"`
		BackoffInitial           string  `toml:"backoff_initial"`
		BackoffMax               string  `toml:"backoff_max"`
		BackoffMultiplier        float64 `toml:"backoff_multiplier"`
		BackoffJitter            bool    `toml:"backoff_jitter"`
	} `toml:"transport"`
	Security struct {
		Mode               string `toml:"mode"`
		TLSEnabled         bool   `toml:"tls_enabled"`
		TLSMutual          bool   `toml:"tls_mutual"`
		CertFile           string `toml:"tls_cert_file"`
		KeyFile            string `toml:"tls_key_file"`
		CAFile             string `toml:"tls_ca_file"`
		ServerName         string `toml:"tls_server_name"`
		InsecureSkipVerify bool   `toml:"tls_insecure_skip_verify"`
	} `toml:"security"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

func Default() Config {
	return Config{
		Node: NodeConfig{
			ID:         "framectl",
			ListenAddr: ":7400",
			DialAddr:   "127.0.0.1:7400",
		},
		Session:  session.DefaultConfig(),
		LogLevel: "info",
	}
}

// Load reads a TOML file and overlays every defined key onto Default().
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return resolve(raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %s", ErrInvalidConfig, undecoded[0])
	}
	cfg := Default()

	setString(meta, &cfg.Node.ID, raw.Node.ID, "node", "id")
	setString(meta, &cfg.Node.ListenAddr, raw.Node.ListenAddr, "node", "listen_addr")
	setString(meta, &cfg.Node.DialAddr, raw.Node.DialAddr, "node", "dial_addr")
	setString(meta, &cfg.Node.AdminAddr, raw.Node.AdminAddr, "node", "admin_addr")
	if meta.IsDefined("node", "admin_origins") {
		cfg.Node.AdminOrigins = raw.Node.AdminOrigins
	}

	t := raw.Transport
	s := &cfg.Session
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"dial_timeout", t.DialTimeout, &s.DialTimeout},
		{"read_timeout", t.ReadTimeout, &s.ReadTimeout},
		{"write_timeout", t.WriteTimeout, &s.WriteTimeout},
		{"backoff_initial", t.BackoffInitial, &s.Backoff.InitialDelay},
		{"backoff_max", t.BackoffMax, &s.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined("transport", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse transport.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("transport", "max_dial_attempts") {
		s.MaxDialAttempts = t.MaxDialAttempts
	}
	if meta.IsDefined("transport", "max_payload_bytes") {
		s.Limits.MaxPayloadBytes = t.MaxPayloadBytes
	}
	if meta.IsDefined("transport", "skip_geometry_check") {
		s.SkipGeometryCheck = t.SkipGeometryCheck
	}
	if meta.IsDefined("transport", "reject_unknown_connections") {
		s.RejectUnknownConnections = t.RejectUnknownConnections
	}
	if meta.IsDefined("transport", "backoff_multiplier") {
		s.Backoff.Multiplier = t.BackoffMultiplier
	}
	if meta.IsDefined("transport", "backoff_jitter") {
		s.Backoff.Jitter = t.BackoffJitter
	}

	sec := raw.Security
	if meta.IsDefined("security", "mode") {
		s.SecurityMode = session.NormalizeSecurityMode(session.SecurityMode(sec.Mode))
	}
	if meta.IsDefined("security", "tls_enabled") {
		s.TLS.Enabled = sec.TLSEnabled
	}
	if meta.IsDefined("security", "tls_mutual") {
		s.TLS.Mutual = sec.TLSMutual
	}
	if meta.IsDefined("security", "tls_insecure_skip_verify") {
		s.TLS.InsecureSkipVerify = sec.InsecureSkipVerify
	}
	setString(meta, &s.TLS.CertFile, sec.CertFile, "security", "tls_cert_file")
	setString(meta, &s.TLS.KeyFile, sec.KeyFile, "security", "tls_key_file")
	setString(meta, &s.TLS.CAFile, sec.CAFile, "security", "tls_ca_file")
	setString(meta, &s.TLS.ServerName, sec.ServerName, "security", "tls_server_name")

	setString(meta, &cfg.LogLevel, raw.Log.Level, "log", "level")

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setString(meta toml.MetaData, dst *string, v string, key ...string) {
	if meta.IsDefined(key...) {
		*dst = strings.TrimSpace(v)
	}
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Node.ID) == "" {
		return fmt.Errorf("%w: node.id is required", ErrInvalidConfig)
	}
	if cfg.Session.Limits.MaxPayloadBytes == 0 {
		return fmt.Errorf("%w: transport.max_payload_bytes must be positive", ErrInvalidConfig)
	}
	if cfg.Session.MaxDialAttempts < 1 {
		return fmt.Errorf("%w: transport.max_dial_attempts must be at least 1", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"dial_timeout":  cfg.Session.DialTimeout,
		"read_timeout":  cfg.Session.ReadTimeout,
		"write_timeout": cfg.Session.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: transport.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	switch cfg.Session.SecurityMode {
	case session.SecurityModeDevelopment, session.SecurityModeProduction:
	default:
		return fmt.Errorf("%w: security.mode %q", ErrInvalidConfig, cfg.Session.SecurityMode)
	}
	return nil
}
