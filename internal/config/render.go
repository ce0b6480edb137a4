package config

import (
	"fmt"

	gotoml "github.com/pelletier/go-toml/v2"
)

// Render encodes cfg in the same key layout Load reads, so the output of
// `framectl config show` can be saved and loaded back.
func Render(cfg Config) ([]byte, error) {
	var raw fileConfig
	raw.Node.ID = cfg.Node.ID
	raw.Node.ListenAddr = cfg.Node.ListenAddr
	raw.Node.DialAddr = cfg.Node.DialAddr
	raw.Node.AdminAddr = cfg.Node.AdminAddr
	raw.Node.AdminOrigins = cfg.Node.AdminOrigins

	s := cfg.Session
	t := &raw.Transport
	t.DialTimeout = s.DialTimeout.String()
	t.ReadTimeout = s.ReadTimeout.String()
	t.WriteTimeout = s.WriteTimeout.String()
	t.MaxDialAttempts = s.MaxDialAttempts
	t.MaxPayloadBytes = s.Limits.MaxPayloadBytes
	t.SkipGeometryCheck = s.SkipGeometryCheck
	t.RejectUnknownConnections = s.RejectUnknownConnections
	t.BackoffInitial = s.Backoff.InitialDelay.String()
	t.BackoffMax = s.Backoff.MaxDelay.String()
	t.BackoffMultiplier = s.Backoff.Multiplier
	t.BackoffJitter = s.Backoff.Jitter

	sec := &raw.Security
	sec.Mode = string(s.SecurityMode)
	sec.TLSEnabled = s.TLS.Enabled
	sec.TLSMutual = s.TLS.Mutual
	sec.CertFile = s.TLS.CertFile
	sec.KeyFile = s.TLS.KeyFile
	sec.CAFile = s.TLS.CAFile
	sec.ServerName = s.TLS.ServerName
	sec.InsecureSkipVerify = s.TLS.InsecureSkipVerify

	raw.Log.Level = cfg.LogLevel

	out, err := gotoml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config render failed: %w", err)
	}
	return out, nil
}
