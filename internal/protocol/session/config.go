package session

import (
	"time"

	"github.com/danmuck/framewire/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig names the PEM files used for transport security.
type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	CertFile           string
	KeyFile            string
	CAFile             string
	ServerName         string
	InsecureSkipVerify bool
}

// Config defines transport defaults for senders and receivers.
type Config struct {
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxDialAttempts int
	Backoff         BackoffConfig
	Limits          frame.Limits

	// SkipGeometryCheck accepts frames whose planes do not match their
	// declared stride and height.
	SkipGeometryCheck bool
	// RejectUnknownConnections drops frames for connections that were never
	// created on this stream.
	RejectUnknownConnections bool

	SecurityMode SecurityMode
	TLS          TLSConfig
}

// DefaultConfig returns transport defaults. ReadTimeout is zero because an
// idle producer is not an error.
func DefaultConfig() Config {
	return Config{
		DialTimeout:     5 * time.Second,
		ReadTimeout:     0,
		WriteTimeout:    15 * time.Second,
		MaxDialAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		Limits:       frame.DefaultLimits(),
		SecurityMode: SecurityModeDevelopment,
	}
}
