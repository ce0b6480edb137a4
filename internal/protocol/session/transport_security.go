package session

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrInvalidSecurityMode     = errors.New("session: invalid security mode")
	ErrTLSRequired             = errors.New("session: tls required")
	ErrMTLSRequired            = errors.New("session: mtls required")
	ErrTLSCertFileRequired     = errors.New("session: tls cert file required")
	ErrTLSKeyFileRequired      = errors.New("session: tls key file required")
	ErrTLSCAFileRequired       = errors.New("session: tls ca file required")
	ErrTLSInsecureSkipNotAllow = errors.New("session: insecure skip verify not allowed")
)

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

// ValidateClientTransport checks the TLS settings a sender dials with.
// Production mode requires mutual TLS with verification.
func (c Config) ValidateClientTransport() error {
	production, err := c.productionMode()
	if err != nil {
		return err
	}
	if production && c.TLS.InsecureSkipVerify {
		return ErrTLSInsecureSkipNotAllow
	}
	if c.TLS.Enabled && strings.TrimSpace(c.TLS.CAFile) == "" && !c.TLS.InsecureSkipVerify {
		return ErrTLSCAFileRequired
	}
	if c.TLS.Mutual {
		return c.requireKeyPair()
	}
	return nil
}

// ValidateServerTransport checks the TLS settings a receiver listens with.
func (c Config) ValidateServerTransport() error {
	if _, err := c.productionMode(); err != nil {
		return err
	}
	if c.TLS.Enabled {
		if err := c.requireKeyPair(); err != nil {
			return err
		}
	}
	if c.TLS.Mutual && strings.TrimSpace(c.TLS.CAFile) == "" {
		return ErrTLSCAFileRequired
	}
	return nil
}

func (c Config) productionMode() (bool, error) {
	mode := NormalizeSecurityMode(c.SecurityMode)
	switch mode {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidSecurityMode, c.SecurityMode)
	}
	if mode == SecurityModeProduction {
		if !c.TLS.Enabled {
			return true, ErrTLSRequired
		}
		if !c.TLS.Mutual {
			return true, ErrMTLSRequired
		}
	}
	if c.TLS.Mutual && !c.TLS.Enabled {
		return false, ErrTLSRequired
	}
	return mode == SecurityModeProduction, nil
}

func (c Config) requireKeyPair() error {
	if strings.TrimSpace(c.TLS.CertFile) == "" {
		return ErrTLSCertFileRequired
	}
	if strings.TrimSpace(c.TLS.KeyFile) == "" {
		return ErrTLSKeyFileRequired
	}
	return nil
}

// ClientTLS builds the dialer TLS config, or nil when TLS is disabled.
func (c Config) ClientTLS() (*tls.Config, error) {
	if !c.TLS.Enabled {
		return nil, nil
	}
	if err := c.ValidateClientTransport(); err != nil {
		return nil, err
	}
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         strings.TrimSpace(c.TLS.ServerName),
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
	}
	if ca := strings.TrimSpace(c.TLS.CAFile); ca != "" {
		pool, err := loadCertPool(ca)
		if err != nil {
			return nil, err
		}
		out.RootCAs = pool
	}
	if c.TLS.Mutual {
		pair, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("session: load client key pair: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}

// ServerTLS builds the listener TLS config, or nil when TLS is disabled.
func (c Config) ServerTLS() (*tls.Config, error) {
	if !c.TLS.Enabled {
		return nil, nil
	}
	if err := c.ValidateServerTransport(); err != nil {
		return nil, err
	}
	pair, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("session: load server key pair: %w", err)
	}
	out := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pair},
	}
	if c.TLS.Mutual {
		pool, err := loadCertPool(c.TLS.CAFile)
		if err != nil {
			return nil, err
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("session: no certificates in %s", path)
	}
	return pool, nil
}
