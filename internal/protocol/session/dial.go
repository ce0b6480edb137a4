package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/logging"
)

// Dial connects to a receiver, retrying with backoff up to
// cfg.MaxDialAttempts times.
func Dial(ctx context.Context, addr string, cfg Config) (net.Conn, error) {
	tlsCfg, err := cfg.ClientTLS()
	if err != nil {
		return nil, err
	}
	attempts := cfg.MaxDialAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := logging.For("session.dial")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}

	for attempt := 1; ; attempt++ {
		var conn net.Conn
		if tlsCfg != nil {
			td := &tls.Dialer{NetDialer: dialer, Config: tlsCfg}
			conn, err = td.DialContext(ctx, "tcp", addr)
		} else {
			conn, err = dialer.DialContext(ctx, "tcp", addr)
		}
		if err == nil {
			logger.Info().Str("addr", addr).Int("attempt", attempt).Bool("tls", tlsCfg != nil).Msg("connected")
			return conn, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("session: dial %s after %d attempts: %w", addr, attempt, err)
		}
		delay := NextBackoffDelay(cfg.Backoff, attempt, rng)
		logger.Warn().Err(err).Str("addr", addr).Int("attempt", attempt).Dur("retry_in", delay).Msg("dial failed")
		if err := waitBackoff(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// Listen opens a TCP listener, wrapped in TLS when cfg enables it.
func Listen(addr string, cfg Config) (net.Listener, error) {
	tlsCfg, err := cfg.ServerTLS()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("session: listen %s: %w", addr, err)
	}
	if tlsCfg != nil {
		return tls.NewListener(ln, tlsCfg), nil
	}
	return ln, nil
}

// Serve accepts streams on ln and runs one Receiver per stream until ctx is
// cancelled. newHandler is called once per accepted stream.
func Serve(ctx context.Context, ln net.Listener, cfg Config, newHandler func(net.Conn) Handler) error {
	return ServeStreams(ctx, ln, cfg, nil, newHandler)
}

// ServeStreams is Serve with every running receiver registered in streams
// for the lifetime of its stream. streams may be nil.
func ServeStreams(ctx context.Context, ln net.Listener, cfg Config, streams *Streams, newHandler func(net.Conn) Handler) error {
	logger := logging.For("session.serve")
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session: accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			peer := conn.RemoteAddr().String()
			logger.Info().Str("peer", peer).Msg("stream accepted")
			rcv := NewReceiver(conn, cfg, newHandler(conn))
			streams.add(peer, rcv)
			defer streams.remove(peer)
			if err := rcv.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Str("peer", peer).Msg("stream failed")
				return
			}
			logger.Info().Str("peer", peer).Msg("stream closed")
		}()
	}
}
