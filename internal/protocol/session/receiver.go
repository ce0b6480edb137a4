package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/rs/zerolog"
)

var (
	ErrTrailingBytes     = errors.New("session: trailing bytes after message")
	ErrUnknownConnection = errors.New("session: frame for unknown connection")
)

// Handler consumes decoded messages. Frame planes alias the receiver's read
// buffer and are overwritten by the next read, so a handler that keeps a
// message past its return must protocol.CloneMessage it first.
type Handler interface {
	HandleMessage(ctx context.Context, m protocol.Message) error
}

type HandlerFunc func(ctx context.Context, m protocol.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, m protocol.Message) error {
	return f(ctx, m)
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Receiver reads framed messages from one stream and dispatches them.
type Receiver struct {
	r       io.Reader
	cfg     Config
	handler Handler
	table   *ConnectionTable
	decoder protocol.Decoder
	log     zerolog.Logger
}

func NewReceiver(r io.Reader, cfg Config, handler Handler) *Receiver {
	return &Receiver{
		r:       r,
		cfg:     cfg,
		handler: handler,
		table:   NewConnectionTable(),
		decoder: protocol.Decoder{SkipGeometryCheck: cfg.SkipGeometryCheck},
		log:     logging.For("session.receiver"),
	}
}

// Connections returns the lifecycle table for this stream.
func (r *Receiver) Connections() *ConnectionTable {
	return r.table
}

// Run reads until the peer closes the stream (nil), the stream breaks, the
// handler fails, or ctx is cancelled. Messages that fail to decode are
// counted and skipped since framing stays intact.
func (r *Receiver) Run(ctx context.Context) error {
	if c, ok := r.r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}
	defer r.abandonOpen()

	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d, ok := r.r.(readDeadliner); ok && r.cfg.ReadTimeout > 0 {
			if err := d.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout)); err != nil {
				return fmt.Errorf("session: set read deadline: %w", err)
			}
		}
		payload, err := frame.ReadFrame(r.r, buf, r.cfg.Limits)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("session: read frame: %w", err)
		}
		buf = payload[:0]

		m, err := r.decode(payload)
		if err != nil {
			observability.RecordDecodeError(decodeReason(err))
			r.log.Warn().Err(err).Int("bytes", len(payload)).Msg("dropped message")
			continue
		}
		observability.RecordMessage(observability.DirectionReceived, m.Kind().String(), len(payload))

		if err := r.track(m); err != nil {
			observability.RecordDecodeError(decodeReason(err))
			r.log.Warn().Err(err).Str("connection", protocol.ConnectionOf(m).String()).Msg("dropped frame")
			continue
		}
		if err := r.handler.HandleMessage(ctx, m); err != nil {
			return fmt.Errorf("session: handle %s: %w", m.Kind(), err)
		}
	}
}

func (r *Receiver) decode(payload []byte) (protocol.Message, error) {
	m, n, err := r.decoder.Decode(payload)
	if err != nil {
		return nil, err
	}
	if n != len(payload) {
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrTrailingBytes, len(payload)-n, len(payload))
	}
	return m, nil
}

func (r *Receiver) track(m protocol.Message) error {
	now := time.Now()
	switch v := m.(type) {
	case protocol.CreateConnection:
		if !r.table.Open(v.Connection, now) {
			r.log.Warn().Str("connection", v.Connection.String()).Msg("connection created twice")
			return nil
		}
		observability.ConnectionOpened()
		r.log.Debug().Str("connection", v.Connection.String()).Msg("connection created")
	case protocol.DestroyConnection:
		state, ok := r.table.Close(v.Connection)
		if !ok {
			r.log.Warn().Str("connection", v.Connection.String()).Msg("destroy for unknown connection")
			return nil
		}
		observability.ConnectionClosed()
		r.log.Debug().
			Str("connection", v.Connection.String()).
			Uint64("frames", state.Frames).
			Uint64("pixel_bytes", state.PixelBytes).
			Msg("connection destroyed")
	case protocol.FrameMessage:
		pixels := protocol.PlaneBytes(v.Frame)
		if _, ok := r.table.MarkFrame(v.Connection, now, pixels); !ok && r.cfg.RejectUnknownConnections {
			return fmt.Errorf("%w: %s", ErrUnknownConnection, v.Connection)
		}
		observability.RecordFrame(observability.DirectionReceived, v.Frame.Kind().String(), pixels)
	}
	return nil
}

func (r *Receiver) abandonOpen() {
	for _, state := range r.table.List() {
		r.table.Close(state.ID)
		observability.ConnectionClosed()
		r.log.Info().Str("connection", state.ID.String()).Msg("stream ended with connection open")
	}
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnexpectedEOF):
		return "unexpected_eof"
	case errors.Is(err, protocol.ErrUnknownDiscriminant):
		return "unknown_discriminant"
	case errors.Is(err, protocol.ErrInconsistentGeometry):
		return "inconsistent_geometry"
	case errors.Is(err, ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, ErrUnknownConnection):
		return "unknown_connection"
	default:
		return "other"
	}
}
