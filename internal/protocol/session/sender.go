package session

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/danmuck/framewire/internal/protocol"
	"github.com/danmuck/framewire/internal/protocol/frame"
	"github.com/rs/zerolog"
)

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Sender writes framed messages to one stream. It is safe for concurrent use;
// messages are written whole and in call order.
type Sender struct {
	mu      sync.Mutex
	w       io.Writer
	cfg     Config
	scratch []byte
	log     zerolog.Logger
}

func NewSender(w io.Writer, cfg Config) *Sender {
	return &Sender{
		w:   w,
		cfg: cfg,
		log: logging.For("session.sender"),
	}
}

// Send sizes m once, encodes it directly behind a reserved frame header in a
// reusable buffer and writes it with one call. The buffer grows only when a message is
// larger than any sent before.
func (s *Sender) Send(m protocol.Message) error {
	size := protocol.EncodedSize(m)
	if size == 0 {
		_, err := protocol.Encode(nil, m)
		return fmt.Errorf("session: send: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := int(frame.HeaderLen) + size
	if cap(s.scratch) < total {
		s.scratch = make([]byte, total)
	}
	buf := s.scratch[:total]
	if _, err := protocol.EncodeSized(buf[frame.HeaderLen:], m, size); err != nil {
		return fmt.Errorf("session: send: %w", err)
	}

	if d, ok := s.w.(writeDeadliner); ok && s.cfg.WriteTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return fmt.Errorf("session: set write deadline: %w", err)
		}
	}
	if err := frame.WriteReserved(s.w, buf, s.cfg.Limits); err != nil {
		return fmt.Errorf("session: write %s: %w", m.Kind(), err)
	}

	observability.RecordMessage(observability.DirectionSent, m.Kind().String(), size)
	if fm, ok := m.(protocol.FrameMessage); ok {
		observability.RecordFrame(observability.DirectionSent, fm.Frame.Kind().String(), protocol.PlaneBytes(fm.Frame))
	}
	s.log.Trace().
		Str("kind", m.Kind().String()).
		Str("connection", protocol.ConnectionOf(m).String()).
		Int("bytes", size).
		Msg("sent")
	return nil
}

// Open announces a connection.
func (s *Sender) Open(id protocol.ConnectionID) error {
	return s.Send(protocol.CreateConnection{Connection: id})
}

// Close retires a connection.
func (s *Sender) Close(id protocol.ConnectionID) error {
	return s.Send(protocol.DestroyConnection{Connection: id})
}

// SendFrame delivers f on connection id.
func (s *Sender) SendFrame(id protocol.ConnectionID, f protocol.Frame) error {
	return s.Send(protocol.FrameMessage{Connection: id, Frame: f})
}
