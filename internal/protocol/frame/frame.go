// Package frame adds the outer length prefix that stream transports need
// around an encoded protocol message.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen uint16 = 16
	Magic     uint32 = 0x46574D31 // "FWM1"
	Version   uint16 = 1
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrBadMagic           = errors.New("frame: bad magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrTruncatedPayload   = errors.New("frame: truncated payload")
)

// Header is the fixed wire header.
type Header struct {
	Magic      uint32
	Version    uint16
	Flags      uint16
	PayloadLen uint64
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

// DefaultLimits fits one 8K YUV 4:2:0 frame with room to spare.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024 * 1024,
	}
}

// ReadFrame reads one frame and returns its payload. The payload is read into
// buf when it fits, so callers can reuse one buffer across frames; the
// returned slice is only valid until the next call that reuses buf.
func ReadFrame(r io.Reader, buf []byte, limits Limits) ([]byte, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return nil, err
	}
	if h.Magic != Magic {
		return nil, ErrBadMagic
	}
	if h.Version != Version {
		return nil, ErrUnsupportedVersion
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	n := int(h.PayloadLen)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	payload := buf[:n]
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedPayload
			}
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame writes a header followed by payload.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if uint64(len(payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	hb := EncodeHeader(Header{Magic: Magic, Version: Version, PayloadLen: uint64(len(payload))})
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// WriteReserved writes buf as one frame. buf[:HeaderLen] is overwritten with
// the header and buf[HeaderLen:] is the payload.
func WriteReserved(w io.Writer, buf []byte, limits Limits) error {
	if len(buf) < int(HeaderLen) {
		return fmt.Errorf("frame: reserved buffer shorter than header: %d", len(buf))
	}
	payloadLen := uint64(len(buf) - int(HeaderLen))
	if payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	putHeader(buf[:HeaderLen], Header{Magic: Magic, Version: Version, PayloadLen: payloadLen})
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	putHeader(buf, h)
	return buf
}

func putHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], h.PayloadLen)
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(HeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint16(b[4:6]),
		Flags:      binary.LittleEndian.Uint16(b[6:8]),
		PayloadLen: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}
