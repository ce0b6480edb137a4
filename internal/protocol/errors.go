package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrBufferTooSmall       = errors.New("protocol: destination buffer too small")
	ErrUnexpectedEOF        = errors.New("protocol: unexpected end of input")
	ErrUnknownDiscriminant  = errors.New("protocol: unknown discriminant")
	ErrInconsistentGeometry = errors.New("protocol: inconsistent frame geometry")
	ErrNilFrame             = errors.New("protocol: frame message without frame")
	ErrNilMessage           = errors.New("protocol: nil message")
)

// DecodeError reports where in the source buffer decoding stopped.
type DecodeError struct {
	Offset int
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (field=%s offset=%d)", e.Err, e.Field, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
