package protocol

import "fmt"

// EncodedSize returns the exact number of bytes Encode writes for m.
// It returns 0 for a message Encode would reject.
func EncodedSize(m Message) int {
	var ms measurer
	if err := walkMessage(&ms, m); err != nil {
		return 0
	}
	return ms.n
}

// Encode writes m into dst and returns the number of bytes written. dst must
// hold at least EncodedSize(m) bytes; otherwise nothing is written and
// ErrBufferTooSmall is returned. Plane bytes are copied from the caller's
// buffers straight into dst.
func Encode(dst []byte, m Message) (int, error) {
	var ms measurer
	if err := walkMessage(&ms, m); err != nil {
		return 0, err
	}
	return EncodeSized(dst, m, ms.n)
}

// EncodeSized is Encode for callers that already hold size = EncodedSize(m),
// so the message is walked once more instead of twice. A size that does not
// match m returns an error; dst[:size] may then hold a partial message.
func EncodeSized(dst []byte, m Message, size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: size hint %d", ErrBufferTooSmall, size)
	}
	if len(dst) < size {
		return 0, ErrBufferTooSmall
	}
	w := writer{buf: dst[:size]}
	if err := walkMessage(&w, m); err != nil {
		return 0, err
	}
	if w.short {
		return 0, fmt.Errorf("%w: size hint %d is short for %s", ErrBufferTooSmall, size, m.Kind())
	}
	if w.off != size {
		return 0, fmt.Errorf("protocol: encoded %d bytes, size hint %d", w.off, size)
	}
	return w.off, nil
}

// Marshal allocates a buffer of the exact encoded size and encodes m into it.
func Marshal(m Message) ([]byte, error) {
	buf := make([]byte, EncodedSize(m))
	n, err := Encode(buf, m)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
