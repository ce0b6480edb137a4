package protocol

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Decoder decodes messages from a byte buffer. The zero value checks plane
// geometry; set SkipGeometryCheck to treat stride and height as advisory.
type Decoder struct {
	SkipGeometryCheck bool
}

// Decode decodes one message from the front of src with geometry checks
// enabled. Bytes after the message are ignored. Planes of the returned message
// alias src.
func Decode(src []byte) (Message, error) {
	m, _, err := Decoder{}.Decode(src)
	return m, err
}

// Decode decodes one message from the front of src and reports how many bytes
// it consumed. Planes of the returned message alias src.
func (d Decoder) Decode(src []byte) (Message, int, error) {
	r := reader{src: src}
	m, err := d.readMessage(&r)
	if err != nil {
		return nil, 0, err
	}
	return m, r.off, nil
}

func (d Decoder) readMessage(r *reader) (Message, error) {
	start := r.off
	kind, err := r.u32("message.kind")
	if err != nil {
		return nil, err
	}
	switch MessageKind(kind) {
	case KindCreateConnection:
		id, err := r.id("connection")
		if err != nil {
			return nil, err
		}
		return CreateConnection{Connection: id}, nil
	case KindDestroyConnection:
		id, err := r.id("connection")
		if err != nil {
			return nil, err
		}
		return DestroyConnection{Connection: id}, nil
	case KindFrame:
		id, err := r.id("connection")
		if err != nil {
			return nil, err
		}
		f, err := d.readFrame(r)
		if err != nil {
			return nil, err
		}
		return FrameMessage{Connection: id, Frame: f}, nil
	default:
		return nil, &DecodeError{Offset: start, Field: "message.kind", Err: ErrUnknownDiscriminant}
	}
}

func (d Decoder) readFrame(r *reader) (Frame, error) {
	start := r.off
	kind, err := r.u32("frame.kind")
	if err != nil {
		return nil, err
	}
	switch FrameKind(kind) {
	case FrameKindYuv:
		var f YuvFrame
		fields := []struct {
			name string
			dst  *uint32
		}{
			{"yuv.width", &f.Info.Width},
			{"yuv.height", &f.Info.Height},
			{"yuv.y_stride", &f.Info.YStride},
			{"yuv.u_stride", &f.Info.UStride},
			{"yuv.v_stride", &f.Info.VStride},
		}
		for _, field := range fields {
			if *field.dst, err = r.u32(field.name); err != nil {
				return nil, err
			}
		}
		if f.Y, err = r.plane("yuv.y_plane"); err != nil {
			return nil, err
		}
		if f.U, err = r.plane("yuv.u_plane"); err != nil {
			return nil, err
		}
		if f.V, err = r.plane("yuv.v_plane"); err != nil {
			return nil, err
		}
		if !d.SkipGeometryCheck {
			if err := f.Validate(); err != nil {
				return nil, &DecodeError{Offset: start, Field: "yuv", Err: err}
			}
		}
		return f, nil
	case FrameKindRgb:
		var f RgbFrame
		if f.Info.Width, err = r.u32("rgb.width"); err != nil {
			return nil, err
		}
		if f.Info.Height, err = r.u32("rgb.height"); err != nil {
			return nil, err
		}
		if f.Info.Stride, err = r.u32("rgb.stride"); err != nil {
			return nil, err
		}
		if f.Pixels, err = r.plane("rgb.pixels"); err != nil {
			return nil, err
		}
		if !d.SkipGeometryCheck {
			if err := f.Validate(); err != nil {
				return nil, &DecodeError{Offset: start, Field: "rgb", Err: err}
			}
		}
		return f, nil
	default:
		return nil, &DecodeError{Offset: start, Field: "frame.kind", Err: ErrUnknownDiscriminant}
	}
}

// reader bounds-checks every read against src before slicing it.
type reader struct {
	src []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.src) - r.off
}

func (r *reader) short(field string) error {
	return &DecodeError{Offset: r.off, Field: field, Err: ErrUnexpectedEOF}
}

func (r *reader) u32(field string) (uint32, error) {
	if r.remaining() < 4 {
		return 0, r.short(field)
	}
	v := binary.LittleEndian.Uint32(r.src[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) id(field string) (ConnectionID, error) {
	if r.remaining() < connectionIDSize {
		return uuid.Nil, r.short(field)
	}
	var id ConnectionID
	copy(id[:], r.src[r.off:r.off+connectionIDSize])
	r.off += connectionIDSize
	return id, nil
}

// plane returns a view of the next length-prefixed plane. The view's capacity
// ends at the plane so appending to it cannot overwrite later fields.
func (r *reader) plane(field string) ([]byte, error) {
	if r.remaining() < planeLenSize {
		return nil, r.short(field)
	}
	n := binary.LittleEndian.Uint64(r.src[r.off:])
	if n > uint64(r.remaining()-planeLenSize) {
		return nil, r.short(field)
	}
	r.off += planeLenSize
	end := r.off + int(n)
	view := r.src[r.off:end:end]
	r.off = end
	return view, nil
}
