package protocol

import "encoding/binary"

const (
	discriminantSize = 4
	connectionIDSize = 16
	planeLenSize     = 8
)

// sink receives the primitive values of a message in wire order. measuring
// and writing share walkMessage so EncodedSize and Encode cannot drift.
type sink interface {
	putU32(v uint32)
	putID(id ConnectionID)
	putPlane(b []byte)
}

type measurer struct {
	n int
}

func (m *measurer) putU32(uint32)      { m.n += 4 }
func (m *measurer) putID(ConnectionID) { m.n += connectionIDSize }
func (m *measurer) putPlane(b []byte)  { m.n += planeLenSize + len(b) }

// writer fills buf in wire order. A write that does not fit sets short and
// stops all further writes, so a wrong size hint cannot panic.
type writer struct {
	buf   []byte
	off   int
	short bool
}

func (w *writer) fits(n int) bool {
	if w.short || len(w.buf)-w.off < n {
		w.short = true
		return false
	}
	return true
}

func (w *writer) putU32(v uint32) {
	if !w.fits(4) {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) putID(id ConnectionID) {
	if !w.fits(connectionIDSize) {
		return
	}
	w.off += copy(w.buf[w.off:], id[:])
}

func (w *writer) putPlane(b []byte) {
	if !w.fits(planeLenSize + len(b)) {
		return
	}
	binary.LittleEndian.PutUint64(w.buf[w.off:], uint64(len(b)))
	w.off += planeLenSize
	w.off += copy(w.buf[w.off:], b)
}

func walkMessage(s sink, m Message) error {
	switch v := m.(type) {
	case CreateConnection:
		s.putU32(uint32(KindCreateConnection))
		s.putID(v.Connection)
	case *CreateConnection:
		if v == nil {
			return ErrNilMessage
		}
		return walkMessage(s, *v)
	case DestroyConnection:
		s.putU32(uint32(KindDestroyConnection))
		s.putID(v.Connection)
	case *DestroyConnection:
		if v == nil {
			return ErrNilMessage
		}
		return walkMessage(s, *v)
	case FrameMessage:
		if err := checkFrame(v.Frame); err != nil {
			return err
		}
		s.putU32(uint32(KindFrame))
		s.putID(v.Connection)
		walkFrame(s, v.Frame)
	case *FrameMessage:
		if v == nil {
			return ErrNilMessage
		}
		return walkMessage(s, *v)
	default:
		return ErrNilMessage
	}
	return nil
}

func checkFrame(f Frame) error {
	switch v := f.(type) {
	case YuvFrame, RgbFrame:
		return nil
	case *YuvFrame:
		if v == nil {
			return ErrNilFrame
		}
	case *RgbFrame:
		if v == nil {
			return ErrNilFrame
		}
	default:
		return ErrNilFrame
	}
	return nil
}

// walkFrame expects a frame accepted by checkFrame.
func walkFrame(s sink, f Frame) {
	switch v := f.(type) {
	case YuvFrame:
		s.putU32(uint32(FrameKindYuv))
		s.putU32(v.Info.Width)
		s.putU32(v.Info.Height)
		s.putU32(v.Info.YStride)
		s.putU32(v.Info.UStride)
		s.putU32(v.Info.VStride)
		s.putPlane(v.Y)
		s.putPlane(v.U)
		s.putPlane(v.V)
	case *YuvFrame:
		walkFrame(s, *v)
	case RgbFrame:
		s.putU32(uint32(FrameKindRgb))
		s.putU32(v.Info.Width)
		s.putU32(v.Info.Height)
		s.putU32(v.Info.Stride)
		s.putPlane(v.Pixels)
	case *RgbFrame:
		walkFrame(s, *v)
	}
}
