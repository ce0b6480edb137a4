package protocol

import "bytes"

// Clone returns a copy whose planes no longer alias any decode buffer.
func (f YuvFrame) Clone() YuvFrame {
	return YuvFrame{
		Info: f.Info,
		Y:    bytes.Clone(f.Y),
		U:    bytes.Clone(f.U),
		V:    bytes.Clone(f.V),
	}
}

// Clone returns a copy whose pixels no longer alias any decode buffer.
func (f RgbFrame) Clone() RgbFrame {
	return RgbFrame{Info: f.Info, Pixels: bytes.Clone(f.Pixels)}
}

// CloneFrame deep-copies f. Nil and unknown frames are returned unchanged.
func CloneFrame(f Frame) Frame {
	switch v := f.(type) {
	case YuvFrame:
		return v.Clone()
	case *YuvFrame:
		if v != nil {
			return v.Clone()
		}
	case RgbFrame:
		return v.Clone()
	case *RgbFrame:
		if v != nil {
			return v.Clone()
		}
	}
	return f
}

// CloneMessage deep-copies m so it can outlive the buffer it was decoded from.
func CloneMessage(m Message) Message {
	switch v := m.(type) {
	case FrameMessage:
		return FrameMessage{Connection: v.Connection, Frame: CloneFrame(v.Frame)}
	case *FrameMessage:
		if v != nil {
			return FrameMessage{Connection: v.Connection, Frame: CloneFrame(v.Frame)}
		}
	}
	return m
}

// PlaneBytes is the total number of pixel bytes carried by f.
func PlaneBytes(f Frame) int {
	switch v := f.(type) {
	case YuvFrame:
		return len(v.Y) + len(v.U) + len(v.V)
	case *YuvFrame:
		if v != nil {
			return len(v.Y) + len(v.U) + len(v.V)
		}
	case RgbFrame:
		return len(v.Pixels)
	case *RgbFrame:
		if v != nil {
			return len(v.Pixels)
		}
	}
	return 0
}
