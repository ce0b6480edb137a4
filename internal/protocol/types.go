package protocol

import "github.com/google/uuid"

// ConnectionID scopes a stream of frame messages to one logical connection.
type ConnectionID = uuid.UUID

// MessageKind is the wire discriminant of a Message variant.
type MessageKind uint32

// Message discriminants. The values are part of the wire contract.
const (
	KindCreateConnection  MessageKind = 0
	KindDestroyConnection MessageKind = 1
	KindFrame             MessageKind = 2
)

func (k MessageKind) String() string {
	switch k {
	case KindCreateConnection:
		return "create_connection"
	case KindDestroyConnection:
		return "destroy_connection"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// FrameKind is the wire discriminant of a Frame variant.
type FrameKind uint32

// Frame discriminants. The values are part of the wire contract.
const (
	FrameKindYuv FrameKind = 0
	FrameKindRgb FrameKind = 1
)

func (k FrameKind) String() string {
	switch k {
	case FrameKindYuv:
		return "yuv"
	case FrameKindRgb:
		return "rgb"
	default:
		return "unknown"
	}
}

// YuvFrameInfo is the geometry of a planar YUV image.
type YuvFrameInfo struct {
	Width   uint32
	Height  uint32
	YStride uint32
	UStride uint32
	VStride uint32
}

// RgbFrameInfo is the geometry of a packed RGB image. Bytes per pixel are a
// producer/consumer convention and are not carried on the wire.
type RgbFrameInfo struct {
	Width  uint32
	Height uint32
	Stride uint32
}

// Frame is one image payload. The set of implementations is closed:
// YuvFrame and RgbFrame.
type Frame interface {
	Kind() FrameKind
	isFrame()
}

// YuvFrame carries three planes. After Decode the planes alias the source buffer.
type YuvFrame struct {
	Info YuvFrameInfo
	Y    []byte
	U    []byte
	V    []byte
}

func (YuvFrame) Kind() FrameKind { return FrameKindYuv }
func (YuvFrame) isFrame()        {}

// RgbFrame carries one packed plane. After Decode Pixels aliases the source buffer.
type RgbFrame struct {
	Info   RgbFrameInfo
	Pixels []byte
}

func (RgbFrame) Kind() FrameKind { return FrameKindRgb }
func (RgbFrame) isFrame()        {}

// Message is the unit of transmission. The set of implementations is closed:
// CreateConnection, DestroyConnection and FrameMessage.
type Message interface {
	Kind() MessageKind
	isMessage()
}

// CreateConnection announces a new connection.
type CreateConnection struct {
	Connection ConnectionID
}

// DestroyConnection retires a connection.
type DestroyConnection struct {
	Connection ConnectionID
}

// FrameMessage delivers one frame on a connection.
type FrameMessage struct {
	Connection ConnectionID
	Frame      Frame
}

func (CreateConnection) Kind() MessageKind  { return KindCreateConnection }
func (DestroyConnection) Kind() MessageKind { return KindDestroyConnection }
func (FrameMessage) Kind() MessageKind      { return KindFrame }

func (CreateConnection) isMessage()  {}
func (DestroyConnection) isMessage() {}
func (FrameMessage) isMessage()      {}

// ConnectionOf returns the connection a message belongs to.
func ConnectionOf(m Message) ConnectionID {
	switch v := m.(type) {
	case CreateConnection:
		return v.Connection
	case DestroyConnection:
		return v.Connection
	case FrameMessage:
		return v.Connection
	case *CreateConnection:
		if v != nil {
			return v.Connection
		}
	case *DestroyConnection:
		if v != nil {
			return v.Connection
		}
	case *FrameMessage:
		if v != nil {
			return v.Connection
		}
	}
	return uuid.Nil
}
