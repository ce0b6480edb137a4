// Package protocol owns the frame wire contract and its codec.
//
// Ownership boundary:
// - frame geometry (YuvFrameInfo, RgbFrameInfo)
// - frame payload union (YuvFrame, RgbFrame)
// - message envelope union (CreateConnection, DestroyConnection, FrameMessage)
// - encode/decode/size primitives
//
// Wire layout: every union is a little-endian u32 discriminant followed by the
// variant fields in declaration order. Geometry fields are little-endian u32,
// connection ids are 16 raw bytes, and planes are a little-endian u64 length
// followed by the plane bytes. There is no outer length prefix; transports that
// need one add it (see package frame).
//
// Decoded planes borrow the source buffer. A decoded Message is valid only as
// long as that buffer is left untouched; use CloneMessage to keep it longer.
package protocol
