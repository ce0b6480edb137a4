// Package session carries protocol messages over stream connections.
//
// Ownership boundary:
// - dial/accept with retry backoff and optional TLS
// - Sender: size, encode and frame outbound messages
// - Receiver: read, decode and dispatch inbound messages
// - connection lifecycle table for CreateConnection/DestroyConnection
//
// Wire layout per message: one frame header (package frame) followed by one
// protocol-encoded message.
package session
