// Package transport implements the three gesture ingestion listeners: UDP
// datagrams, TCP streams and WebSocket connections. Each listener decodes and
// validates payloads independently and hands commands to the queue without
// ever waiting on execution.
package transport

import "gestured/internal/protocol"

// Sink accepts decoded commands. Submit must never block; it reports false
// when the command was shed.
type Sink interface {
	Submit(cmd *protocol.Command) bool
}
