// Package transport provides the WebSocket transport for SSAP.
//
// The transport layer handles:
//   - ws:// and wss:// dialing (TLS with certificate verification off,
//     since TVs present a self-signed certificate)
//   - a single read loop per connection delivering text frames in order
//   - serialized writes and an orderly close
//   - optional keep-alive pings for long-lived sessions
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      SSAP JSON messages        │
//	├────────────────────────────────┤
//	│   WebSocket text frames, "/"   │
//	├────────────────────────────────┤
//	│   TLS (port 3001, optional)    │
//	├────────────────────────────────┤
//	│      TCP (port 3000 plain)     │
//	└────────────────────────────────┘
package transport
