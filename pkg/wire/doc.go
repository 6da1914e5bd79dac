// Package wire defines the JSON wire format types for the SSAP protocol
// spoken by LG webOS televisions.
//
// SSAP frames are JSON text messages carried over a WebSocket on port 3000
// (ws://) or 3001 (wss://).
//
// # Message Types
//
// Outbound:
//   - register: pairing handshake, always with id "register_0"
//   - request: a command addressed by an ssap:// URI, with a numeric id
//
// Inbound:
//   - registered: pairing accepted, may carry a fresh client-key
//   - response: reply to a register or request id
//   - error: reply carrying a failure description
//
// # Dynamic Payloads
//
// Payloads are arbitrary JSON. They decode into Value, a tagged variant
// over null, bool, number, string, array and object.
package wire
