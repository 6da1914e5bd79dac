// Package ssap implements the client side of the SSAP protocol used to
// remote-control LG webOS televisions.
//
// A Client owns one WebSocket connection to one TV. Connect dials the TV
// and performs the pairing handshake; SendCommand issues fire-and-forget
// commands; Request issues a command and waits for the reply with the
// matching id; Disconnect tears the session down.
//
// # Handshake
//
// The client sends a single register message (id "register_0") carrying
// a fixed manifest and, when known, the stored client key. What counts
// as completion depends on the Expectation:
//
//   - ExpectRegistered waits for a "registered" message. Without a valid
//     key the TV shows a pairing prompt that must be accepted on screen.
//   - ExpectPromptAcknowledged also accepts a "response" to register_0,
//     which the TV sends as soon as it shows the prompt. Discovery uses
//     it to recognise a TV without waiting for a human.
//
// # States
//
//	DISCONNECTED → CONNECTING → HANDSHAKE_PENDING → READY → DISCONNECTED
//
// There is no reconnect in place; a new session starts with Connect.
package ssap
