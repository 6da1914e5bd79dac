// Package discovery finds LG webOS TVs on the local network.
//
// A scan runs in two phases over the targets produced by package scan:
//
// # Fast phase
//
// Every target gets a bare TCP connect to the SSAP port (3000, or 3001 with
// SSL) with a short timeout. At most Config.Concurrency probes run at once.
// Results arrive in completion order and are re-sorted into submission
// order before the next phase.
//
// # Confirm phase
//
// Each responder from the fast phase gets a full SSAP handshake under the
// relaxed PromptAcknowledged expectation, raced against a longer timeout.
// The client is always disconnected afterwards so no pairing prompt is
// left half-open on the TV.
//
// Failures in either phase are never returned. Most addresses in a scan are
// empty, so a missing answer simply means "no TV here". Per-address
// diagnostics are available through Config.OnEvent and debug logging.
//
// MDNSResolver optionally maps addresses to advertised host names, which
// are attached to confirmed devices.
package discovery
