package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
)

// SSAP ports.
const (
	// PlainPort serves ws://.
	PlainPort = 3000

	// SSLPort serves wss:// with a self-signed certificate.
	SSLPort = 3001
)

// Port returns the SSAP port for the given mode.
func Port(useSSL bool) int {
	if useSSL {
		return SSLPort
	}
	return PlainPort
}

// URL returns the WebSocket endpoint of a TV. A zero port selects the
// default port for the mode.
func URL(host string, port int, useSSL bool) string {
	if port == 0 {
		port = Port(useSSL)
	}
	scheme := "ws"
	if useSSL {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewInsecureTLSConfig returns the client TLS configuration used for
// wss://. webOS TVs present a self-signed certificate that cannot be
// verified, so verification is disabled.
func NewInsecureTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // TV certificate is self-signed
		MinVersion:         tls.VersionTLS12,
	}
}
