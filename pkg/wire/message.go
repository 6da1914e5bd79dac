package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message types carried in the "type" member.
const (
	TypeRegister   = "register"
	TypeRegistered = "registered"
	TypeRequest    = "request"
	TypeResponse   = "response"
	TypeError      = "error"
)

// RegisterID is the fixed correlation id of the pairing request.
const RegisterID = "register_0"

// URIPrefix is the scheme prefix of every command URI.
const URIPrefix = "ssap://"

// KeyClientKey is the payload member carrying the pairing credential.
const KeyClientKey = "client-key"

// ID is a message correlation id. TVs echo ids as strings, but some
// firmware answers with a bare number, so both are accepted on decode.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("wire: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Message is a decoded SSAP frame.
//
// JSON encoding:
//
//	{"type":"request","id":"1","uri":"ssap://audio/volumeUp","payload":{...}}
type Message struct {
	Type    string `json:"type"`
	ID      ID     `json:"id,omitempty"`
	URI     string `json:"uri,omitempty"`
	Payload Object `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsReply reports whether m answers the request with the given id.
func (m *Message) IsReply(id string) bool {
	return m.ID == ID(id) && (m.Type == TypeResponse || m.Type == TypeError)
}

// ClientKey returns the client-key carried in the payload, if any.
func (m *Message) ClientKey() (string, bool) {
	key, ok := m.Payload.GetString(KeyClientKey)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// RegisterPayload is the payload of the pairing request.
// Field order matches what webOS clients send on the wire.
type RegisterPayload struct {
	ForcePairing bool     `json:"forcePairing"`
	PairingType  string   `json:"pairingType"`
	Manifest     Manifest `json:"manifest"`
	ClientKey    string   `json:"client-key,omitempty"`
}

type registerMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload RegisterPayload `json:"payload"`
}

type requestMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Payload Object `json:"payload,omitempty"`
}

// EncodeRegister encodes the pairing request. An empty clientKey asks
// the TV to show its on-screen pairing prompt.
func EncodeRegister(clientKey string) ([]byte, error) {
	return json.Marshal(registerMessage{
		Type: TypeRegister,
		ID:   RegisterID,
		Payload: RegisterPayload{
			ForcePairing: false,
			PairingType:  "PROMPT",
			Manifest:     DefaultManifest(),
			ClientKey:    clientKey,
		},
	})
}

// EncodeRequest encodes a command request with the given correlation id.
func EncodeRequest(id uint64, uri string, payload Object) ([]byte, error) {
	if uri == "" {
		return nil, fmt.Errorf("wire: empty command uri")
	}
	return json.Marshal(requestMessage{
		Type:    TypeRequest,
		ID:      strconv.FormatUint(id, 10),
		URI:     uri,
		Payload: payload,
	})
}

// DecodeMessage decodes an inbound text frame.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// Indent renders a frame as indented JSON for display. Frames that are
// not valid JSON are returned unchanged.
func Indent(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
