package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/webos-remote/lgtv-go/pkg/log"
	"github.com/webos-remote/lgtv-go/pkg/ssap"
)

// SSAPConfirmer confirms a TV by completing the SSAP handshake under the
// PromptAcknowledged expectation. No client key is sent, so a TV that has
// never paired answers with its prompt response and nothing is stored.
type SSAPConfirmer struct {
	UseSSL bool

	// Port overrides the SSAP port.
	Port int

	// Timeout bounds the handshake. Default: 6 seconds.
	Timeout time.Duration

	Logger         *slog.Logger
	ProtocolLogger log.Logger
}

// Confirm implements Confirmer. The client is disconnected before Confirm
// returns, whatever the outcome.
func (c *SSAPConfirmer) Confirm(ctx context.Context, address string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}

	client := ssap.NewClient(ssap.Config{
		Address:          address,
		Port:             c.Port,
		UseSSL:           c.UseSSL,
		Expectation:      ssap.ExpectPromptAcknowledged,
		HandshakeTimeout: timeout,
		Logger:           c.Logger,
		ProtocolLogger:   c.ProtocolLogger,
	})
	defer client.Disconnect()

	if err := client.Connect(ctx); err != nil {
		return "", err
	}
	return DeviceInfo, nil
}
