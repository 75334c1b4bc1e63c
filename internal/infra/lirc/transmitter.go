package lirc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tv-bridge/internal/domain"
)

// DefaultButtons maps remote functions to lircd button names.
func DefaultButtons() map[domain.Function]string {
	return map[domain.Function]string{
		domain.FunctionPower:         "KEY_POWER",
		domain.FunctionVolumeUp:      "KEY_VOLUMEUP",
		domain.FunctionVolumeDown:    "KEY_VOLUMEDOWN",
		domain.FunctionMute:          "KEY_MUTE",
		domain.FunctionSource:        "KEY_VIDEO",
		domain.FunctionDirectionUp:   "KEY_UP",
		domain.FunctionDirectionDown: "KEY_DOWN",
		domain.FunctionEnter:         "KEY_OK",
	}
}

// Transmitter sends remote-control codes as lircd button presses of one
// remote definition.
type Transmitter struct {
	client  *Client
	remote  string
	buttons map[domain.Function]string
	logger  *slog.Logger
}

func NewTransmitter(client *Client, remote string, buttons map[domain.Function]string, logger *slog.Logger) *Transmitter {
	return &Transmitter{
		client:  client,
		remote:  remote,
		buttons: buttons,
		logger:  logger,
	}
}

func (t *Transmitter) Send(ctx context.Context, code domain.IRCode) error {
	button, ok := t.buttons[code.Function]
	if !ok {
		return fmt.Errorf("no lircd button for %s", code.Function)
	}

	if _, err := t.client.SendCommand(ctx, SendOnce{Remote: t.remote, Button: button}); err != nil {
		return fmt.Errorf("sending %s: %w", button, err)
	}

	t.logger.Debug("transmitted IR code", "code", code, "button", button)
	return nil
}

// Verify checks that lircd knows the remote and every configured button.
func (t *Transmitter) Verify(ctx context.Context) error {
	reply, err := t.client.SendCommand(ctx, List{Remote: t.remote})
	if err != nil {
		return fmt.Errorf("listing remote %s: %w", t.remote, err)
	}

	// Each line is "<code> <button>".
	known := make(map[string]bool, len(reply.Data))
	for _, line := range reply.Data {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			known[fields[len(fields)-1]] = true
		}
	}

	var missing []string
	for _, fn := range domain.Functions {
		if button := t.buttons[fn]; !known[button] {
			missing = append(missing, button)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("remote %s lacks buttons: %s", t.remote, strings.Join(missing, ", "))
	}

	return nil
}
