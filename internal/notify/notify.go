// Package notify shows desktop notifications for dictation status changes.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const title = "gostt-prompt"

// Notifier sends desktop notifications. A disabled Notifier only logs.
type Notifier struct {
	enabled bool
	logger  *slog.Logger
	send    func(title, message string) error
}

// New creates a Notifier.
func New(enabled bool, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		enabled: enabled,
		logger:  logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify shows message. Delivery failures are logged and otherwise ignored.
func (n *Notifier) Notify(message string) {
	n.logger.Debug("notification", "message", message, "enabled", n.enabled)
	if !n.enabled {
		return
	}
	if err := n.send(title, message); err != nil {
		n.logger.Warn("desktop notification failed", "error", err)
	}
}
