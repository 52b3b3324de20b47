package notify

import (
	"context"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LogNotifier delivers notices through the structured log; the
// dashboard picks them up from the response payloads, so the log is
// the operator-facing copy.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new log-backed notifier
func NewLogNotifier(logger zerolog.Logger) ports.Notifier {
	return &LogNotifier{logger: logger}
}

// Notify records one user-visible notice
func (n *LogNotifier) Notify(ctx context.Context, notification domain.Notification) {
	event := n.logger.Info()
	if notification.Level == domain.NoticeFailure {
		event = n.logger.Warn()
	}
	event.
		Str("level", string(notification.Level)).
		Str("service", notification.ServiceName).
		Str("message", notification.Message).
		Msg("User notification")
}
