package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
)

// LogNotifier writes reminders to the structured log instead of sending them.
// It is used when no mail provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier. If logger is nil, the default logger is used.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, payload domain.ReminderPayload) error {
	msg := ComposeMessage(payload)
	if msg.To == "" {
		return nil
	}

	logger.FromContextOrDefault(ctx, n.logger).Info("reminder email",
		slog.Int64("task_id", payload.TaskID),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body))
	return nil
}
