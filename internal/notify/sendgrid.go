package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskr-api/internal/config"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/platform/logger"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// mailSender is the subset of *sendgrid.Client used to send mail.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier sends reminder emails through the SendGrid API.
type SendGridNotifier struct {
	client   mailSender
	fromName string
	fromAddr string
	logger   *slog.Logger
}

var _ Notifier = (*SendGridNotifier)(nil)

// NewSendGridNotifier creates a notifier using the configured API key and sender.
func NewSendGridNotifier(cfg config.MailConfig, logger *slog.Logger) *SendGridNotifier {
	return newSendGridNotifier(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg, logger)
}

func newSendGridNotifier(client mailSender, cfg config.MailConfig, logger *slog.Logger) *SendGridNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridNotifier{
		client:   client,
		fromName: cfg.FromName,
		fromAddr: cfg.FromAddress,
		logger:   logger.With(slog.String("component", "sendgrid_notifier")),
	}
}

// Notify implements Notifier.
func (n *SendGridNotifier) Notify(ctx context.Context, payload domain.ReminderPayload) error {
	log := logger.FromContextOrDefault(ctx, n.logger)

	msg := ComposeMessage(payload)
	if msg.To == "" {
		log.Debug("reminder has no email address, skipping",
			slog.Int64("task_id", payload.TaskID))
		return nil
	}

	from := mail.NewEmail(n.fromName, n.fromAddr)
	to := mail.NewEmail("", msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	response, err := n.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	log.Info("reminder email sent",
		slog.Int64("task_id", payload.TaskID),
		slog.Int("status_code", response.StatusCode))
	return nil
}
