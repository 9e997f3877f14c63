// Package notify delivers task reminders to their recipients.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/taskr-api/internal/domain"
)

// Notifier delivers a reminder for one task snapshot.
// Implementations return nil without sending when the payload has no
// email address. A returned error is terminal for that delivery.
type Notifier interface {
	Notify(ctx context.Context, payload domain.ReminderPayload) error
}

// Message is a composed reminder email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ComposeMessage renders the plain-text reminder email for payload.
func ComposeMessage(payload domain.ReminderPayload) Message {
	var body strings.Builder
	body.WriteString("Your task is about to be due with the following details:\n")
	fmt.Fprintf(&body, "Title: %s\n", payload.Title)
	fmt.Fprintf(&body, "Description: %s\n", payload.Description)
	fmt.Fprintf(&body, "Due date: %s\n", domain.FormatDueDate(payload.DueDate))
	fmt.Fprintf(&body, "Status: %s\n", payload.Status)

	return Message{
		To:      strings.TrimSpace(payload.EmailAddress),
		Subject: "Task about to be due: " + payload.Title,
		Body:    body.String(),
	}
}
