package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const bodyPreview = 200

// Email is a message accepted by the mock sender.
type Email struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// EmailSender is a mock: messages are logged and kept in memory, never sent.
type EmailSender struct {
	log *slog.Logger

	mu     sync.Mutex
	outbox []Email
}

func NewEmailSender(log *slog.Logger) *EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &EmailSender{log: log}
}

func (*EmailSender) Name() string { return "email_sender" }

func (*EmailSender) Description() string { return "Send email: recipient|subject|body" }

type emailResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (s *EmailSender) Call(_ context.Context, input string) (string, error) {
	parts := strings.SplitN(input, "|", 3)
	if len(parts) != 3 {
		return fail(errors.New("expected input of the form recipient|subject|body"))
	}
	recipient := strings.TrimSpace(parts[0])
	if recipient == "" {
		return fail(errors.New("recipient is empty"))
	}
	msg := Email{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Subject:   strings.TrimSpace(parts[1]),
		Body:      parts[2],
		QueuedAt:  time.Now().UTC(),
	}
	s.log.Info("mock email",
		"to", msg.Recipient,
		"subject", msg.Subject,
		"body", preview(msg.Body, bodyPreview))

	s.mu.Lock()
	s.outbox = append(s.outbox, msg)
	s.mu.Unlock()

	return encode(emailResult{Success: true, Message: "Email queued (mock)", ID: msg.ID})
}

// Outbox returns the messages queued so far, oldest first.
func (s *EmailSender) Outbox() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Email, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// preview returns the first n runes of s.
func preview(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
