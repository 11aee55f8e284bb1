package app

import (
	"context"
	"log/slog"
)

// Mailer delivers the verification message for a freshly registered address.
// The default implementation only logs; a real delivery backend plugs in
// here.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// LogMailer writes the verification token to the log instead of sending
// mail. Useful in dev and as the default until an SMTP backend is wired.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.Logger.Info("verification email (log only)",
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}
