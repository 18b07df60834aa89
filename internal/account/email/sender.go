// Package email delivers transactional mail for accountd. The OTP service
// depends only on the Sender interface; the SMTP implementation is swapped
// for a log-only sender in dev and for fakes in tests.
package email

import "log/slog"

type Sender interface {
	Send(to string, subject string, htmlBody string, textBody string) error
}

// LogSender writes the message to the log instead of delivering it. Used in
// dev environments without SMTP configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(to, subject, htmlBody, textBody string) error {
	s.Logger.Info("email suppressed (no SMTP configured)",
		"to", to,
		"subject", subject,
		"body", textBody,
	)
	return nil
}
