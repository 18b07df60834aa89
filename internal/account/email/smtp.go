package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
)

// SMTPSender delivers mail through a single SMTP relay. A fresh dialer per
// send keeps this safe for concurrent use.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string

	// InsecureSkipVerify disables certificate verification. Dev only.
	InsecureSkipVerify bool
}

func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Prefer multipart/alternative (text + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify,
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
