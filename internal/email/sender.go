// Package email sends transactional mail (login links, weekly recaps).
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

type Sender interface {
	Send(to, subject, html string) error
}

// StdoutSender logs mail instead of sending it. Used in development
// when no SMTP address is configured.
type StdoutSender struct{}

func (StdoutSender) Send(to, subject, html string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("EMAIL\n" + html)
	return nil
}

// SMTPSender delivers mail over a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
}

func NewSMTPSender(addr, from string) SMTPSender {
	return SMTPSender{Addr: addr, From: from}
}

func (s SMTPSender) Send(to, subject, html string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		html,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
