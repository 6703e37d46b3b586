package service

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers a single message. Delivery is best-effort; callers decide
// whether a failure matters.
type Mailer interface {
	Send(to, subject, body string) error
}

// LogMailer writes messages to the process log instead of delivering them.
// Used in development and tests when no SMTP server is configured.
type LogMailer struct{}

// Send logs the message and reports success.
func (LogMailer) Send(to, subject, _ string) error {
	log.Printf("mail (not sent, no SMTP configured): to=%s subject=%q", to, subject)
	return nil
}

// SMTPMailer delivers mail through a plain SMTP server.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Send delivers one message, authenticating when credentials are configured.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
