// Package notify provides notification transports for dispatched reminders.
// Every transport is best-effort: one attempt, no retries.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log writes notifications to the log instead of delivering them. It is the
// default transport and is useful for local runs and tests.
type Log struct {
	Logger zerolog.Logger
}

func (l *Log) Send(_ context.Context, recipient, subject, body string) error {
	l.Logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("notification")

	return nil
}

// SMTP delivers notifications over SMTP. When Username is empty the
// connection is unauthenticated.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s *SMTP) Send(_ context.Context, recipient, subject, body string) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	err := smtp.SendMail(addr, auth, s.From, []string{recipient}, s.message(recipient, subject, body))
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", recipient, err)
	}

	return nil
}

func (s *SMTP) message(recipient, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	return []byte(b.String())
}
