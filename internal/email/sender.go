// Package email delivers rendered HTML messages.  The Sender
// interface keeps the service layer testable; SMTPSender is the real
// implementation and Mock records messages for tests.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
)

// Sender sends one HTML message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPSender sends mail through a single SMTP host.  Auth is plain
// and only used when a password is configured.
type SMTPSender struct {
	Host     string // host or host:port; port 587 is assumed when absent
	From     string
	Password string
}

// NewSMTPSender builds a sender for the given relay.
func NewSMTPSender(host, from, password string) *SMTPSender {
	return &SMTPSender{Host: host, From: from, Password: password}
}

// Send delivers the message.  Any transport failure is wrapped so the
// caller can surface a uniform delivery error.
func (s *SMTPSender) Send(_ context.Context, to, subject, html string) error {
	addr := s.Host
	host := s.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	} else {
		addr = host + ":587"
	}

	var auth smtp.Auth
	if s.Password != "" {
		auth = smtp.PlainAuth("", s.From, s.Password, host)
	}

	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		html,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Mock records sent messages in memory.  Safe for concurrent use.
type Mock struct {
	mu   sync.Mutex
	Sent []MockMessage
	// Err, when set, is returned by Send to simulate delivery failure.
	Err error
}

// MockMessage is one recorded delivery.
type MockMessage struct {
	To      string
	Subject string
	HTML    string
}

func (m *Mock) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, MockMessage{To: to, Subject: subject, HTML: html})
	return nil
}

// Count returns how many messages were recorded.
func (m *Mock) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
