package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	// Server address as host:port
	Addr     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp address %q. Err: %w", cfg.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp port %q. Err: %w", portStr, err)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp sender address must not be empty")
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (s *SMTPSender) newMessage(to string, subject string, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

// Send dials the server for every message
// gomail has no context support, so ctx is checked only before dialing
func (s *SMTPSender) Send(ctx context.Context, to string, subject string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(s.newMessage(to, subject, body)); err != nil {
		return fmt.Errorf("error while sending email. Err: %w", err)
	}

	return nil
}
