package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/domodwyer/mailyak/v3"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends mail through a single SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	mail := mailyak.New(net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)), a)
	mail.To(msg.To)
	mail.From(m.cfg.From)
	if m.cfg.FromName != "" {
		mail.FromName(m.cfg.FromName)
	}
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTML)
	if msg.Text != "" {
		mail.Plain().Set(msg.Text)
	}
	if err := mail.Send(); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent, no SMTP host configured", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
