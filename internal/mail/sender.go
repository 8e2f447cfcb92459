// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

// Package mail delivers verification codes by email.
package mail

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"

	"github.com/katarogu/katarogu/internal/auth"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

const verificationSubject = "Your katarogu verification code"

// DefaultSendTimeout bounds one SMTP delivery when SMTPConfig.Timeout is zero.
const DefaultSendTimeout = 15 * time.Second

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds one delivery, dial included.
	Timeout time.Duration
}

// dialer is the part of *gomail.Dialer used to send.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type verificationData struct {
	Name string
	Code string
	TTL  time.Duration
}

// SMTPSender sends verification codes through an SMTP relay.
type SMTPSender struct {
	dialer  dialer
	from    string
	ttl     time.Duration
	timeout time.Duration
}

// NewSMTPSender creates an SMTPSender. codeTTL is only quoted in the message body.
func NewSMTPSender(cfg SMTPConfig, codeTTL time.Duration) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, oops.Code("MAIL_INVALID_CONFIG").
			With("host", cfg.Host).
			With("port", cfg.Port).
			Errorf("smtp host and port are required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("from address is required")
	}
	if cfg.Timeout < 0 {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("timeout", cfg.Timeout).Errorf("timeout must not be negative")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultSendTimeout
	}
	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		ttl:     codeTTL,
		timeout: timeout,
	}, nil
}

// SendVerificationCode emails code to the user. It returns once the relay
// accepts the message, ctx is done, or the send timeout passes, whichever
// comes first. An abandoned delivery finishes in the background.
func (s *SMTPSender) SendVerificationCode(ctx context.Context, to, name, code string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_CANCELLED").Wrap(err)
	}

	msg, err := s.verificationMessage(to, name, code)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// gomail's dialer takes no context.
	sent := make(chan error, 1)
	go func() { sent <- s.dialer.DialAndSend(msg) }()

	select {
	case err := <-sent:
		if err != nil {
			return oops.Code("MAIL_SEND_FAILED").
				With("operation", "smtp send").
				Wrap(err)
		}
		return nil
	case <-ctx.Done():
		return oops.Code("MAIL_SEND_CANCELLED").
			With("timeout", s.timeout).
			Wrap(ctx.Err())
	}
}

func (s *SMTPSender) verificationMessage(to, name, code string) (*gomail.Message, error) {
	data := verificationData{Name: name, Code: code, TTL: s.ttl}

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "verification.html", data); err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", "verification.html").Wrap(err)
	}
	if err := textTemplates.ExecuteTemplate(&text, "verification.txt", data); err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", "verification.txt").Wrap(err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", verificationSubject)
	m.SetBody("text/plain", text.String())
	m.AddAlternative("text/html", html.String())
	return m, nil
}

// LogSender writes codes to the log instead of sending them. For development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger selects slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendVerificationCode logs the code.
func (s *LogSender) SendVerificationCode(ctx context.Context, to, name, code string) error {
	s.logger.InfoContext(ctx, "verification code", "to", to, "name", name, "code", code)
	return nil
}

var (
	_ auth.CodeSender = (*SMTPSender)(nil)
	_ auth.CodeSender = (*LogSender)(nil)
)
