// Package mail delivers password reset codes by SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/Organisation-de-merge/backend-cesizen/pkg/config"
)

const resetSubject = "Réinitialisation de votre mot de passe CesiZen"

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Bonjour,</p>
<p>Voici votre code de réinitialisation : <strong>{{.Code}}</strong></p>
<p>Ce code expire dans {{.Minutes}} minutes.</p>
<p>Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.</p>`))

// Sender hands reset codes to the user's mailbox.
type Sender interface {
	SendResetCode(ctx context.Context, email, code string, ttl time.Duration) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends messages through an SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

// NewSMTPSender builds an SMTPSender from configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendResetCode renders the reset message and sends it.
func (s *SMTPSender) SendResetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := RenderResetBody(code, ttl)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", resetSubject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

// RenderResetBody returns the HTML body of a reset message.
func RenderResetBody(code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(ttl.Minutes())}
	if err := resetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset body: %w", err)
	}
	return buf.String(), nil
}

// LogSender logs reset codes instead of sending them. Used when SMTP is off.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// SendResetCode writes the code to the log at debug level.
func (s *LogSender) SendResetCode(_ context.Context, email, code string, ttl time.Duration) error {
	s.logger.Debug("reset code generated (smtp disabled)",
		zap.String("email", email),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// New selects the sender matching the configuration.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if !cfg.Enabled {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg)
}
