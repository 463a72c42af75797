package auth

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Mailer delivers password reset codes.
type Mailer interface {
	SendResetCode(to, code string) error
}

// SMTPMailer sends reset codes through a plain SMTP relay.
type SMTPMailer struct {
	Addr string
	From string
}

func (m *SMTPMailer) SendResetCode(to, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Password reset\r\n\r\nYour password reset code is: %s\r\n",
		m.From, to, code,
	)
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// LogMailer logs reset codes instead of sending mail. Used in development
// when no SMTP relay is configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) SendResetCode(to, code string) error {
	m.Logger.Info("password reset code issued",
		zap.String("to", to),
		zap.String("code", code),
	)
	return nil
}
