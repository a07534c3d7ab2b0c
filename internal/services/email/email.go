// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Sender delivers a plain text email.
type Sender interface {
	Send(to, subject, body string) error
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Service renders and sends application emails.
type Service struct {
	sender Sender
}

// NewService creates an email service. Without an SMTP host, emails are
// written to the log instead of being sent.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if !cfg.Enabled() {
		slog.Warn("SMTP not configured, emails will be logged")
		return NewServiceWithSender(LogSender{}), nil
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return NewServiceWithSender(&SMTPSender{cfg: cfg}), nil
}

// NewServiceWithSender creates an email service with a custom sender.
func NewServiceWithSender(sender Sender) *Service {
	return &Service{sender: sender}
}

// SendOTP sends a verification code.
func (s *Service) SendOTP(ctx context.Context, toEmail, code string) error {
	subject := i18n.T(ctx, "email_otp_subject")
	body := i18n.TData(ctx, "email_otp_body", map[string]any{
		"Code": code,
	})

	return s.sender.Send(toEmail, subject, body)
}

// SendContact forwards a contact form message to the operator inbox.
func (s *Service) SendContact(ctx context.Context, recipient string, msg ContactMessage) error {
	if recipient == "" {
		return fmt.Errorf("contact recipient is not configured")
	}

	subject := i18n.TData(ctx, "email_contact_subject", map[string]any{
		"Subject": msg.Subject,
	})
	body := i18n.TData(ctx, "email_contact_body", map[string]any{
		"Name":    msg.Name,
		"Email":   msg.Email,
		"Message": msg.Message,
	})

	return s.sender.Send(recipient, subject, body)
}

// LogSender writes emails to the log.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(to, subject, body string) error {
	slog.Info("email_logged", "to", to, "subject", subject, "body", body)
	return nil
}

// SMTPSender sends emails via SMTP using go-mail.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

// Send implements Sender.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *SMTPSender) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}
