package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/logger"
)

// Sender delivers a rendered template to one recipient
type Sender interface {
	Send(templateName, to string, data map[string]string) error
}

type SMTPSender struct {
	cfg    *sharedConfig.EmailConfig
	dialer *gomail.Dialer
	logger logger.Interface
}

func NewSMTPSender(cfg *sharedConfig.EmailConfig, logger logger.Interface) Sender {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)

	return &SMTPSender{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.Named("email"),
	}
}

func (s *SMTPSender) Send(templateName, to string, data map[string]string) error {
	subject, htmlBody, plainBody, err := Render(templateName, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.FromAddress, s.cfg.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infow("email sent", "template", templateName, "to", to)
	return nil
}
