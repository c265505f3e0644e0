package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends transactional mail
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	cfg EmailConfig
}

// NewSMTPMailer creates a mailer for the given SMTP settings
func NewSMTPMailer(cfg EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one HTML message
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendRefundOTP mails the refund confirmation code to an admin
func SendRefundOTP(m Mailer, to, otp string) error {
	body := fmt.Sprintf(`
		<h2>Refund confirmation</h2>
		<p>Use the following code to confirm the refund you requested:</p>
		<h1 style="font-size: 32px; letter-spacing: 5px;">%s</h1>
		<p>This code expires in 10 minutes. If you did not request a refund, contact the platform owner immediately.</p>
	`, otp)
	return m.Send(to, "StudyHub refund confirmation code", body)
}
