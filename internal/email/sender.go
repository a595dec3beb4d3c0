// Package email provides email delivery for MeetAI.
// It supports both development mode (log-only) and production mode (SMTP).
package email

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strconv"
)

// Sender defines the interface for sending emails
type Sender interface {
	SendVerificationCode(email, code string) error
	SendWelcome(email, name string) error
	SendEmailEvent(event EmailEvent) error
}

// Config holds email configuration
type Config struct {
	Mode     string // "log" or "smtp"
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// NewConfig creates a new email configuration from environment variables
func NewConfig() *Config {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))

	return &Config{
		Mode:     getEnvOrDefault("EMAIL_MODE", "log"),
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnvOrDefault("SMTP_FROM", "noreply@meetai.app"),
		FromName: getEnvOrDefault("SMTP_FROM_NAME", "MeetAI"),
	}
}

// NewSender creates a new email sender based on configuration
func NewSender(cfg *Config) Sender {
	if cfg.Mode == "smtp" {
		return &smtpSender{config: cfg}
	}
	return &logSender{}
}

// logSender logs emails to console (development mode)
type logSender struct{}

func (s *logSender) SendVerificationCode(email, code string) error {
	log.Printf("[DEV] Verification code for %s: %s (expires in 10 minutes)", email, code)
	return nil
}

func (s *logSender) SendWelcome(email, name string) error {
	log.Printf("[DEV] Welcome email for %s (name: %s)", email, name)
	return nil
}

func (s *logSender) SendEmailEvent(event EmailEvent) error {
	return dispatchEvent(s, event)
}

// smtpSender sends emails via SMTP (production mode)
type smtpSender struct {
	config *Config
}

func (s *smtpSender) SendVerificationCode(email, code string) error {
	subject := "Your MeetAI verification code"
	body := fmt.Sprintf(`
		<html>
		<body style="font-family: sans-serif;">
			<h2>Verify your email</h2>
			<p>Your MeetAI verification code is:</p>
			<p style="font-size: 28px; letter-spacing: 4px;"><strong>%s</strong></p>
			<p>The code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
		</body>
		</html>
	`, code)

	if err := s.send(email, subject, body); err != nil {
		return err
	}

	log.Printf("Verification code sent to %s via SMTP", email)
	return nil
}

func (s *smtpSender) SendWelcome(email, name string) error {
	subject := "Welcome to MeetAI"
	body := fmt.Sprintf(`
		<html>
		<body style="font-family: sans-serif;">
			<h2>Welcome, %s!</h2>
			<p>Your MeetAI account is ready. Create an agent and start your first conversation.</p>
		</body>
		</html>
	`, name)

	if err := s.send(email, subject, body); err != nil {
		return err
	}

	log.Printf("Welcome email sent to %s via SMTP", email)
	return nil
}

func (s *smtpSender) SendEmailEvent(event EmailEvent) error {
	return dispatchEvent(s, event)
}

// send constructs and delivers a single HTML email
func (s *smtpSender) send(to, subject, body string) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// dispatchEvent maps an EmailEvent onto the matching sender method
func dispatchEvent(s Sender, event EmailEvent) error {
	switch event.EventType {
	case EmailTypeVerificationCode:
		code, ok := event.Data["code"].(string)
		if !ok {
			return fmt.Errorf("invalid verification code data")
		}
		return s.SendVerificationCode(event.Recipient, code)
	case EmailTypeWelcome:
		name, _ := event.Data["name"].(string)
		return s.SendWelcome(event.Recipient, name)
	default:
		return fmt.Errorf("unsupported email type: %s", event.EventType)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
