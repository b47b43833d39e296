package smtp

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"mailbuddy/internal/config"
)

const SuccessMessage = "Email sent successfully!"

var errNoRecipients = errors.New("no recipients provided")

// AuthError marks a rejected login so callers can tell it apart from other
// delivery failures.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "smtp auth: " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

func dial(cfg config.Config) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	tlsConfig := &tls.Config{
		ServerName:         cfg.SMTP.Host,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed servers
	}

	switch {
	case cfg.SMTP.TLS:
		return smtp.DialTLS(addr, tlsConfig)
	case cfg.SMTP.StartTLS:
		return smtp.DialStartTLS(addr, tlsConfig)
	default:
		return smtp.Dial(addr)
	}
}

// Send authenticates with the configured credentials and submits msg.
func Send(cfg config.Config, from string, recipients []string, msg []byte) error {
	if len(recipients) == 0 {
		return errNoRecipients
	}

	c, err := dial(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	if cfg.Auth.Password != "" {
		auth := sasl.NewPlainClient("", cfg.Auth.Username, cfg.Auth.Password)
		if err := c.Auth(auth); err != nil {
			return &AuthError{Err: err}
		}
	}

	if err := c.SendMail(from, recipients, bytes.NewReader(msg)); err != nil {
		return err
	}
	return c.Quit()
}

// Deliver wraps Send for callers that want a status and a message to show
// rather than an error value.
func Deliver(cfg config.Config, from string, recipients []string, msg []byte) (bool, string) {
	err := Send(cfg, from, recipients, msg)
	if err == nil {
		return true, SuccessMessage
	}
	return false, Describe(err)
}

// Describe turns a Send error into a user-facing sentence.
func Describe(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return "Authentication failed. Check your email and app password."
	}
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return "SMTP error: " + smtpErr.Error()
	}
	return "Error sending email: " + err.Error()
}
