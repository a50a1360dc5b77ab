package mailer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/unclebandit/crm-backend/internal/config"
)

// Sender delivers one HTML email. It either succeeds or returns the
// transport's reason for failing; callers never retry.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New picks the transport named by MAIL_DRIVER.
func New(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "ses":
		return NewSESSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// ValidateAddress accepts a bare address or a "Name <addr>" form and returns
// the bare address.
func ValidateAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("empty email address")
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", address, err)
	}
	return parsed.Address, nil
}

// fromHeader renders `"Name" <email>`, or the bare address without a name.
func fromHeader(name, email string) string {
	if name == "" {
		return email
	}
	return (&mail.Address{Name: name, Address: email}).String()
}
