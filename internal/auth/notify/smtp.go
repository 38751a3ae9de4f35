// Package notify delivers one-time codes to users.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
)

// Encryption modes for the SMTP connection.
const (
	EncryptionStartTLS = "starttls"
	EncryptionSSL      = "ssl"
	EncryptionNone     = "none"
)

const (
	dialTimeout = 10 * time.Second
	sendTimeout = 30 * time.Second
)

var ErrNotConfigured = errors.New("notify: smtp host or sender not configured")

// SMTPConfig describes the outbound mail server.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Encryption string
}

// SMTP sends codes as plain-text email.
type SMTP struct {
	cfg     SMTPConfig
	now     func() time.Time
	timeout time.Duration
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("notify: invalid sender address: %w", err)
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	switch cfg.Encryption {
	case "":
		cfg.Encryption = EncryptionStartTLS
	case EncryptionStartTLS, EncryptionSSL, EncryptionNone:
	default:
		return nil, fmt.Errorf("notify: unknown smtp encryption %q", cfg.Encryption)
	}
	return &SMTP{cfg: cfg, now: time.Now, timeout: sendTimeout}, nil
}

// SendOTP mails code to email. The exchange is bounded by the context and
// by the send timeout, whichever ends first.
func (s *SMTP) SendOTP(ctx context.Context, email, code string, purpose domain.OTPPurpose) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}
	msg := composeMessage(from, email, purpose, code, s.now())

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("setting deadline: %w", err)
	}

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.Encryption == EncryptionStartTLS {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	return sendMessage(client, from.Address, email, msg)
}

func (s *SMTP) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	if s.cfg.Encryption == EncryptionSSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func (s *SMTP) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// sendMessage handles MAIL FROM, RCPT TO and DATA on a ready client.
func sendMessage(client *gosmtp.Client, from, to, msg string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

func subjectFor(purpose domain.OTPPurpose) string {
	if purpose == domain.OTPPurposeReset {
		return "Your password reset code"
	}
	return "Your sign-in verification code"
}

// composeMessage builds an RFC 2822 plain-text message.
func composeMessage(from mail.Address, to string, purpose domain.OTPPurpose, code string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subjectFor(purpose))
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	if purpose == domain.OTPPurposeReset {
		b.WriteString("Use the code below to reset your password.\r\n\r\n")
	} else {
		b.WriteString("Use the code below to finish signing in.\r\n\r\n")
	}
	fmt.Fprintf(&b, "    %s\r\n\r\n", code)
	b.WriteString("The code expires shortly and can be used once. If you did not request it, you can ignore this email.\r\n")
	return b.String()
}
