package notify

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPValidation(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSMTP(SMTPConfig{Host: "mail", From: "not an address"})
	require.Error(t, err)

	_, err = NewSMTP(SMTPConfig{Host: "mail", From: "auth@example.com", Encryption: "tls13"})
	require.Error(t, err)

	s, err := NewSMTP(SMTPConfig{Host: "mail", From: "auth@example.com"})
	require.NoError(t, err)
	require.Equal(t, 587, s.cfg.Port)
	require.Equal(t, EncryptionStartTLS, s.cfg.Encryption)
}

func TestComposeMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	from := mail.Address{Name: "Portfolio", Address: "auth@example.com"}

	msg := composeMessage(from, "alice@example.com", domain.OTPPurposeLogin, "123456", now)
	require.Contains(t, msg, "From: \"Portfolio\" <auth@example.com>\r\n")
	require.Contains(t, msg, "To: alice@example.com\r\n")
	require.Contains(t, msg, "Subject: Your sign-in verification code\r\n")
	require.Contains(t, msg, "Date: Sun, 01 Mar 2026 12:00:00 +0000\r\n")
	require.Contains(t, msg, "\r\n\r\n")
	require.Contains(t, msg, "123456")

	reset := composeMessage(from, "alice@example.com", domain.OTPPurposeReset, "654321", now)
	require.Contains(t, reset, "Subject: Your password reset code\r\n")
	require.Contains(t, reset, "reset your password")
}

// fakeSMTPServer accepts one plain SMTP session and returns the DATA payload.
func fakeSMTPServer(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 localhost ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- data.String()
					reply("250 OK")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				reply("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 OK")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, out
}

func TestSMTPSendOTPPlain(t *testing.T) {
	port, out := fakeSMTPServer(t)

	s, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: port, From: "auth@example.com", Encryption: EncryptionNone})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.SendOTP(ctx, "alice@example.com", "123456", domain.OTPPurposeLogin))

	select {
	case body := <-out:
		require.Contains(t, body, "Subject: Your sign-in verification code")
		require.Contains(t, body, "123456")
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestSMTPSendOTPUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	s, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "auth@example.com", Encryption: EncryptionNone})
	require.NoError(t, err)
	require.Error(t, s.SendOTP(context.Background(), "alice@example.com", "123456", domain.OTPPurposeReset))
}

func TestSMTPSendOTPSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept and never send a greeting
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	s, err := NewSMTP(SMTPConfig{
		Host:       "127.0.0.1",
		Port:       ln.Addr().(*net.TCPAddr).Port,
		From:       "auth@example.com",
		Encryption: EncryptionNone,
	})
	require.NoError(t, err)
	require.Equal(t, sendTimeout, s.timeout)
	s.timeout = 200 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- s.SendOTP(context.Background(), "alice@example.com", "123456", domain.OTPPurposeLogin)
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("SendOTP did not give up on a silent server")
	}
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, Log{}.SendOTP(context.Background(), "a@example.com", "000000", domain.OTPPurposeLogin))
}
