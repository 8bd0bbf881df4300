package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"yt-digest/shared/config"
)

type Sender struct {
	config *config.EmailConfig
	now    func() time.Time
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		now:    time.Now,
	}
}

// Send delivers one HTML message to every address in to. Port 465 uses
// implicit TLS; other ports upgrade with STARTTLS when the server offers it.
func (s *Sender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	msg, err := s.buildMessage(to, subject, htmlBody)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.deliver(client, to, msg); err != nil {
		return err
	}
	return client.Quit()
}

func (s *Sender) dial(ctx context.Context) (*smtp.Client, error) {
	host := s.config.SMTPServer
	addr := net.JoinHostPort(host, fmt.Sprint(s.config.SMTPPort))

	dialer := &net.Dialer{}
	var conn net.Conn
	var err error
	if s.config.SMTPPort == 465 {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start SMTP session with %s: %w", addr, err)
	}

	if s.config.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				client.Close()
				return nil, fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if s.config.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			client.Close()
			return nil, fmt.Errorf("SMTP authentication failed: %s does not offer AUTH", addr)
		}
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	return client, nil
}

func (s *Sender) deliver(client *smtp.Client, to []string, msg []byte) error {
	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("RCPT TO %s rejected: %w", addr, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}
	return nil
}

func (s *Sender) buildMessage(to []string, subject, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	domain := "localhost"
	if _, d, ok := strings.Cut(s.config.FromEmail, "@"); ok && d != "" {
		domain = d
	}

	headers := [][2]string{
		{"From", s.config.FromEmail},
		{"To", strings.Join(to, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="UTF-8"`},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
