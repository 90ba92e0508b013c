package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New выбирает SMTP, если задан хост, иначе письма только пишутся в лог.
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST is empty, emails will be logged instead of sent")
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg, dialTimeout: 10 * time.Second}
}

type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("from", msg.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Email dispatched to log")
	return nil
}

type SMTPMailer struct {
	cfg         config.SMTPConfig
	dialTimeout time.Duration
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.cfg.From
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	dialer := &net.Dialer{Timeout: m.dialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.SSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mailer: failed to dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mailer: failed to create smtp client: %w", err)
	}
	defer client.Close()

	if !m.cfg.SSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("mailer: starttls failed: %w", err)
			}
		}
	}

	if m.cfg.User != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mailer: smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("mailer: MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("mailer: RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA failed: %w", err)
	}
	if _, err := w.Write(buildMessage(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: failed to finish message: %w", err)
	}

	return client.Quit()
}

func buildMessage(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
