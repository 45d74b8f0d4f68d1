package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// SMTPConfig is read from the key/value store under smtp_* keys.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
}

func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

type sendFunc func(cfg SMTPConfig, to []string, msg []byte) error

// EmailSink mails alerts as a text/HTML message with the PDF report attached.
type EmailSink struct {
	kv     interfaces.KeyValueStorage
	to     []string
	md     goldmark.Markdown
	send   sendFunc
	logger arbor.ILogger
}

// NewEmailSink creates a sink delivering to the given recipients.
func NewEmailSink(kv interfaces.KeyValueStorage, to []string, logger arbor.ILogger) *EmailSink {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &EmailSink{
		kv:     kv,
		to:     to,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify)),
		send:   sendSMTP,
		logger: logger,
	}
}

// LoadSMTPConfig reads smtp_host, smtp_port, smtp_username, smtp_password,
// smtp_from, smtp_from_name and smtp_use_tls.
func LoadSMTPConfig(ctx context.Context, kv interfaces.KeyValueStorage) SMTPConfig {
	cfg := SMTPConfig{Port: 587, UseTLS: true, FromName: "Vigil"}
	if kv == nil {
		return cfg
	}
	get := func(key string) string {
		v, err := kv.Get(ctx, key)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}

	cfg.Host = get("smtp_host")
	if port, err := strconv.Atoi(get("smtp_port")); err == nil && port > 0 {
		cfg.Port = port
	}
	cfg.Username = get("smtp_username")
	cfg.Password = get("smtp_password")
	cfg.From = get("smtp_from")
	if name := get("smtp_from_name"); name != "" {
		cfg.FromName = name
	}
	if v := get("smtp_use_tls"); v != "" {
		cfg.UseTLS = v == "true" || v == "1"
	}
	return cfg
}

func (s *EmailSink) Notify(ctx context.Context, alert models.Alert) error {
	if len(s.to) == 0 {
		return nil
	}
	cfg := LoadSMTPConfig(ctx, s.kv)
	if !cfg.IsConfigured() {
		s.logger.Debug().Msg("SMTP not configured, skipping email alert")
		return nil
	}

	msg, err := s.buildMessage(cfg, alert)
	if err != nil {
		return err
	}
	if err := s.send(cfg, s.to, msg); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	s.logger.Info().Strs("to", s.to).Str("symbol", alert.Symbol).Msg("Alert email sent")
	return nil
}

func (s *EmailSink) buildMessage(cfg SMTPConfig, alert models.Alert) ([]byte, error) {
	markdown := AlertMarkdown(alert)
	var htmlBody bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &htmlBody); err != nil {
		return nil, fmt.Errorf("failed to render alert: %w", err)
	}
	report, err := RenderPDF(markdown, alert.Title)
	if err != nil {
		return nil, err
	}

	to := make([]*mail.Address, 0, len(s.to))
	for _, addr := range s.to {
		to = append(to, &mail.Address{Address: addr})
	}

	var h mail.Header
	date := alert.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: cfg.FromName, Address: cfg.From}})
	h.SetAddressList("To", to)
	h.SetSubject(alert.Title)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	for _, part := range []struct {
		contentType string
		body        []byte
	}{
		{"text/plain", []byte(markdown)},
		{"text/html", htmlBody.Bytes()},
	} {
		var ih mail.InlineHeader
		ih.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		w, err := tw.CreatePart(ih)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(part.body); err != nil {
			return nil, err
		}
		w.Close()
	}
	tw.Close()

	var ah mail.AttachmentHeader
	ah.SetContentType("application/pdf", nil)
	ah.SetFilename(reportName(alert, ".pdf"))
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, err
	}
	if _, err := aw.Write(report); err != nil {
		return nil, err
	}
	aw.Close()

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sendSMTP tries implicit TLS first and falls back to STARTTLS.
func sendSMTP(cfg SMTPConfig, to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if !cfg.UseTLS {
		return smtp.SendMail(addr, auth, cfg.From, to, msg)
	}

	tlsConfig := &tls.Config{ServerName: cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Port 587 speaks plain SMTP until STARTTLS
		return sendWithSTARTTLS(addr, tlsConfig, auth, cfg.From, to, msg)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()
	return deliver(client, auth, cfg.From, to, msg)
}

func sendWithSTARTTLS(addr string, tlsConfig *tls.Config, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	return deliver(client, auth, from, to, msg)
}

func deliver(client *smtp.Client, auth smtp.Auth, from string, to []string, msg []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
