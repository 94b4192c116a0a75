// Package notify sends email summaries of backup runs over SMTP.
// Delivery failures are reported to the caller but are never treated as
// run failures; a backup that cannot announce itself is still a backup.
package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"text/template"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/jamesainslie/stash/pkg/stash/logging"
	"github.com/jamesainslie/stash/pkg/stash/types"
)

// Mailer sends run summaries to a single recipient.
type Mailer struct {
	cfg    config.NotifyConfig
	logger *logging.Logger
}

// NewMailer creates a Mailer from notification settings.
func NewMailer(cfg config.NotifyConfig) (*Mailer, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.SMTPPort == 0 {
		return nil, fmt.Errorf("smtp port is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if cfg.To == "" {
		return nil, fmt.Errorf("to address is required")
	}

	return &Mailer{
		cfg:    cfg,
		logger: logging.Get("notify"),
	}, nil
}

// runReportData is the template context for run summary emails.
type runReportData struct {
	Hostname    string
	Generation  string
	Destination string
	FilesFound  int64
	FilesCopied int64
	BytesCopied string
	Errors      int64
	Duration    string
	Pruned      []string
	Warnings    []string
	FailReason  string
}

const successTemplate = `Backup completed on {{.Hostname}}.

Generation:  {{.Generation}}
Destination: {{.Destination}}
Files:       {{.FilesCopied}} of {{.FilesFound}} copied
Copied:      {{.BytesCopied}}
Duration:    {{.Duration}}
{{- if .Errors}}
Errors:      {{.Errors}} (see log for details)
{{- end}}
{{- if .Pruned}}

Pruned generations:
{{- range .Pruned}}
  - {{.}}
{{- end}}
{{- end}}
{{- if .Warnings}}

Warnings:
{{- range .Warnings}}
  - {{.}}
{{- end}}
{{- end}}
`

const failureTemplate = `Backup FAILED on {{.Hostname}}.

Destination: {{.Destination}}
Reason:      {{.FailReason}}
Duration:    {{.Duration}}
{{- if .Warnings}}

Warnings:
{{- range .Warnings}}
  - {{.}}
{{- end}}
{{- end}}
`

// SendRunReport emails the outcome of a completed run.
func (m *Mailer) SendRunReport(stats types.RunStats, destination string) error {
	subject := fmt.Sprintf("stash backup completed: %s", stats.Generation)
	if stats.Errors > 0 {
		subject = fmt.Sprintf("stash backup completed with %d errors: %s",
			stats.Errors, stats.Generation)
	}

	body, err := renderBody(successTemplate, buildReportData(stats, destination, ""))
	if err != nil {
		return err
	}
	return m.send(subject, body)
}

// SendRunFailure emails the reason a run produced no generation.
func (m *Mailer) SendRunFailure(stats types.RunStats, destination string, reason error) error {
	subject := "stash backup failed"

	body, err := renderBody(failureTemplate, buildReportData(stats, destination, reason.Error()))
	if err != nil {
		return err
	}
	return m.send(subject, body)
}

// buildReportData assembles the template context for a run.
func buildReportData(stats types.RunStats, destination, failReason string) runReportData {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return runReportData{
		Hostname:    hostname,
		Generation:  stats.Generation,
		Destination: destination,
		FilesFound:  stats.FilesFound,
		FilesCopied: stats.FilesCopied,
		BytesCopied: types.FormatSize(stats.BytesCopied),
		Errors:      stats.Errors,
		Duration:    stats.Duration.Round(time.Millisecond).String(),
		Pruned:      stats.Pruned,
		Warnings:    stats.Warnings,
		FailReason:  failReason,
	}
}

// renderBody executes a message template.
func renderBody(tmpl string, data runReportData) (string, error) {
	t, err := template.New("report").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse mail template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("execute mail template: %w", err)
	}
	return body.String(), nil
}

// send delivers one message to the configured recipient.
func (m *Mailer) send(subject, body string) error {
	m.logger.Debug("sending email", "to", m.cfg.To, "subject", subject)

	msg := m.buildMessage(subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var err error
	if m.cfg.TLS {
		err = m.sendTLS(addr, msg)
	} else {
		err = m.sendPlain(addr, msg)
	}

	if err != nil {
		m.logger.Error("failed to send email", "to", m.cfg.To, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("email sent", "to", m.cfg.To, "subject", subject)
	return nil
}

// buildMessage constructs the email message with headers.
func (m *Mailer) buildMessage(subject, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", m.cfg.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", m.cfg.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// sendPlain sends email without TLS (for port 25 or trusted networks).
func (m *Mailer) sendPlain(addr string, msg []byte) error {
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	return smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, msg)
}

// sendTLS sends email over an implicit TLS connection (port 465).
func (m *Mailer) sendTLS(addr string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: m.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err = client.Rcpt(m.cfg.To); err != nil {
		return fmt.Errorf("smtp rcpt to %s: %w", m.cfg.To, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close message writer: %w", err)
	}

	return client.Quit()
}
