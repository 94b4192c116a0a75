package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/jamesainslie/stash/pkg/stash/types"
)

func validConfig() config.NotifyConfig {
	return config.NotifyConfig{
		Enabled:  true,
		To:       "ops@example.com",
		From:     "stash@example.com",
		SMTPHost: "mail.example.com",
		SMTPPort: 587,
	}
}

func TestNewMailerValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.NotifyConfig)
		wantErr bool
	}{
		{"valid", func(c *config.NotifyConfig) {}, false},
		{"missing host", func(c *config.NotifyConfig) { c.SMTPHost = "" }, true},
		{"missing port", func(c *config.NotifyConfig) { c.SMTPPort = 0 }, true},
		{"missing from", func(c *config.NotifyConfig) { c.From = "" }, true},
		{"missing to", func(c *config.NotifyConfig) { c.To = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := NewMailer(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMailer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSuccessTemplateRendering(t *testing.T) {
	stats := types.RunStats{
		Generation:  "stash-20260615-103000",
		FilesFound:  50,
		FilesCopied: 49,
		BytesCopied: 2 * types.MiB,
		Errors:      1,
		Pruned:      []string{"stash-20260601-103000"},
		Duration:    90 * time.Second,
		Warnings:    []string{"copy failed: /data/locked.db"},
	}

	body, err := renderBody(successTemplate, buildReportData(stats, "/mnt/backup", ""))
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}

	for _, want := range []string{
		"stash-20260615-103000",
		"/mnt/backup",
		"49 of 50 copied",
		"Errors:      1",
		"stash-20260601-103000",
		"copy failed: /data/locked.db",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSuccessTemplateOmitsEmptySections(t *testing.T) {
	stats := types.RunStats{
		Generation:  "stash-20260615-103000",
		FilesFound:  10,
		FilesCopied: 10,
		Duration:    time.Second,
	}

	body, err := renderBody(successTemplate, buildReportData(stats, "/mnt/backup", ""))
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}

	if strings.Contains(body, "Errors:") {
		t.Errorf("clean run should not mention errors:\n%s", body)
	}
	if strings.Contains(body, "Pruned") || strings.Contains(body, "Warnings") {
		t.Errorf("empty sections should be omitted:\n%s", body)
	}
}

func TestFailureTemplateRendering(t *testing.T) {
	stats := types.RunStats{Duration: 2 * time.Second}
	data := buildReportData(stats, "/mnt/backup", "destination below free-space threshold")

	body, err := renderBody(failureTemplate, data)
	if err != nil {
		t.Fatalf("renderBody: %v", err)
	}

	if !strings.Contains(body, "FAILED") {
		t.Errorf("body missing failure marker:\n%s", body)
	}
	if !strings.Contains(body, "destination below free-space threshold") {
		t.Errorf("body missing failure reason:\n%s", body)
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	m, err := NewMailer(validConfig())
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}

	msg := string(m.buildMessage("stash backup completed", "body text"))

	for _, want := range []string{
		"From: stash@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: stash backup completed\r\n",
		"Content-Type: text/plain",
		"\r\n\r\nbody text",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
