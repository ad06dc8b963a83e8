// Package dispatch delivers finished task results: email with the artifact
// attached, and a verbatim JSON POST to a callback URL. Both are one-shot;
// retrying is the consumer's concern.
package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.DispatcherPort = (*Dispatcher)(nil)

type Config struct {
	SendGridAPIKey string
	FromName       string
	FromAddress    string
	HTTPTimeout    time.Duration
}

func DefaultConfig(apiKey, fromAddress string) Config {
	return Config{
		SendGridAPIKey: apiKey,
		FromName:       "Task Agent",
		FromAddress:    fromAddress,
		HTTPTimeout:    30 * time.Second,
	}
}

type Dispatcher struct {
	cfg    Config
	client *http.Client
	logger output.LoggerPort

	// send is swapped in tests; sendgrid has no interface seam.
	send func(email *mail.SGMailV3) error
}

func New(cfg Config, logger output.LoggerPort) *Dispatcher {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
	d.send = d.sendViaSendGrid
	return d
}

// Deliver runs every configured channel once and reports the first failure.
// Email goes out only for successful results carrying an artifact; the
// callback receives every result verbatim.
func (d *Dispatcher) Deliver(ctx context.Context, cfg entity.OutputConfig, result *entity.ExecutionResult) error {
	if len(cfg.Recipients) > 0 && result.Success && result.ArtifactPath != "" {
		if err := d.deliverEmail(cfg.Recipients, result); err != nil {
			return err
		}
	}
	if cfg.CallbackURL != "" {
		if err := d.deliverCallback(ctx, cfg.CallbackURL, result); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) deliverEmail(recipients []string, result *entity.ExecutionResult) error {
	data, err := os.ReadFile(result.ArtifactPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	filename := filepath.Base(result.ArtifactPath)
	subject := fmt.Sprintf("Task result: %s", result.TaskType)
	body := fmt.Sprintf("The %s task finished in %dms. The artifact %s is attached.",
		result.TaskType, result.DurationMs, filename)

	from := mail.NewEmail(d.cfg.FromName, d.cfg.FromAddress)

	email := mail.NewV3Mail()
	email.SetFrom(from)
	email.Subject = subject
	email.AddContent(mail.NewContent("text/plain", body))

	personalization := mail.NewPersonalization()
	for _, r := range recipients {
		personalization.AddTos(mail.NewEmail("", r))
	}
	email.AddPersonalizations(personalization)

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(data))
	attachment.SetFilename(filename)
	attachment.SetDisposition("attachment")
	email.AddAttachment(attachment)

	if err := d.send(email); err != nil {
		return err
	}

	d.logger.Info("Result emailed", "recipients", len(recipients), "artifact", filename)
	return nil
}

func (d *Dispatcher) sendViaSendGrid(email *mail.SGMailV3) error {
	client := sendgrid.NewSendClient(d.cfg.SendGridAPIKey)
	response, err := client.Send(email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	return nil
}

func (d *Dispatcher) deliverCallback(ctx context.Context, url string, result *entity.ExecutionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("callback error: status %d", resp.StatusCode)
	}

	d.logger.Info("Result posted to callback", "url", url, "status", resp.StatusCode)
	return nil
}
