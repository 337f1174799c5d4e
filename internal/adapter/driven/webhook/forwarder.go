// Package webhook implements the driven adapter delivering matched messages
// to a chat webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// maxBodyChars caps the forwarded body length; chat webhooks reject oversized
// payloads.
const maxBodyChars = 4000

// Compile-time interface satisfaction check.
var _ driven.Forwarder = (*Forwarder)(nil)

// Forwarder posts matched messages to a chat webhook as a single JSON
// payload with a "text" field.
type Forwarder struct {
	url    string
	client *http.Client
}

// NewForwarder creates a Forwarder for the given webhook URL.
func NewForwarder(url string) *Forwarder {
	return &Forwarder{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// payload is the webhook message body.
type payload struct {
	Text string `json:"text"`
}

// Forward posts the message to the webhook. A non-2xx response or transport
// failure is reported as *driven.ForwardError.
func (f *Forwarder) Forward(ctx context.Context, msg model.Message) error {
	body, err := json.Marshal(payload{Text: formatMessage(msg)})
	if err != nil {
		return &driven.ForwardError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return &driven.ForwardError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := f.client.Do(req)
	if err != nil {
		return &driven.ForwardError{Err: err}
	}
	defer resp.Body.Close()

	// Drain so the transport can reuse the connection.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &driven.ForwardError{Status: resp.StatusCode}
	}

	return nil
}

// formatMessage renders the subject, sender attribution, and body as one
// text block.
func formatMessage(msg model.Message) string {
	body := msg.Body
	if len(body) > maxBodyChars {
		cut := maxBodyChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…"
	}
	return fmt.Sprintf("*%s*\nFrom: %s\n\n%s", msg.Subject, msg.Sender, body)
}
