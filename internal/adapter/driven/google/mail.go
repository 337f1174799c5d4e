package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// unreadLabel is the Gmail system label marking unread messages.
const unreadLabel = "UNREAD"

// htmlStripper reduces HTML mail bodies to plain text for forwarding.
var htmlStripper = bluemonday.StrictPolicy()

// Compile-time interface satisfaction check.
var _ driven.MailClient = (*Client)(nil)

// Client is the Gmail implementation of the MailClient port. It is bound to
// the token it was built with; when the provider starts rejecting that token
// the credential manager builds a replacement via NewClient.
type Client struct {
	svc *gmail.Service
}

// NewClient builds a MailClient bound to cred. The HTTP stack layers the
// OAuth2 transport over an in-memory caching transport so repeated fetches
// can ride conditional requests. The token source is static: expiry is
// handled by the credential manager, not silently inside the transport.
func (p *Provider) NewClient(ctx context.Context, cred model.Credential) (driven.MailClient, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	base := &http.Client{Transport: cacheTransport}

	src := oauth2.StaticTokenSource(tokenFromCredential(cred))
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), src)
	httpClient.Timeout = 30 * time.Second

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// NewClientWithOptions builds a Client directly from client options,
// bypassing the OAuth transport stack. Tests use it to point the service at
// a local HTTP server.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListUnread returns the IDs of unread messages, at most limit.
func (c *Client) ListUnread(ctx context.Context, limit int) ([]string, error) {
	resp, err := c.svc.Users.Messages.List("me").
		LabelIds(unreadLabel).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyErr("list unread messages", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// FetchMessage retrieves the full message and decodes its content.
func (c *Client) FetchMessage(ctx context.Context, id string) (model.Message, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return model.Message{}, classifyErr("fetch message "+id, err)
	}
	return toMessage(msg), nil
}

// MarkRead removes the UNREAD label. Removing an absent label is a no-op at
// the provider, so retries are safe.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{unreadLabel}}
	if _, err := c.svc.Users.Messages.Modify("me", id, req).Context(ctx).Do(); err != nil {
		return classifyErr("mark message "+id+" read", err)
	}
	return nil
}

// classifyErr maps provider 401s to the ErrUnauthorized sentinel so the poll
// loop can trigger a refresh. Everything else passes through wrapped.
func classifyErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, driven.ErrUnauthorized)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// toMessage maps a Gmail API message to the domain model, substituting
// placeholders for absent fields.
func toMessage(msg *gmail.Message) model.Message {
	out := model.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  model.NoSubject,
		Sender:   model.UnknownSender,
		Body:     model.NoBodyContent,
	}
	if msg.InternalDate > 0 {
		out.Received = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload == nil {
		return out
	}

	if v := headerValue(msg.Payload.Headers, "Subject"); v != "" {
		out.Subject = v
	}
	if v := headerValue(msg.Payload.Headers, "From"); v != "" {
		out.Sender = v
	}
	if body := extractBody(msg.Payload); body != "" {
		out.Body = body
	}

	return out
}

// headerValue returns the value of the named header, or "" when absent.
// Header names are case-insensitive per RFC 5322.
func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody walks the MIME tree preferring a text/plain part, then a
// text/html part reduced to plain text, then the top-level body data.
func extractBody(payload *gmail.MessagePart) string {
	if plain := findPart(payload, "text/plain"); plain != "" {
		return strings.TrimSpace(plain)
	}
	if rawHTML := findPart(payload, "text/html"); rawHTML != "" {
		return strings.TrimSpace(stripHTML(rawHTML))
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBody(payload.Body.Data); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// findPart depth-first searches the part tree for the first non-empty body
// of the given MIME type and returns it decoded.
func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		if data, err := decodeBody(part.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, p := range part.Parts {
		if v := findPart(p, mimeType); v != "" {
			return v
		}
	}
	return ""
}

// decodeBody decodes Gmail's web-safe base64 body data, tolerating both
// padded and unpadded forms.
func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

// stripHTML removes markup and resolves entities, leaving forwardable text.
func stripHTML(s string) string {
	return html.UnescapeString(htmlStripper.Sanitize(s))
}
