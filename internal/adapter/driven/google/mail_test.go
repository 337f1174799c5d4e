package google_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailwatch/internal/adapter/driven/google"
	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// newTestClient builds a Client pointed at a local fake Gmail server.
func newTestClient(t *testing.T, h http.Handler) *google.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := google.NewClientWithOptions(
		context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client
}

func respondJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// gmailUnauthorized mimics the provider's 401 body for a rejected token.
func gmailUnauthorized(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error": {"code": 401, "message": "Invalid Credentials", "status": "UNAUTHENTICATED"}}`))
}

func encodeBody(s string) *gmail.MessagePartBody {
	return &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(s))}
}

func TestListUnread_ReturnsIDsAndFiltersUnread(t *testing.T) {
	var gotQuery map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"labelIds":   r.URL.Query().Get("labelIds"),
			"maxResults": r.URL.Query().Get("maxResults"),
		}
		respondJSON(t, w, &gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "m1"}, {Id: "m2"}},
		})
	})
	client := newTestClient(t, mux)

	ids, err := client.ListUnread(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2"}, ids)
	assert.Equal(t, "UNREAD", gotQuery["labelIds"])
	assert.Equal(t, "10", gotQuery["maxResults"])
}

func TestListUnread_EmptyInbox(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(t, w, &gmail.ListMessagesResponse{})
	})
	client := newTestClient(t, mux)

	ids, err := client.ListUnread(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListUnread_UnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(gmailUnauthorized))

	_, err := client.ListUnread(context.Background(), 10)

	assert.ErrorIs(t, err, driven.ErrUnauthorized)
}

func TestListUnread_ServerErrorIsNotUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "Backend Error"}}`))
	})
	client := newTestClient(t, mux)

	_, err := client.ListUnread(context.Background(), 10)

	require.Error(t, err)
	assert.NotErrorIs(t, err, driven.ErrUnauthorized)
}

func TestFetchMessage_DecodesSinglePartPlainText(t *testing.T) {
	var gotFormat string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("format")
		respondJSON(t, w, &gmail.Message{
			Id:           r.PathValue("id"),
			ThreadId:     "t1",
			InternalDate: 1756200000000,
			Payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Headers: []*gmail.MessagePartHeader{
					{Name: "Subject", Value: "Server ALERT: disk full"},
					{Name: "From", Value: "ops@example.com"},
				},
				Body: encodeBody("Volume /dev/sda1 is 92% used.\n"),
			},
		})
	})
	client := newTestClient(t, mux)

	msg, err := client.FetchMessage(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "full", gotFormat)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "t1", msg.ThreadID)
	assert.Equal(t, "Server ALERT: disk full", msg.Subject)
	assert.Equal(t, "ops@example.com", msg.Sender)
	assert.Equal(t, "Volume /dev/sda1 is 92% used.", msg.Body)
	assert.True(t, msg.Received.Equal(time.UnixMilli(1756200000000)))
}

func TestFetchMessage_SubstitutesPlaceholders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, &gmail.Message{Id: r.PathValue("id")})
	})
	client := newTestClient(t, mux)

	msg, err := client.FetchMessage(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, model.NoSubject, msg.Subject)
	assert.Equal(t, model.UnknownSender, msg.Sender)
	assert.Equal(t, model.NoBodyContent, msg.Body)
	assert.True(t, msg.Received.IsZero())
}

func TestFetchMessage_PrefersPlainTextOverHTML(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, &gmail.Message{
			Id: r.PathValue("id"),
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmail.MessagePartHeader{
					{Name: "Subject", Value: "ALERT"},
				},
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: encodeBody("<p>html body</p>")},
					{MimeType: "text/plain", Body: encodeBody("plain body")},
				},
			},
		})
	})
	client := newTestClient(t, mux)

	msg, err := client.FetchMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "plain body", msg.Body)
}

func TestFetchMessage_StripsHTMLOnlyBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, &gmail.Message{
			Id: r.PathValue("id"),
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: encodeBody("<p>Disk &amp; RAM at <b>92%</b> used</p>")},
				},
			},
		})
	})
	client := newTestClient(t, mux)

	msg, err := client.FetchMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Disk & RAM at 92% used", msg.Body)
}

func TestFetchMessage_DecodesUnpaddedBase64(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, &gmail.Message{
			Id: r.PathValue("id"),
			Payload: &gmail.MessagePart{
				MimeType: "text/plain",
				// Unpadded web-safe form, as Gmail sometimes sends.
				Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("hello"))},
			},
		})
	})
	client := newTestClient(t, mux)

	msg, err := client.FetchMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
}

func TestFetchMessage_UnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(gmailUnauthorized))

	_, err := client.FetchMessage(context.Background(), "m1")

	assert.ErrorIs(t, err, driven.ErrUnauthorized)
}

func TestMarkRead_RemovesUnreadLabel(t *testing.T) {
	var gotID string
	var gotReq gmail.ModifyMessageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gmail/v1/users/me/messages/{id}/modify", func(w http.ResponseWriter, r *http.Request) {
		gotID = r.PathValue("id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respondJSON(t, w, &gmail.Message{Id: gotID})
	})
	client := newTestClient(t, mux)

	err := client.MarkRead(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "m1", gotID)
	assert.Equal(t, []string{"UNREAD"}, gotReq.RemoveLabelIds)
	assert.Empty(t, gotReq.AddLabelIds)
}

func TestMarkRead_UnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(gmailUnauthorized))

	err := client.MarkRead(context.Background(), "m1")

	assert.ErrorIs(t, err, driven.ErrUnauthorized)
}
