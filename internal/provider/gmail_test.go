package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGmail(t *testing.T, handler http.Handler) *GmailProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewGmailProvider(zap.NewNop(),
		WithGmailBaseURL(srv.URL),
		WithGmailHTTPClient(srv.Client()))
	require.NoError(t, p.Initialize(validGmailConfig()))
	return p
}

func TestGmailInitialize_RequiresOAuthCredentials(t *testing.T) {
	p := NewGmailProvider(zap.NewNop())

	cfg := validGmailConfig()
	cfg.RefreshToken = ""
	require.Error(t, p.Initialize(cfg))

	cfg = validGmailConfig()
	cfg.ClientSecret = ""
	require.Error(t, p.Initialize(cfg))
}

func TestGmailSendEmail(t *testing.T) {
	var raw string
	p := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/send", r.URL.Path)
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw = body.Raw
		w.Write([]byte(`{"id":"msg-1"}`))
	}))

	result := p.SendEmail(context.Background(), EmailMessage{
		From:    "support@example.com",
		To:      []string{"customer@example.com"},
		Subject: "Your ticket was updated",
		Body:    "We are on it.",
	})
	require.True(t, result.Success)
	assert.Equal(t, "msg-1", result.MessageID)

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	mime := string(decoded)
	assert.Contains(t, mime, "To: customer@example.com")
	assert.Contains(t, mime, "Subject: Your ticket was updated")
	assert.Contains(t, mime, "We are on it.")
}

func TestGmailSendEmail_RequiresRecipient(t *testing.T) {
	var hits atomic.Int32
	p := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	result := p.SendEmail(context.Background(), EmailMessage{Subject: "no recipients"})
	assert.False(t, result.Success)
	assert.EqualValues(t, 0, hits.Load(), "no request is made for an unroutable message")
}

func TestGmailGetEmail_ParsesFullFormat(t *testing.T) {
	bodyData := base64.RawURLEncoding.EncodeToString([]byte("printer is broken"))
	p := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/msg-1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		resp := map[string]any{
			"id":           "msg-1",
			"threadId":     "thread-1",
			"internalDate": "1724800000000",
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"headers": []map[string]string{
					{"name": "From", "value": "customer@example.com"},
					{"name": "To", "value": "support@example.com, backup@example.com"},
					{"name": "Subject", "value": "Printer problem"},
					{"name": "Message-ID", "value": "<abc@mail.example.com>"},
				},
				"parts": []map[string]any{
					{"mimeType": "text/plain", "body": map[string]any{"data": bodyData}},
					{"mimeType": "application/pdf", "filename": "report.pdf",
						"body": map[string]any{"attachmentId": "att-1", "size": 2048}},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))

	msg := p.GetEmail(context.Background(), "msg-1")
	require.NotNil(t, msg)
	assert.Equal(t, "thread-1", msg.ThreadID)
	assert.Equal(t, "<abc@mail.example.com>", msg.MessageID)
	assert.Equal(t, "customer@example.com", msg.From)
	assert.Equal(t, []string{"support@example.com", "backup@example.com"}, msg.To)
	assert.Equal(t, "printer is broken", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "report.pdf", msg.Attachments[0].Filename)
	assert.EqualValues(t, 2048, msg.Attachments[0].Size)
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestGmailGetEmail_NotFound(t *testing.T) {
	p := newTestGmail(t, http.NotFoundHandler())
	assert.Nil(t, p.GetEmail(context.Background(), "missing"))
}

func TestGmailReplyToEmail_ThreadsOntoOriginal(t *testing.T) {
	bodyData := base64.RawURLEncoding.EncodeToString([]byte("original body"))
	var sentRaw string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/messages/orig-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "orig-1",
			"payload": map[string]any{
				"headers": []map[string]string{
					{"name": "Message-ID", "value": "<orig@mail.example.com>"},
					{"name": "Subject", "value": "Printer problem"},
				},
				"body": map[string]any{"data": bodyData},
			},
		})
	})
	mux.HandleFunc("/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		decoded, err := base64.RawURLEncoding.DecodeString(body.Raw)
		require.NoError(t, err)
		sentRaw = string(decoded)
		w.Write([]byte(`{"id":"reply-1"}`))
	})
	p := newTestGmail(t, mux)

	result := p.ReplyToEmail(context.Background(), "orig-1", EmailMessage{
		To:   []string{"customer@example.com"},
		Body: "We shipped a replacement.",
	})
	require.True(t, result.Success)
	assert.Contains(t, sentRaw, "Subject: Re: Printer problem")
	assert.Contains(t, sentRaw, "In-Reply-To: <orig@mail.example.com>")
	assert.Contains(t, sentRaw, "References: <orig@mail.example.com>")
}

func TestGmailMarkAsRead(t *testing.T) {
	p := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/msg-1/modify", r.URL.Path)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"UNREAD"}, body["removeLabelIds"])
		w.Write([]byte(`{}`))
	}))
	assert.True(t, p.MarkAsRead(context.Background(), "msg-1"))

	failing := newTestGmail(t, http.NotFoundHandler())
	assert.False(t, failing.MarkAsRead(context.Background(), "msg-1"))
}

func TestGmailTestConnection_ProbesEveryCall(t *testing.T) {
	var hits atomic.Int32
	p := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"emailAddress":"support@example.com"}`))
	}))

	assert.True(t, p.TestConnection(context.Background()))
	assert.True(t, p.TestConnection(context.Background()))
	assert.EqualValues(t, 2, hits.Load(), "connection tests are never cached")
}

func TestBuildMIMEMessage_WithAttachment(t *testing.T) {
	mime := buildMIMEMessage(EmailMessage{
		From:    "support@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Invoice",
		Body:    "<p>attached</p>",
		IsHTML:  true,
		Attachments: []EmailAttachment{{
			Filename:    "invoice.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.4"),
		}},
	})

	assert.Contains(t, mime, "To: a@example.com, b@example.com")
	assert.Contains(t, mime, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, mime, `Content-Disposition: attachment; filename="invoice.pdf"`)
	assert.Contains(t, mime, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")))
	assert.Contains(t, mime, "MIME-Version: 1.0")
}

func TestSplitAddressList(t *testing.T) {
	assert.Nil(t, splitAddressList(""))
	assert.Equal(t, []string{"a@x.com", "B <b@x.com>"}, splitAddressList("a@x.com , B <b@x.com>,"))
}
