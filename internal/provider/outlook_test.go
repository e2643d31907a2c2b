package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOutlook(t *testing.T, handler http.Handler) *OutlookProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOutlookProvider(zap.NewNop(),
		WithOutlookBaseURL(srv.URL),
		WithOutlookHTTPClient(srv.Client()))
	require.NoError(t, p.Initialize(validOutlookConfig()))
	return p
}

func TestOutlookInitialize_RequiresTokenAndTenant(t *testing.T) {
	p := NewOutlookProvider(zap.NewNop())

	cfg := validOutlookConfig()
	cfg.AccessToken = ""
	require.Error(t, p.Initialize(cfg))

	cfg = validOutlookConfig()
	cfg.TenantID = ""
	require.Error(t, p.Initialize(cfg))
}

func TestOutlookSendEmail_AcceptedWithoutMessageID(t *testing.T) {
	var captured map[string]any
	p := newTestOutlook(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/sendMail", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))

	result := p.SendEmail(context.Background(), EmailMessage{
		To:      []string{"customer@example.com"},
		Subject: "Update",
		Body:    "<b>done</b>",
		IsHTML:  true,
	})
	require.True(t, result.Success)
	assert.Empty(t, result.MessageID, "Graph acknowledges sendMail with an empty body")

	message := captured["message"].(map[string]any)
	assert.Equal(t, "Update", message["subject"])
	assert.Equal(t, "HTML", message["body"].(map[string]any)["contentType"])
	assert.Equal(t, true, captured["saveToSentItems"])
}

func TestOutlookSendEmail_RequiresRecipient(t *testing.T) {
	p := newTestOutlook(t, http.NotFoundHandler())
	result := p.SendEmail(context.Background(), EmailMessage{Subject: "empty"})
	assert.False(t, result.Success)
}

func TestOutlookGetEmails(t *testing.T) {
	p := newTestOutlook(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("$top"))
		assert.Equal(t, "receivedDateTime desc", r.URL.Query().Get("$orderby"))
		w.Write([]byte(`{"value":[{
			"id": "m1",
			"internetMessageId": "<m1@outlook.example.com>",
			"subject": "Login issue",
			"body": {"contentType": "html", "content": "<p>cannot sign in</p>"},
			"from": {"emailAddress": {"address": "customer@example.com"}},
			"toRecipients": [{"emailAddress": {"address": "support@example.com"}}],
			"receivedDateTime": "2026-08-27T10:00:00Z"
		}],"@odata.nextLink":"https://graph.microsoft.com/next"}`))
	}))

	result := p.GetEmails(context.Background(), EmailListOptions{MaxResults: 5})
	require.Len(t, result.Messages, 1)

	msg := result.Messages[0]
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "<m1@outlook.example.com>", msg.MessageID)
	assert.Equal(t, "customer@example.com", msg.From)
	assert.True(t, msg.IsHTML)
	assert.False(t, msg.ReceivedAt.IsZero())
	assert.Equal(t, "https://graph.microsoft.com/next", result.NextPageToken)
}

func TestOutlookMarkAsReadAndDelete(t *testing.T) {
	p := newTestOutlook(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			var body map[string]bool
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.True(t, body["isRead"])
			w.Write([]byte(`{}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	assert.True(t, p.MarkAsRead(context.Background(), "m1"))
	assert.True(t, p.DeleteEmail(context.Background(), "m1"))
}

func TestOutlookReplyToEmail(t *testing.T) {
	p := newTestOutlook(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages/m1/reply", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))

	result := p.ReplyToEmail(context.Background(), "m1", EmailMessage{
		To:   []string{"customer@example.com"},
		Body: "resolved",
	})
	assert.True(t, result.Success)
}

func TestOutlookGetUserProfile_FallsBackToConfiguredAddress(t *testing.T) {
	p := newTestOutlook(t, http.NotFoundHandler())
	profile := p.GetUserProfile(context.Background())
	assert.Equal(t, "support@example.com", profile.Email)
}

func TestToGraphMessage_EncodesAttachments(t *testing.T) {
	out := toGraphMessage(EmailMessage{
		To:      []string{"a@example.com"},
		Cc:      []string{"c@example.com"},
		Subject: "Invoice",
		Body:    "see attachment",
		Attachments: []EmailAttachment{{
			Filename:    "invoice.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.4"),
		}},
	})

	attachments := out["attachments"].([]map[string]any)
	require.Len(t, attachments, 1)
	assert.Equal(t, "#microsoft.graph.fileAttachment", attachments[0]["@odata.type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), attachments[0]["contentBytes"])
	assert.Len(t, out["ccRecipients"], 1)
	assert.Equal(t, "Text", out["body"].(map[string]string)["contentType"])
}

func TestFromGraphMessage_DecodesAttachments(t *testing.T) {
	raw := graphMessage{ID: "m1", Subject: "s"}
	raw.Body.ContentType = "HTML"
	raw.Body.Content = "<p>x</p>"
	raw.Attachments = append(raw.Attachments, struct {
		Name         string `json:"name"`
		ContentType  string `json:"contentType"`
		Size         int64  `json:"size"`
		ContentBytes string `json:"contentBytes"`
	}{Name: "a.txt", ContentType: "text/plain", Size: 5, ContentBytes: base64.StdEncoding.EncodeToString([]byte("hello"))})

	msg := fromGraphMessage(raw)
	assert.True(t, msg.IsHTML)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, []byte("hello"), msg.Attachments[0].Content)
}
