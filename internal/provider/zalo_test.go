package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validZaloConfig() MessagingConfig {
	return MessagingConfig{
		Type:        MessagingProviderZalo,
		AppID:       "zalo-app",
		AppSecret:   "zalo-secret",
		AccessToken: "zalo-token",
	}
}

func newTestZalo(t *testing.T, handler http.Handler) *ZaloProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewZaloProvider(zap.NewNop(),
		WithZaloBaseURL(srv.URL),
		WithZaloHTTPClient(srv.Client()))
	require.NoError(t, p.Initialize(validZaloConfig()))
	return p
}

func TestZaloInitialize_RequiresCredentials(t *testing.T) {
	p := NewZaloProvider(zap.NewNop())
	require.Error(t, p.Initialize(MessagingConfig{Type: MessagingProviderZalo, AccessToken: "tok"}))
	require.Error(t, p.Initialize(MessagingConfig{Type: MessagingProviderZalo, AppID: "a", AppSecret: "s"}))
}

func TestZaloSendMessage(t *testing.T) {
	var captured map[string]any
	p := newTestZalo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message", r.URL.Path)
		assert.Equal(t, "zalo-token", r.Header.Get("access_token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"error":0,"message":"Success","data":{"message_id":"z-1"}}`))
	}))

	result := p.SendMessage(context.Background(), MessagingMessage{
		RecipientID: "uid-1",
		MessageType: KindText,
		Content:     "xin chao",
	})
	require.True(t, result.Success)
	assert.Equal(t, "z-1", result.MessageID)
	assert.Equal(t, "xin chao", captured["message"].(map[string]any)["text"])
}

func TestZaloSendMessage_APIErrorEnvelope(t *testing.T) {
	p := newTestZalo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":-216,"message":"Access token is invalid"}`))
	}))

	result := p.SendMessage(context.Background(), MessagingMessage{RecipientID: "uid-1", Content: "hi"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Access token is invalid")
}

func TestZaloGetMessages_MapsDirectionFromSrc(t *testing.T) {
	p := newTestZalo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversation", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("data"))
		w.Write([]byte(`{"error":0,"data":[
			{"message_id":"m1","src":0,"time":1724800000000,"from_id":"uid-1","to_id":"oa-1","message":"hello","type":"text"},
			{"message_id":"m2","src":1,"time":1724800001000,"from_id":"oa-1","to_id":"uid-1","message":"how can we help","type":"text"}
		]}`))
	}))

	result := p.GetMessages(context.Background(), MessagingListOptions{Limit: 2})
	require.Len(t, result.Messages, 2)
	assert.Equal(t, Inbound, result.Messages[0].Direction)
	assert.Equal(t, Outbound, result.Messages[1].Direction)
	assert.True(t, result.HasMore)
	assert.Equal(t, 2, result.NextOffset)
}

func TestZaloGetContact(t *testing.T) {
	p := newTestZalo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getprofile", r.URL.Path)
		w.Write([]byte(`{"error":0,"data":{"display_name":"Nguyen Van A","avatar":"https://cdn/a.jpg","user_alias":"vana"}}`))
	}))

	contact := p.GetContact(context.Background(), "uid-1")
	require.NotNil(t, contact)
	assert.Equal(t, "Nguyen Van A", contact.Name)
	assert.Equal(t, "vana", contact.Metadata["userAlias"])
}

func TestZaloVerifyWebhook(t *testing.T) {
	p := newTestZalo(t, http.NotFoundHandler())
	body := []byte(`{"event_name":"user_send_text"}`)

	assert.True(t, p.VerifyWebhook(hmacSHA256Hex("zalo-secret", body), body))
	assert.False(t, p.VerifyWebhook(hmacSHA256Hex("wrong", body), body))

	bare := NewZaloProvider(zap.NewNop())
	cfg := validZaloConfig()
	require.NoError(t, bare.Initialize(cfg))
	bare.cfg.AppSecret = ""
	assert.False(t, bare.VerifyWebhook(hmacSHA256Hex("zalo-secret", body), body))
}

func TestZaloProcessWebhookEvent_TextMessage(t *testing.T) {
	p := newTestZalo(t, http.NotFoundHandler())

	body := []byte(`{
		"app_id": "zalo-app",
		"event_name": "user_send_text",
		"timestamp": "1724800000000",
		"sender": {"id": "uid-1"},
		"message": {"msg_id": "m1", "text": "order is late"}
	}`)

	events, err := p.ProcessWebhookEvent(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, "uid-1", event.SenderID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "order is late", event.Message.Content)
	assert.Equal(t, KindText, event.Message.MessageType)
	assert.Equal(t, "zalo-app", event.Message.ChannelID)
}

func TestZaloProcessWebhookEvent_FileMessage(t *testing.T) {
	p := newTestZalo(t, http.NotFoundHandler())

	body := []byte(`{
		"app_id": "zalo-app",
		"event_name": "user_send_file",
		"timestamp": "1724800000000",
		"sender": {"id": "uid-1"},
		"message": {"msg_id": "m2", "url": "https://cdn.zalo/f1.pdf", "name": "invoice.pdf", "size": "20480"}
	}`)

	events, err := p.ProcessWebhookEvent(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	msg := events[0].Message
	require.NotNil(t, msg)
	assert.Equal(t, KindFile, msg.MessageType)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "https://cdn.zalo/f1.pdf", msg.Attachments[0].URL)
	assert.Equal(t, "invoice.pdf", msg.Attachments[0].Filename)
	assert.EqualValues(t, 20480, msg.Attachments[0].Size)
}

func TestZaloProcessWebhookEvent_DeliveryAndRead(t *testing.T) {
	p := newTestZalo(t, http.NotFoundHandler())

	events, err := p.ProcessWebhookEvent(context.Background(), []byte(`{
		"event_name": "user_received_message",
		"timestamp": "1724800000000",
		"sender": {"id": "uid-1"},
		"message": {"msg_id": "m1"}
	}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDelivery, events[0].Type)
	assert.Equal(t, []string{"m1"}, events[0].Delivery.MessageIDs)

	events, err = p.ProcessWebhookEvent(context.Background(), []byte(`{
		"event_name": "user_seen_message",
		"timestamp": "1724800001000",
		"sender": {"id": "uid-1"}
	}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventRead, events[0].Type)
}

func TestZaloProcessWebhookEvent_UnknownEventIgnored(t *testing.T) {
	p := newTestZalo(t, http.NotFoundHandler())

	events, err := p.ProcessWebhookEvent(context.Background(), []byte(`{
		"event_name": "follow",
		"timestamp": "1724800000000",
		"sender": {"id": "uid-1"}
	}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBuildZaloPayload(t *testing.T) {
	image := buildZaloPayload(MessagingMessage{
		RecipientID: "uid-1",
		MessageType: KindImage,
		Attachments: []MessagingAttachment{{Type: KindImage, URL: "https://cdn/x.jpg"}},
	})
	att := image["message"].(map[string]any)["attachment"].(map[string]any)
	assert.Equal(t, "template", att["type"])
	elements := att["payload"].(map[string]any)["elements"].([]map[string]any)
	assert.Equal(t, "https://cdn/x.jpg", elements[0]["url"])

	text := buildZaloPayload(MessagingMessage{RecipientID: "uid-1", MessageType: KindText, Content: "hi"})
	assert.Equal(t, map[string]string{"text": "hi"}, text["message"])
}
