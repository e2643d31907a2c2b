package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// countingTransport fails every request and counts attempts, proving a code
// path never reached the network.
type countingTransport struct {
	calls int
}

func (t *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls++
	return nil, errors.New("network disabled in test")
}

// stubTGClient answers every Bot API request with a canned body, or fails
// when err is set.
type stubTGClient struct {
	body  string
	err   error
	calls int
}

func (c *stubTGClient) Do(*http.Request) (*http.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(c.body)),
	}, nil
}

type providerTestEnv struct {
	channels  *fakeChannelRepo
	messages  *fakeMessageRepo
	customers *fakeCustomerRepo
	tickets   *fakeTicketRepo
	comments  *fakeCommentRepo
	svc       *ProviderService
}

func newProviderTestEnv(t *testing.T, factoryOpts ...provider.FactoryOption) *providerTestEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &providerTestEnv{
		channels:  newFakeChannelRepo(),
		messages:  &fakeMessageRepo{},
		customers: newFakeCustomerRepo(),
		tickets:   newFakeTicketRepo(),
		comments:  &fakeCommentRepo{},
	}

	ticketSvc := NewTicketService(TicketDependencies{
		TicketRepo:   env.tickets,
		CommentRepo:  env.comments,
		CustomerRepo: env.customers,
		UserRepo:     newFakeUserRepo(),
		TeamRepo:     newFakeTeamRepo(),
		SLARepo:      newFakeSLARepo(),
		Logger:       logger,
	})
	intake := NewTicketIntakeService(IntakeDependencies{
		CustomerRepo:  env.customers,
		TicketRepo:    env.tickets,
		TicketService: ticketSvc,
		Logger:        logger,
	})
	env.svc = NewProviderService(ProviderDependencies{
		ChannelRepo:    env.channels,
		MessageRepo:    env.messages,
		Factory:        provider.NewFactory(logger, factoryOpts...),
		Intake:         intake,
		Logger:         logger,
		WebhookBaseURL: "https://desk.example.com",
	})
	return env
}

func (env *providerTestEnv) seedChannel(t *testing.T, channelType domain.ChannelType, config string) *domain.Channel {
	t.Helper()
	channel := &domain.Channel{
		CompanyID: "company-1",
		Name:      "test channel",
		Type:      channelType,
		Status:    domain.ChannelStatusActive,
		Config:    []byte(config),
	}
	require.NoError(t, env.channels.Create(context.Background(), channel))
	return channel
}

const telegramChannelConfig = `{"provider":"telegram","botToken":"123456:ABCDEF-bot-token"}`

func telegramUpdate(messageID int, text string) string {
	return `{"update_id":1,"message":{"message_id":` + strconv.Itoa(messageID) + `,"date":1724800000,` +
		`"text":"` + text + `",` +
		`"from":{"id":555123,"is_bot":false,"first_name":"Ada","last_name":"Lovelace"},` +
		`"chat":{"id":555123,"type":"private"}}}`
}

func ticketFilterForCompany(companyID string) repository.TicketFilter {
	return repository.TicketFilter{CompanyID: &companyID}
}

func TestSendEmailOnMessagingChannel_RejectedWithoutProviderConstruction(t *testing.T) {
	transport := &countingTransport{}
	env := newProviderTestEnv(t, provider.WithHTTPClient(&http.Client{Transport: transport}))

	channel := env.seedChannel(t, domain.ChannelTypeFacebook,
		`{"provider":"facebook","appId":"app-1","appSecret":"secret","accessToken":"token"}`)

	_, err := env.svc.SendEmail(context.Background(), channel.ID, provider.EmailMessage{
		To:      []string{"customer@example.com"},
		Subject: "hello",
		Body:    "body",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an email channel")

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Zero(t, transport.calls)
}

func TestSendMessageOnEmailChannel_Rejected(t *testing.T) {
	env := newProviderTestEnv(t)

	channel := env.seedChannel(t, domain.ChannelTypeEmail,
		`{"provider":"gmail","email":"support@example.com","clientId":"id","clientSecret":"secret","refreshToken":"rt"}`)

	_, err := env.svc.SendMessage(context.Background(), channel.ID, provider.MessagingMessage{
		RecipientID: "555",
		Content:     "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a messaging channel")
}

func TestSendEmailOnUnknownChannel_NotFound(t *testing.T) {
	env := newProviderTestEnv(t)

	_, err := env.svc.SendEmail(context.Background(), "missing-channel", provider.EmailMessage{})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestHandleWebhook_IncompleteChannelConfig(t *testing.T) {
	env := newProviderTestEnv(t)
	channel := env.seedChannel(t, domain.ChannelTypeTelegram, `{"provider":"telegram"}`)

	_, err := env.svc.HandleWebhook(context.Background(), channel.ID, "", []byte(`{}`))
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CHANNEL_CONFIG", domainErr.Code)
}

func TestHandleWebhook_TelegramMessageOpensTicket(t *testing.T) {
	ctx := context.Background()
	// Contact lookup fails; intake must fall back to the sender id.
	env := newProviderTestEnv(t, provider.WithTelegramClient(&stubTGClient{err: errors.New("network disabled")}))
	channel := env.seedChannel(t, domain.ChannelTypeTelegram, telegramChannelConfig)

	result, err := env.svc.HandleWebhook(ctx, channel.ID, "", []byte(telegramUpdate(77, "my card is blocked")))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Empty(t, result.Errors)

	customer, err := env.customers.GetByExternalID(ctx, channel.CompanyID, "555123")
	require.NoError(t, err)
	assert.Equal(t, "555123", customer.FirstName)
	assert.True(t, strings.HasPrefix(customer.CIF, "CIF"))

	tickets, err := env.tickets.ListWithFilter(ctx, ticketFilterForCompany(channel.CompanyID))
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	ticket := tickets[0]
	assert.Equal(t, domain.TicketStatusWait, ticket.Status)
	assert.Equal(t, domain.TicketSourceChannel, ticket.Source)
	assert.Equal(t, customer.ID, ticket.CustomerID)
	require.NotNil(t, ticket.ChannelID)
	assert.Equal(t, channel.ID, *ticket.ChannelID)
	assert.True(t, strings.HasPrefix(ticket.TicketNumber, "MSG"))
	assert.Equal(t, "my card is blocked", ticket.Title)

	comments, err := env.comments.ListByTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, domain.CommentAuthorCustomer, comments[0].AuthorType)
	assert.Equal(t, "my card is blocked", comments[0].Content)
	assert.False(t, comments[0].IsInternal)

	require.Len(t, env.messages.records, 1)
	record := env.messages.records[0]
	assert.Equal(t, domain.DirectionReceived, record.Direction)
	require.NotNil(t, record.ExternalID)
	assert.Equal(t, "77", *record.ExternalID)
}

func TestHandleWebhook_DuplicateDeliverySkipped(t *testing.T) {
	ctx := context.Background()
	env := newProviderTestEnv(t, provider.WithTelegramClient(&stubTGClient{err: errors.New("network disabled")}))
	channel := env.seedChannel(t, domain.ChannelTypeTelegram, telegramChannelConfig)

	body := []byte(telegramUpdate(77, "first message"))
	_, err := env.svc.HandleWebhook(ctx, channel.ID, "", body)
	require.NoError(t, err)

	result, err := env.svc.HandleWebhook(ctx, channel.ID, "", body)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 1, result.Skipped)

	tickets, err := env.tickets.ListWithFilter(ctx, ticketFilterForCompany(channel.CompanyID))
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Len(t, env.messages.records, 1)
}

func TestHandleWebhook_FollowUpReusesOpenTicket(t *testing.T) {
	ctx := context.Background()
	env := newProviderTestEnv(t, provider.WithTelegramClient(&stubTGClient{err: errors.New("network disabled")}))
	channel := env.seedChannel(t, domain.ChannelTypeTelegram, telegramChannelConfig)

	_, err := env.svc.HandleWebhook(ctx, channel.ID, "", []byte(telegramUpdate(77, "first message")))
	require.NoError(t, err)
	_, err = env.svc.HandleWebhook(ctx, channel.ID, "", []byte(telegramUpdate(78, "any update?")))
	require.NoError(t, err)

	tickets, err := env.tickets.ListWithFilter(ctx, ticketFilterForCompany(channel.CompanyID))
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	comments, err := env.comments.ListByTicket(ctx, tickets[0].ID, true)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestHandleWebhook_SecretTokenEnforced(t *testing.T) {
	ctx := context.Background()
	env := newProviderTestEnv(t, provider.WithTelegramClient(&stubTGClient{err: errors.New("network disabled")}))
	channel := env.seedChannel(t, domain.ChannelTypeTelegram,
		`{"provider":"telegram","botToken":"123456:ABCDEF-bot-token","webhookSecret":"s3cret"}`)

	_, err := env.svc.HandleWebhook(ctx, channel.ID, "wrong", []byte(telegramUpdate(77, "hello")))
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	result, err := env.svc.HandleWebhook(ctx, channel.ID, "s3cret", []byte(telegramUpdate(77, "hello")))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

func TestVerifyWebhookSubscription(t *testing.T) {
	ctx := context.Background()
	env := newProviderTestEnv(t)
	channel := env.seedChannel(t, domain.ChannelTypeFacebook,
		`{"provider":"facebook","appId":"app-1","appSecret":"secret","accessToken":"token","verifyToken":"vt-1"}`)

	require.NoError(t, env.svc.VerifyWebhookSubscription(ctx, channel.ID, "vt-1"))

	err := env.svc.VerifyWebhookSubscription(ctx, channel.ID, "vt-2")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}
