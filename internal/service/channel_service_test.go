package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/provider"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func newChannelTestEnv(t *testing.T, factoryOpts ...provider.FactoryOption) (*ChannelService, *fakeChannelRepo, *fakeTicketRepo) {
	t.Helper()
	repo := newFakeChannelRepo()
	tickets := newFakeTicketRepo()
	svc := NewChannelService(ChannelDependencies{
		ChannelRepo: repo,
		TicketRepo:  tickets,
		Factory:     provider.NewFactory(zap.NewNop(), factoryOpts...),
		Logger:      zap.NewNop(),
	})
	return svc, repo, tickets
}

func TestCreateChannel_ValidTelegramConfig(t *testing.T) {
	svc, _, _ := newChannelTestEnv(t)

	channel, err := svc.CreateChannel(context.Background(), CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelStatusActive, channel.Status)
	assert.NotEmpty(t, channel.ID)
}

func TestCreateChannel_CollectsEveryConfigViolation(t *testing.T) {
	svc, repo, _ := newChannelTestEnv(t)

	_, err := svc.CreateChannel(context.Background(), CreateChannelInput{
		CompanyID: "company-1",
		Name:      "broken page",
		Type:      domain.ChannelTypeFacebook,
		Config:    []byte(`{"provider":"facebook"}`),
	})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CHANNEL_CONFIG", domainErr.Code)

	violations, ok := domainErr.Details["violations"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		"App ID is required for Facebook",
		"App secret is required for Facebook",
		"Access token is required for Facebook",
	}, violations)

	assert.Empty(t, repo.channels, "invalid channel must not be persisted")
}

func TestCreateChannel_MalformedConfigBlob(t *testing.T) {
	svc, _, _ := newChannelTestEnv(t)

	_, err := svc.CreateChannel(context.Background(), CreateChannelInput{
		CompanyID: "company-1",
		Name:      "mailbox",
		Type:      domain.ChannelTypeEmail,
		Config:    []byte(`{not json`),
	})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CHANNEL_CONFIG", domainErr.Code)
}

func TestUpdateChannel_RevalidatesConfig(t *testing.T) {
	svc, _, _ := newChannelTestEnv(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)

	_, err = svc.UpdateChannel(ctx, channel.ID, "", []byte(`{"provider":"telegram"}`))
	require.Error(t, err)

	// The stored config is untouched after a failed update.
	stored, err := svc.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"provider":"telegram","botToken":"123456:ABCDEF"}`, string(stored.Config))
}

func TestTestChannel_FailedProbeFlipsActiveToError(t *testing.T) {
	svc, _, _ := newChannelTestEnv(t, provider.WithTelegramClient(&stubTGClient{err: errors.New("upstream down")}))
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)

	result, err := svc.TestChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)

	stored, err := svc.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelStatusError, stored.Status)
}

func TestTestChannel_SuccessfulProbeRestoresErrorToActive(t *testing.T) {
	getMe := `{"ok":true,"result":{"id":99,"is_bot":true,"first_name":"support","username":"support_bot"}}`
	svc, repo, _ := newChannelTestEnv(t, provider.WithTelegramClient(&stubTGClient{body: getMe}))
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, channel.ID, domain.ChannelStatusError))

	result, err := svc.TestChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, err := svc.GetChannel(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelStatusActive, stored.Status)
}

func TestDeleteChannel_BlockedByTickets(t *testing.T) {
	svc, _, tickets := newChannelTestEnv(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)

	require.NoError(t, tickets.Create(ctx, &domain.Ticket{
		CompanyID:  "company-1",
		CustomerID: "customer-1",
		ChannelID:  &channel.ID,
		Title:      "inbound question",
		Status:     domain.TicketStatusWait,
	}))

	err = svc.DeleteChannel(ctx, channel.ID)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Contains(t, domainErr.Message, "channel has tickets")

	_, err = svc.GetChannel(ctx, channel.ID)
	assert.NoError(t, err)
}

func TestDeleteChannel(t *testing.T) {
	svc, repo, _ := newChannelTestEnv(t)
	ctx := context.Background()

	channel, err := svc.CreateChannel(ctx, CreateChannelInput{
		CompanyID: "company-1",
		Name:      "telegram support",
		Type:      domain.ChannelTypeTelegram,
		Config:    []byte(`{"provider":"telegram","botToken":"123456:ABCDEF"}`),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChannel(ctx, channel.ID))
	assert.Empty(t, repo.channels)

	err = svc.DeleteChannel(ctx, channel.ID)
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}
