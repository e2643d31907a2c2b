package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validGmailConfig() EmailConfig {
	return EmailConfig{
		Type:         EmailProviderGmail,
		Email:        "support@example.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
	}
}

func validOutlookConfig() EmailConfig {
	return EmailConfig{
		Type:         EmailProviderOutlook,
		Email:        "support@example.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TenantID:     "tenant-id",
		AccessToken:  "access-token",
	}
}

func validTelegramConfig() MessagingConfig {
	return MessagingConfig{
		Type:     MessagingProviderTelegram,
		BotToken: "123456:ABCDEF-bot-token",
	}
}

func validFacebookConfig() MessagingConfig {
	return MessagingConfig{
		Type:        MessagingProviderFacebook,
		AppID:       "app-1",
		AppSecret:   "app-secret",
		AccessToken: "page-token",
	}
}

func TestValidateEmailConfig_CollectsEveryViolation(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateEmailConfig(EmailConfig{Type: EmailProviderGmail})
	require.False(t, result.Valid)
	assert.ElementsMatch(t, []string{
		"Email address is required",
		"Client ID is required",
		"Client secret is required",
		"Refresh token is required for Gmail",
	}, result.Errors)
}

func TestValidateEmailConfig_Outlook(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateEmailConfig(EmailConfig{
		Type:         EmailProviderOutlook,
		Email:        "a@b.com",
		ClientID:     "id",
		ClientSecret: "secret",
	})
	require.False(t, result.Valid)
	assert.ElementsMatch(t, []string{
		"Tenant ID is required for Outlook",
		"Access token is required for Outlook",
	}, result.Errors)

	assert.True(t, f.ValidateEmailConfig(validOutlookConfig()).Valid)
}

func TestValidateEmailConfig_UnknownType(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateEmailConfig(EmailConfig{Type: "yahoo", Email: "a@b.com", ClientID: "x", ClientSecret: "y"})
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Unsupported email provider: yahoo")

	result = f.ValidateEmailConfig(EmailConfig{Email: "a@b.com", ClientID: "x", ClientSecret: "y"})
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Provider type is required")
}

func TestValidateMessagingConfig_Facebook(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateMessagingConfig(MessagingConfig{Type: MessagingProviderFacebookFanpage})
	require.False(t, result.Valid)
	assert.ElementsMatch(t, []string{
		"App ID is required for Facebook",
		"App secret is required for Facebook",
		"Access token is required for Facebook",
		"Page ID is required for Facebook Fanpage",
	}, result.Errors)

	assert.True(t, f.ValidateMessagingConfig(validFacebookConfig()).Valid)
}

func TestValidateMessagingConfig_TelegramAndZalo(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateMessagingConfig(MessagingConfig{Type: MessagingProviderTelegram})
	require.False(t, result.Valid)
	assert.Equal(t, []string{"Bot token is required for Telegram"}, result.Errors)

	result = f.ValidateMessagingConfig(MessagingConfig{Type: MessagingProviderZalo, AppID: "app"})
	require.False(t, result.Valid)
	assert.ElementsMatch(t, []string{
		"App secret is required for Zalo",
		"Access token is required for Zalo",
	}, result.Errors)
}

func TestValidateMessagingConfig_UnknownType(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.ValidateMessagingConfig(MessagingConfig{Type: "viber", AccessToken: "x"})
	require.False(t, result.Valid)
	assert.Equal(t, []string{"Unsupported messaging provider: viber"}, result.Errors)
}

func TestCreateEmailProvider_CachesByTypeAndIdentity(t *testing.T) {
	f := NewFactory(zap.NewNop())

	first, err := f.CreateEmailProvider(validGmailConfig())
	require.NoError(t, err)
	second, err := f.CreateEmailProvider(validGmailConfig())
	require.NoError(t, err)
	assert.Same(t, first, second)

	other := validGmailConfig()
	other.Email = "sales@example.com"
	third, err := f.CreateEmailProvider(other)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestCreateEmailProvider_TypeIsPartOfTheKey(t *testing.T) {
	f := NewFactory(zap.NewNop())

	gmail, err := f.CreateEmailProvider(validGmailConfig())
	require.NoError(t, err)

	outlook := validOutlookConfig()
	outlook.Email = validGmailConfig().Email
	graph, err := f.CreateEmailProvider(outlook)
	require.NoError(t, err)

	assert.NotSame(t, gmail, graph)
	assert.Equal(t, EmailProviderGmail, gmail.ProviderType())
	assert.Equal(t, EmailProviderOutlook, graph.ProviderType())
}

func TestCreateMessagingProvider_CachesByIdentity(t *testing.T) {
	f := NewFactory(zap.NewNop())

	first, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	second, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	assert.Same(t, first, second)

	other := validTelegramConfig()
	other.BotToken = "999999:other-token"
	third, err := f.CreateMessagingProvider(other)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestCreateProvider_InvalidConfigListsViolations(t *testing.T) {
	f := NewFactory(zap.NewNop())

	_, err := f.CreateEmailProvider(EmailConfig{Type: EmailProviderGmail})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Refresh token is required for Gmail")
	assert.Contains(t, err.Error(), "Client ID is required")

	_, err = f.CreateMessagingProvider(MessagingConfig{Type: "viber"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported messaging provider: viber")
}

func TestClearCache_ForcesRebuild(t *testing.T) {
	f := NewFactory(zap.NewNop())

	first, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)

	f.ClearCache()

	second, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestEvictChannel_DropsOneEntry(t *testing.T) {
	f := NewFactory(zap.NewNop())

	tg, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	fb, err := f.CreateMessagingProvider(validFacebookConfig())
	require.NoError(t, err)

	f.EvictChannel(MessagingProviderTelegram, validTelegramConfig().Identity())

	tg2, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	fb2, err := f.CreateMessagingProvider(validFacebookConfig())
	require.NoError(t, err)

	assert.NotSame(t, tg, tg2)
	assert.Same(t, fb, fb2)
}

func TestMaxAgeEviction_RebuildsExpiredEntries(t *testing.T) {
	f := NewFactory(zap.NewNop(), WithEvictionPolicy(MaxAgeEviction{TTL: -time.Second}))

	first, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	second, err := f.CreateMessagingProvider(validTelegramConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestSupportedProviders(t *testing.T) {
	f := NewFactory(zap.NewNop())

	assert.ElementsMatch(t, []string{"gmail", "outlook"}, f.SupportedEmailProviders())
	assert.ElementsMatch(t, []string{"facebook", "facebook_fanpage", "telegram", "zalo"},
		f.SupportedMessagingProviders())
}

func TestMessagingProviderCapabilities(t *testing.T) {
	f := NewFactory(zap.NewNop())

	caps, ok := f.MessagingProviderCapabilities(MessagingProviderTelegram)
	require.True(t, ok)
	assert.EqualValues(t, 50<<20, caps.MaxFileSize)
	assert.True(t, caps.SupportsVideo)

	caps, ok = f.MessagingProviderCapabilities(MessagingProviderZalo)
	require.True(t, ok)
	assert.EqualValues(t, 10<<20, caps.MaxFileSize)
	assert.False(t, caps.SupportsVideo)
	assert.False(t, caps.SupportsLocation)

	_, ok = f.MessagingProviderCapabilities("viber")
	assert.False(t, ok)
}

func TestEmailProviderCapabilities(t *testing.T) {
	f := NewFactory(zap.NewNop())

	caps, ok := f.EmailProviderCapabilities(EmailProviderGmail)
	require.True(t, ok)
	assert.True(t, caps.SupportsThreading)
	assert.EqualValues(t, 25<<20, caps.MaxAttachmentSize)

	_, ok = f.EmailProviderCapabilities("yahoo")
	assert.False(t, ok)
}

func TestTestEmailConnection_InvalidConfig(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.TestEmailConnection(context.Background(), EmailConfig{Type: EmailProviderGmail})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Refresh token is required for Gmail")
}

func TestTestMessagingConnection_InvalidConfig(t *testing.T) {
	f := NewFactory(zap.NewNop())

	result := f.TestMessagingConnection(context.Background(), MessagingConfig{Type: MessagingProviderTelegram})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Bot token is required for Telegram")
}
