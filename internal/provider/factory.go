package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UnsupportedProviderError marks a provider type the factory cannot build.
type UnsupportedProviderError struct {
	Type string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider type: %s", e.Type)
}

// ValidationResult lists every violation found in a config, not just the
// first one.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ConnectionTestResult reports a live connectivity probe.
type ConnectionTestResult struct {
	Success bool
	Error   string
}

// EmailCapabilities is the static capability matrix for an email provider.
type EmailCapabilities struct {
	SupportsThreading   bool     `json:"supportsThreading"`
	SupportsHTML        bool     `json:"supportsHtml"`
	SupportsSearch      bool     `json:"supportsSearch"`
	MaxAttachmentSize   int64    `json:"maxAttachmentSize"`
	SupportedExtensions []string `json:"supportedExtensions"`
}

// EvictionPolicy decides whether a cached provider entry is stale. The
// default policy never evicts; credential rotation goes through ClearCache.
type EvictionPolicy interface {
	ShouldEvict(key string, createdAt time.Time) bool
}

type neverEvict struct{}

func (neverEvict) ShouldEvict(string, time.Time) bool { return false }

// MaxAgeEviction evicts entries older than TTL.
type MaxAgeEviction struct {
	TTL time.Duration
}

func (p MaxAgeEviction) ShouldEvict(_ string, createdAt time.Time) bool {
	return time.Since(createdAt) > p.TTL
}

type emailCacheEntry struct {
	provider  EmailProvider
	createdAt time.Time
}

type messagingCacheEntry struct {
	provider  MessagingProvider
	createdAt time.Time
}

// Factory builds and caches provider instances. Instances are cached per
// (type, identity) pair so repeated requests for the same mailbox or bot reuse
// one initialized client.
type Factory struct {
	mu        sync.Mutex
	email     map[string]emailCacheEntry
	messaging map[string]messagingCacheEntry
	policy    EvictionPolicy
	logger    *zap.Logger
	client    *http.Client
	tgClient  tgbotapi.HTTPClient
}

// FactoryOption configures the factory.
type FactoryOption func(*Factory)

// WithEvictionPolicy replaces the default never-evict cache policy.
func WithEvictionPolicy(policy EvictionPolicy) FactoryOption {
	return func(f *Factory) {
		f.policy = policy
	}
}

// WithHTTPClient injects the HTTP client handed to every provider.
func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// WithTelegramClient injects the client used by Telegram bot instances.
func WithTelegramClient(client tgbotapi.HTTPClient) FactoryOption {
	return func(f *Factory) {
		f.tgClient = client
	}
}

// NewFactory constructs a provider factory.
func NewFactory(logger *zap.Logger, opts ...FactoryOption) *Factory {
	f := &Factory{
		email:     make(map[string]emailCacheEntry),
		messaging: make(map[string]messagingCacheEntry),
		policy:    neverEvict{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func cacheKey(providerType, identity string) string {
	return providerType + "_" + identity
}

// SupportedEmailProviders lists the email provider types the factory builds.
func (f *Factory) SupportedEmailProviders() []string {
	return []string{EmailProviderGmail, EmailProviderOutlook}
}

// SupportedMessagingProviders lists the messaging provider types the factory
// builds.
func (f *Factory) SupportedMessagingProviders() []string {
	return []string{
		MessagingProviderFacebook,
		MessagingProviderFacebookFanpage,
		MessagingProviderTelegram,
		MessagingProviderZalo,
	}
}

// CreateEmailProvider returns an initialized provider for the config,
// reusing a cached instance for the same (type, identity).
func (f *Factory) CreateEmailProvider(cfg EmailConfig) (EmailProvider, error) {
	if v := f.ValidateEmailConfig(cfg); !v.Valid {
		return nil, fmt.Errorf("invalid email config: %s", strings.Join(v.Errors, "; "))
	}

	key := cacheKey(cfg.Type, cfg.Identity())

	f.mu.Lock()
	defer f.mu.Unlock()

	if entry, ok := f.email[key]; ok && !f.policy.ShouldEvict(key, entry.createdAt) {
		return entry.provider, nil
	}

	var p EmailProvider
	switch cfg.Type {
	case EmailProviderGmail:
		p = NewGmailProvider(f.logger, WithGmailHTTPClient(f.client))
	case EmailProviderOutlook:
		p = NewOutlookProvider(f.logger, WithOutlookHTTPClient(f.client))
	default:
		return nil, &UnsupportedProviderError{Type: cfg.Type}
	}

	if err := p.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("initialize %s provider: %w", cfg.Type, err)
	}
	f.email[key] = emailCacheEntry{provider: p, createdAt: time.Now()}
	f.logger.Debug("email provider created", zap.String("type", cfg.Type), zap.String("identity", cfg.Identity()))
	return p, nil
}

// CreateMessagingProvider returns an initialized provider for the config,
// reusing a cached instance for the same (type, identity).
func (f *Factory) CreateMessagingProvider(cfg MessagingConfig) (MessagingProvider, error) {
	if v := f.ValidateMessagingConfig(cfg); !v.Valid {
		return nil, fmt.Errorf("invalid messaging config: %s", strings.Join(v.Errors, "; "))
	}

	key := cacheKey(cfg.Type, cfg.Identity())

	f.mu.Lock()
	defer f.mu.Unlock()

	if entry, ok := f.messaging[key]; ok && !f.policy.ShouldEvict(key, entry.createdAt) {
		return entry.provider, nil
	}

	var p MessagingProvider
	switch cfg.Type {
	case MessagingProviderFacebook, MessagingProviderFacebookFanpage:
		p = NewFacebookProvider(f.logger, WithFacebookHTTPClient(f.client))
	case MessagingProviderTelegram:
		opts := []TelegramOption{}
		if f.tgClient != nil {
			opts = append(opts, WithTelegramHTTPClient(f.tgClient))
		}
		p = NewTelegramProvider(f.logger, opts...)
	case MessagingProviderZalo:
		p = NewZaloProvider(f.logger, WithZaloHTTPClient(f.client))
	default:
		return nil, &UnsupportedProviderError{Type: cfg.Type}
	}

	if err := p.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("initialize %s provider: %w", cfg.Type, err)
	}
	f.messaging[key] = messagingCacheEntry{provider: p, createdAt: time.Now()}
	f.logger.Debug("messaging provider created", zap.String("type", cfg.Type), zap.String("identity", cfg.Identity()))
	return p, nil
}

// ValidateEmailConfig runs the full checklist for the config's provider type
// and returns every violation.
func (f *Factory) ValidateEmailConfig(cfg EmailConfig) ValidationResult {
	var errs []string

	switch cfg.Type {
	case "":
		errs = append(errs, "Provider type is required")
	case EmailProviderGmail, EmailProviderOutlook:
	default:
		errs = append(errs, fmt.Sprintf("Unsupported email provider: %s", cfg.Type))
	}

	if cfg.Email == "" {
		errs = append(errs, "Email address is required")
	}
	if cfg.ClientID == "" {
		errs = append(errs, "Client ID is required")
	}
	if cfg.ClientSecret == "" {
		errs = append(errs, "Client secret is required")
	}
	switch cfg.Type {
	case EmailProviderGmail:
		if cfg.RefreshToken == "" {
			errs = append(errs, "Refresh token is required for Gmail")
		}
	case EmailProviderOutlook:
		if cfg.TenantID == "" {
			errs = append(errs, "Tenant ID is required for Outlook")
		}
		if cfg.AccessToken == "" {
			errs = append(errs, "Access token is required for Outlook")
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateMessagingConfig runs the full checklist for the config's provider
// type and returns every violation.
func (f *Factory) ValidateMessagingConfig(cfg MessagingConfig) ValidationResult {
	var errs []string

	switch cfg.Type {
	case "":
		errs = append(errs, "Provider type is required")
	case MessagingProviderFacebook, MessagingProviderFacebookFanpage:
		if cfg.AppID == "" {
			errs = append(errs, "App ID is required for Facebook")
		}
		if cfg.AppSecret == "" {
			errs = append(errs, "App secret is required for Facebook")
		}
		if cfg.AccessToken == "" {
			errs = append(errs, "Access token is required for Facebook")
		}
		if cfg.Type == MessagingProviderFacebookFanpage && cfg.PageID == "" {
			errs = append(errs, "Page ID is required for Facebook Fanpage")
		}
	case MessagingProviderTelegram:
		if cfg.BotToken == "" {
			errs = append(errs, "Bot token is required for Telegram")
		}
	case MessagingProviderZalo:
		if cfg.AppID == "" {
			errs = append(errs, "App ID is required for Zalo")
		}
		if cfg.AppSecret == "" {
			errs = append(errs, "App secret is required for Zalo")
		}
		if cfg.AccessToken == "" {
			errs = append(errs, "Access token is required for Zalo")
		}
	default:
		errs = append(errs, fmt.Sprintf("Unsupported messaging provider: %s", cfg.Type))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// TestEmailConnection builds (or reuses) the provider and probes it live.
func (f *Factory) TestEmailConnection(ctx context.Context, cfg EmailConfig) ConnectionTestResult {
	p, err := f.CreateEmailProvider(cfg)
	if err != nil {
		return ConnectionTestResult{Success: false, Error: err.Error()}
	}
	if !p.TestConnection(ctx) {
		return ConnectionTestResult{Success: false, Error: "connection test failed"}
	}
	return ConnectionTestResult{Success: true}
}

// TestMessagingConnection builds (or reuses) the provider and probes it live.
func (f *Factory) TestMessagingConnection(ctx context.Context, cfg MessagingConfig) ConnectionTestResult {
	p, err := f.CreateMessagingProvider(cfg)
	if err != nil {
		return ConnectionTestResult{Success: false, Error: err.Error()}
	}
	if !p.TestConnection(ctx) {
		return ConnectionTestResult{Success: false, Error: "connection test failed"}
	}
	return ConnectionTestResult{Success: true}
}

// EmailProviderCapabilities reports the static matrix for an email provider
// type.
func (f *Factory) EmailProviderCapabilities(providerType string) (EmailCapabilities, bool) {
	switch providerType {
	case EmailProviderGmail, EmailProviderOutlook:
		return EmailCapabilities{
			SupportsThreading:   true,
			SupportsHTML:        true,
			SupportsSearch:      true,
			MaxAttachmentSize:   25 << 20,
			SupportedExtensions: []string{"*"},
		}, true
	}
	return EmailCapabilities{}, false
}

// MessagingProviderCapabilities reports the static matrix for a messaging
// provider type without touching the network.
func (f *Factory) MessagingProviderCapabilities(providerType string) (MessagingCapabilities, bool) {
	switch providerType {
	case MessagingProviderFacebook, MessagingProviderFacebookFanpage:
		return (&FacebookProvider{}).Capabilities(), true
	case MessagingProviderTelegram:
		return (&TelegramProvider{}).Capabilities(), true
	case MessagingProviderZalo:
		return (&ZaloProvider{}).Capabilities(), true
	}
	return MessagingCapabilities{}, false
}

// ClearCache drops every cached provider. Callers use it after credential
// rotation so the next request rebuilds with fresh config.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = make(map[string]emailCacheEntry)
	f.messaging = make(map[string]messagingCacheEntry)
}

// EvictChannel drops any cached provider for one (type, identity) pair.
func (f *Factory) EvictChannel(providerType, identity string) {
	key := cacheKey(providerType, identity)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.email, key)
	delete(f.messaging, key)
}
