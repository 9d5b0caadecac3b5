package sasign

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/geoblob/sasign/internal/config"
	"github.com/geoblob/sasign/sas"
)

// Client signs blob storage hrefs and the structures that contain them. It
// owns a token cache shared across all signing calls, so two hrefs in the
// same container reuse one token.
//
// A Client is safe for concurrent use. Most callers can use the package-level
// functions, which share a single default client for the process.
type Client struct {
	cache     *sas.Cache
	sasClient *sas.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	endpoint        string
	subscriptionKey string
	expiryMargin    time.Duration
	maxCacheEntries int
	clientOpts      []sas.ClientOption
}

// WithEndpoint overrides the SAS token service endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithSubscriptionKey sets the API subscription key sent with token requests.
func WithSubscriptionKey(key string) Option {
	return func(o *options) {
		o.subscriptionKey = key
	}
}

// WithExpiryMargin sets the safety buffer subtracted from token expiries.
// Tokens within the margin of expiring are refreshed before use.
func WithExpiryMargin(d time.Duration) Option {
	return func(o *options) {
		o.expiryMargin = d
	}
}

// WithMaxCacheEntries bounds the number of containers with cached tokens.
func WithMaxCacheEntries(n int) Option {
	return func(o *options) {
		o.maxCacheEntries = n
	}
}

// WithHTTPClient replaces the HTTP client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, sas.WithHTTPClient(c))
	}
}

// WithRetry adjusts the retry budget for token requests: at most retryMax
// retries after the initial attempt, with jittered backoff between waitMin
// and waitMax.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts,
			sas.WithRetryMax(retryMax),
			sas.WithRetryWait(waitMin, waitMax),
		)
	}
}

// NewClient creates a signing client. Settings are loaded from the
// environment and the persisted settings file, then adjusted by options.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("signing client configuration failed: %w", err)
	}

	o := &options{
		expiryMargin:    time.Minute,
		maxCacheEntries: 10_000,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.subscriptionKey != "" {
		cfg.SubscriptionKey = o.subscriptionKey
	}

	sasClient := sas.NewClient(cfg, o.clientOpts...)
	cache := sas.NewCache(sasClient.RequestToken,
		sas.WithExpiryMargin(o.expiryMargin),
		sas.WithMaxEntries(o.maxCacheEntries),
	)

	return &Client{
		cache:     cache,
		sasClient: sasClient,
	}, nil
}

// SetSubscriptionKey replaces the subscription key used for subsequent token
// requests. Cached tokens are unaffected.
func (c *Client) SetSubscriptionKey(key string) {
	c.sasClient.SetSubscriptionKey(key)
}

// Token returns a valid SAS token for a storage container, from the cache or
// freshly requested. Callers can use it to construct their own storage
// clients.
func (c *Client) Token(ctx context.Context, account, container string) (sas.Token, error) {
	return c.cache.Get(ctx, account, container)
}

// ContainerURL returns the container's https URL with a valid token
// appended, suitable as a pre-authorized base for blob reads.
func (c *Client) ContainerURL(ctx context.Context, account, container string) (string, error) {
	token, err := c.Token(ctx, account, container)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s?%s", account, container, token.Token), nil
}
