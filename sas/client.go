package sas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/geoblob/sasign/internal/config"
)

const subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// response bodies are tiny JSON documents; anything larger is not a token
const maxResponseBytes = 1 << 20

// Client requests SAS tokens from the remote signing service. Transient
// failures (5xx, timeouts, connection errors) are retried with jittered
// backoff; 4xx responses fail immediately.
type Client struct {
	endpoint string
	http     *retryablehttp.Client

	mu              sync.RWMutex
	subscriptionKey string
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// WithHTTPClient replaces the underlying HTTP client. The client's transport
// is used as-is: no instrumentation is added.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithRetryMax sets the maximum number of retries after the initial attempt.
func WithRetryMax(n int) ClientOption {
	return func(o *clientOptions) {
		o.retryMax = n
	}
}

// WithRetryWait sets the bounds for retry backoff.
func WithRetryWait(min, max time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retryWaitMin = min
		o.retryWaitMax = max
	}
}

// NewClient creates a signing service client for the configured endpoint.
func NewClient(cfg config.Settings, opts ...ClientOption) *Client {
	o := &clientOptions{
		retryMax:     3,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		// surface this SDK's requests to the caller's telemetry provider
		httpClient.Transport = otelhttp.NewTransport(httpClient.Transport)
	}

	retryClient := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryWaitMin: o.retryWaitMin,
		RetryWaitMax: o.retryWaitMax,
		RetryMax:     o.retryMax,
		Backoff:      retryablehttp.LinearJitterBackoff,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		Logger:       nil,
	}

	return &Client{
		endpoint:        strings.TrimSuffix(cfg.Endpoint, "/"),
		http:            retryClient,
		subscriptionKey: cfg.SubscriptionKey,
	}
}

// SetSubscriptionKey replaces the subscription key attached to subsequent
// token requests. Safe for concurrent use.
func (c *Client) SetSubscriptionKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptionKey = key
}

func (c *Client) currentSubscriptionKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptionKey
}

// RequestToken fetches a fresh token for a storage container. The returned
// error is an *InvalidRequestError for 4xx responses and a
// *SigningServiceError for transport failures and 5xx responses that
// persisted through the retry budget.
func (c *Client) RequestToken(ctx context.Context, account, container string) (Token, error) {
	requestURL := fmt.Sprintf("%s/%s/%s", c.endpoint, account, container)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Token{}, fmt.Errorf("could not build token request: %w", err)
	}

	if key := c.currentSubscriptionKey(); key != "" {
		req.Header.Set(subscriptionKeyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Token{}, &SigningServiceError{Account: account, Container: container, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Token{}, &SigningServiceError{Account: account, Container: container, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Token{}, &InvalidRequestError{
			Account:    account,
			Container:  container,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}

	default:
		return Token{}, &SigningServiceError{
			Account:   account,
			Container: container,
			Err:       fmt.Errorf("signing service returned status %d", resp.StatusCode),
		}
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return Token{}, &SigningServiceError{
			Account:   account,
			Container: container,
			Err:       fmt.Errorf("could not decode token response: %w", err),
		}
	}

	if token.Token == "" {
		return Token{}, &SigningServiceError{
			Account:   account,
			Container: container,
			Err:       fmt.Errorf("no token found in response"),
		}
	}

	log.Debug().
		Str("account", account).
		Str("container", container).
		Time("expiry", token.Expiry).
		Msg("token issued by signing service")

	return token, nil
}
