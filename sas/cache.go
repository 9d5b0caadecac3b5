package sas

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
	"github.com/rs/zerolog/log"
)

// TokenSource fetches a fresh token for a storage container from the
// signing service. Client.RequestToken satisfies this.
type TokenSource func(ctx context.Context, account, container string) (Token, error)

// Cache holds one token per (account, container) pair, refreshing entries
// synchronously when they are missing or within the expiry margin of
// expiring.
//
// The cache is non-locking around refreshes: concurrent Get calls for the
// same key may each request a token, and the entry expiring latest wins.
// Token requests are idempotent per key, so any winner is valid; skipping a
// refresh lock keeps the hot read path cheap.
type Cache struct {
	tokens  *otter.Cache[string, Token]
	counter *stats.Counter
	source  TokenSource
	margin  time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	margin     time.Duration
	maxEntries int
	maxAge     time.Duration
}

// WithExpiryMargin sets the safety buffer subtracted from a token's expiry.
// A token within the margin of expiring is treated as expired and refreshed
// before use.
func WithExpiryMargin(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.margin = d
	}
}

// WithMaxEntries bounds the number of cached containers.
func WithMaxEntries(n int) CacheOption {
	return func(o *cacheOptions) {
		o.maxEntries = n
	}
}

// NewCache creates a token cache backed by the given source.
func NewCache(source TokenSource, opts ...CacheOption) *Cache {
	o := &cacheOptions{
		margin:     time.Minute,
		maxEntries: 10_000,
		// hard bound on entry residency; the margin check governs
		// correctness, this just stops dead containers accumulating
		maxAge: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(o)
	}

	counter := stats.NewCounter()
	tokens := otter.Must(&otter.Options[string, Token]{
		MaximumSize:      o.maxEntries,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryCreating[string, Token](o.maxAge),
	})

	return &Cache{
		tokens:  tokens,
		counter: counter,
		source:  source,
		margin:  o.margin,
	}
}

// Get returns a valid token for the container, refreshing it from the
// signing service when absent or too close to expiring. A non-nil error
// means signing was required and failed; it is never a cache miss.
func (c *Cache) Get(ctx context.Context, account, container string) (Token, error) {
	key := cacheKey(account, container)

	entry, ok := c.tokens.GetEntry(key)
	if ok && entry.Value.TTL() > c.margin {
		return entry.Value, nil
	}

	if ok {
		log.Debug().
			Str("key", key).
			Time("expiry", entry.Value.Expiry).
			Msg("cached token within expiry margin, refreshing")
	}

	return c.Refresh(ctx, account, container)
}

// Refresh requests a fresh token and stores it. If a concurrent refresh has
// already stored a token expiring later, that token is kept and returned:
// a response from a slower, earlier request never clobbers a fresher entry.
func (c *Cache) Refresh(ctx context.Context, account, container string) (Token, error) {
	token, err := c.source(ctx, account, container)
	if err != nil {
		return Token{}, err
	}

	key := cacheKey(account, container)
	if current, ok := c.tokens.GetEntry(key); ok && current.Value.Expiry.After(token.Expiry) {
		return current.Value, nil
	}

	c.tokens.Set(key, token)
	return token, nil
}

// Invalidate drops the cached token for a container.
func (c *Cache) Invalidate(account, container string) {
	c.tokens.Invalidate(cacheKey(account, container))
}

// Stats returns a snapshot of cache hit/miss counters.
func (c *Cache) Stats() stats.Stats {
	return c.counter.Snapshot()
}

// A token is never shared across containers, even within one account.
func cacheKey(account, container string) string {
	return account + "/" + container
}
