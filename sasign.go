package sasign

import (
	"context"
	"iter"
	"sync"

	"github.com/geoblob/sasign/sas"
	"github.com/geoblob/sasign/stac"
)

// The package-level functions share one default client per process, so all
// callers benefit from a single token cache. Construct a Client explicitly
// to control configuration or cache sharing.
var (
	defaultOnce   sync.Once
	defaultClient *Client
	defaultErr    error
)

// Default returns the process-wide default client, creating it on first use
// from the environment and the persisted settings file.
func Default(ctx context.Context) (*Client, error) {
	defaultOnce.Do(func() {
		defaultClient, defaultErr = NewClient(ctx)
	})
	return defaultClient, defaultErr
}

// SetSubscriptionKey sets the API subscription key used by the default
// client for subsequent token requests. It does not write to the settings
// file; use the sasign CLI to persist a key.
func SetSubscriptionKey(ctx context.Context, key string) error {
	c, err := Default(ctx)
	if err != nil {
		return err
	}
	c.SetSubscriptionKey(key)
	return nil
}

// Sign signs obj with the default client. See Client.Sign.
func Sign(ctx context.Context, obj any) (any, error) {
	c, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return c.Sign(ctx, obj)
}

// SignInPlace signs obj by mutation with the default client. See
// Client.SignInPlace.
func SignInPlace(ctx context.Context, obj any) (any, error) {
	c, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return c.SignInPlace(ctx, obj)
}

// SignURL signs a single or composite href string with the default client.
func SignURL(ctx context.Context, href string) (string, error) {
	c, err := Default(ctx)
	if err != nil {
		return "", err
	}
	return c.SignURL(ctx, href)
}

// SignAsset signs a copy of the asset with the default client.
func SignAsset(ctx context.Context, asset *stac.Asset) (*stac.Asset, error) {
	c, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return c.SignAsset(ctx, asset)
}

// SignItem signs a copy of the item with the default client.
func SignItem(ctx context.Context, item *stac.Item) (*stac.Item, error) {
	c, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return c.SignItem(ctx, item)
}

// SignItemCollection signs a copy of the collection with the default client.
func SignItemCollection(ctx context.Context, collection *stac.ItemCollection) (*stac.ItemCollection, error) {
	c, err := Default(ctx)
	if err != nil {
		return nil, err
	}
	return c.SignItemCollection(ctx, collection)
}

// SignSearch lazily signs a paginated search's results with the default
// client. The returned sequence yields an error first if the default client
// cannot be constructed.
func SignSearch(ctx context.Context, search stac.Search) iter.Seq2[*stac.Item, error] {
	c, err := Default(ctx)
	if err != nil {
		return func(yield func(*stac.Item, error) bool) {
			yield(nil, err)
		}
	}
	return c.SignSearch(ctx, search)
}

// SignItemSeq lazily signs each item of a sequence with the default client.
// See Client.SignItemSeq.
func SignItemSeq(ctx context.Context, seq iter.Seq2[*stac.Item, error]) iter.Seq2[*stac.Item, error] {
	c, err := Default(ctx)
	if err != nil {
		return func(yield func(*stac.Item, error) bool) {
			yield(nil, err)
		}
	}
	return c.SignItemSeq(ctx, seq)
}

// Token returns a valid SAS token for a storage container from the default
// client's cache.
func Token(ctx context.Context, account, container string) (sas.Token, error) {
	c, err := Default(ctx)
	if err != nil {
		return sas.Token{}, err
	}
	return c.Token(ctx, account, container)
}
