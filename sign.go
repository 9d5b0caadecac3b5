// Package sasign signs URLs referencing assets in private Azure Blob Storage
// containers with short-lived SAS tokens, so downstream geospatial tooling
// can read the data. It signs plain hrefs, composite strings (VRT documents,
// GDAL connection strings), kerchunk reference indexes, and STAC assets,
// items, item collections and lazy search results, recursively and without
// disturbing surrounding structure.
package sasign

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"regexp"
	"slices"

	"github.com/geoblob/sasign/internal/href"
	"github.com/geoblob/sasign/stac"
)

// blob hrefs embedded in composite strings (VRT XML, /vsicurl/ connection
// strings, kerchunk templates)
var embeddedBlobURL = regexp.MustCompile(
	`https://[a-z0-9]+\.blob\.core\.windows\.net/[^\s"'<>\\]+`)

// Sign returns a copy of obj with every recognized blob storage href signed.
// Supported shapes: string (single href or composite), map[string]any
// (kerchunk reference index), *stac.Asset, *stac.Item, *stac.ItemCollection,
// []*stac.Item, and stac.Search (signed lazily).
//
// Hrefs outside the signable domain pass through unchanged. A failure to
// obtain a token for any href aborts the whole call: no partial results are
// returned.
func (c *Client) Sign(ctx context.Context, obj any) (any, error) {
	switch v := obj.(type) {
	case string:
		return c.SignURL(ctx, v)
	case map[string]any:
		return c.SignReferences(ctx, v)
	case *stac.Asset:
		return c.SignAsset(ctx, v)
	case *stac.Item:
		return c.SignItem(ctx, v)
	case *stac.ItemCollection:
		return c.SignItemCollection(ctx, v)
	case []*stac.Item:
		return c.SignItems(ctx, v)
	case stac.Search:
		return c.SignSearch(ctx, v), nil
	default:
		return nil, &MalformedStructureError{
			Reason: fmt.Sprintf("cannot sign value of type %T", obj),
		}
	}
}

// SignURL signs a single href, or each blob href embedded in a composite
// string such as a VRT document or a GDAL /vsicurl/ connection string.
// Strings without a recognizable blob href are returned unchanged; signing
// an already-signed href is a byte-identical no-op.
func (c *Client) SignURL(ctx context.Context, s string) (string, error) {
	if _, ok := href.Parse(s); ok {
		return c.signHref(ctx, s)
	}

	if !embeddedBlobURL.MatchString(s) {
		return s, nil
	}

	var signErr error
	signed := embeddedBlobURL.ReplaceAllStringFunc(s, func(match string) string {
		if signErr != nil {
			return match
		}
		out, err := c.signHref(ctx, match)
		if err != nil {
			signErr = err
			return match
		}
		return out
	})
	if signErr != nil {
		return "", signErr
	}

	return signed, nil
}

// signHref is the core signer: classify, then append a cached token.
// Unrecognized hrefs pass through, as do hrefs that already carry a
// signature. Filesystem-style hrefs (abfs/az) carry no account and cannot be
// signed directly; they are credentialed via storage options instead.
func (c *Client) signHref(ctx context.Context, raw string) (string, error) {
	comps, ok := href.Parse(raw)
	if !ok || comps.Account == "" {
		return raw, nil
	}

	if href.IsSigned(raw) {
		return raw, nil
	}

	token, err := c.cache.Get(ctx, comps.Account, comps.Container)
	if err != nil {
		return "", err
	}

	return token.SignHref(raw), nil
}

// SignAsset returns a copy of the asset with its href signed and any
// storage-options block credentialed.
func (c *Client) SignAsset(ctx context.Context, asset *stac.Asset) (*stac.Asset, error) {
	clone := asset.Clone()
	if err := c.signAssetInPlace(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// SignItem returns a copy of the item with every asset signed. Links,
// properties and all other fields are preserved, the self and root links
// included.
func (c *Client) SignItem(ctx context.Context, item *stac.Item) (*stac.Item, error) {
	clone := item.Clone()
	if err := c.signItemInPlace(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// SignItemCollection returns a copy of the collection with every member
// item signed, order preserved.
func (c *Client) SignItemCollection(ctx context.Context, collection *stac.ItemCollection) (*stac.ItemCollection, error) {
	clone := collection.Clone()
	if err := c.signItemCollectionInPlace(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// SignItems returns a new slice with each item signed independently, order
// preserved.
func (c *Client) SignItems(ctx context.Context, items []*stac.Item) ([]*stac.Item, error) {
	signed := make([]*stac.Item, 0, len(items))
	for _, item := range items {
		s, err := c.SignItem(ctx, item)
		if err != nil {
			return nil, err
		}
		signed = append(signed, s)
	}
	return signed, nil
}

// SignReferences returns a copy of a kerchunk-style reference mapping with
// every embedded url signed. Two layouts are supported: a full index
// document (version/templates/refs) and a bare mapping of reference entries.
// Entry values are either [url, offset, length] triples, whose non-url
// members are untouched, or raw strings.
func (c *Client) SignReferences(ctx context.Context, refs map[string]any) (map[string]any, error) {
	clone := copyJSONMap(refs)
	if err := c.signReferencesInPlace(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// SignSearch wraps a paginated search in a lazy signed sequence: each item
// is signed as the underlying page iterator produces it. Pages are fetched
// at iteration time, never eagerly. Like the underlying search, the result
// is single-pass.
func (c *Client) SignSearch(ctx context.Context, search stac.Search) iter.Seq2[*stac.Item, error] {
	return c.SignItemSeq(ctx, search.Items(ctx))
}

// SignItemSeq lazily signs each item of a sequence, forwarding the source's
// errors. Iteration stops after the first error: a failed asset aborts the
// sequence rather than skipping.
func (c *Client) SignItemSeq(ctx context.Context, seq iter.Seq2[*stac.Item, error]) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}

			signed, err := c.SignItem(ctx, item)
			if !yield(signed, err) || err != nil {
				return
			}
		}
	}
}

// signItemInPlace signs every asset of the item, mutating it. Assets are
// visited in deterministic key order.
func (c *Client) signItemInPlace(ctx context.Context, item *stac.Item) error {
	for _, key := range slices.Sorted(maps.Keys(item.Assets)) {
		if err := c.signAssetInPlace(ctx, item.Assets[key]); err != nil {
			return fmt.Errorf("signing asset %q: %w", key, err)
		}
	}
	return nil
}

func (c *Client) signItemCollectionInPlace(ctx context.Context, collection *stac.ItemCollection) error {
	for _, item := range collection.Items {
		if err := c.signItemInPlace(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// signAssetInPlace signs the asset's href and credentials its
// storage-options block. An asset without an href, or with an href outside
// the signable domain, is left entirely unchanged.
func (c *Client) signAssetInPlace(ctx context.Context, asset *stac.Asset) error {
	if asset.Href == "" {
		return nil
	}

	signed, err := c.SignURL(ctx, asset.Href)
	if err != nil {
		return err
	}
	asset.Href = signed

	return c.injectStorageOptions(ctx, asset)
}

func (c *Client) signReferencesInPlace(ctx context.Context, refs map[string]any) error {
	// full kerchunk index document
	if inner, ok := refs["refs"].(map[string]any); ok {
		if err := c.signReferenceEntries(ctx, inner); err != nil {
			return err
		}
		if templates, ok := refs["templates"].(map[string]any); ok {
			return c.signReferenceEntries(ctx, templates)
		}
		return nil
	}

	return c.signReferenceEntries(ctx, refs)
}

func (c *Client) signReferenceEntries(ctx context.Context, entries map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		switch v := entries[key].(type) {
		case string:
			signed, err := c.SignURL(ctx, v)
			if err != nil {
				return fmt.Errorf("signing reference %q: %w", key, err)
			}
			entries[key] = signed

		case []any:
			if len(v) == 0 {
				continue
			}
			u, ok := v[0].(string)
			if !ok {
				continue
			}
			signed, err := c.SignURL(ctx, u)
			if err != nil {
				return fmt.Errorf("signing reference %q: %w", key, err)
			}
			v[0] = signed
		}
	}
	return nil
}

func copyJSONMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = copyJSONMap(t)
		case []any:
			s := make([]any, len(t))
			copy(s, t)
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}
