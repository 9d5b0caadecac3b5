package sasign

import (
	"context"
	"fmt"

	"github.com/geoblob/sasign/stac"
)

// SignInPlace signs obj by mutating it, returning the same object. It is
// semantically identical to Sign but avoids cloning, which makes it suitable
// as a result modifier hook for paginated clients.
//
// Supported shapes: *stac.Asset, *stac.Item, *stac.ItemCollection,
// []*stac.Item, and map[string]any reference mappings. Strings are immutable
// values, so an in-place call with a string is a MalformedStructureError;
// use Sign for those.
func (c *Client) SignInPlace(ctx context.Context, obj any) (any, error) {
	switch v := obj.(type) {
	case *stac.Asset:
		return v, c.signAssetInPlace(ctx, v)
	case *stac.Item:
		return v, c.signItemInPlace(ctx, v)
	case *stac.ItemCollection:
		return v, c.signItemCollectionInPlace(ctx, v)
	case []*stac.Item:
		for _, item := range v {
			if err := c.signItemInPlace(ctx, item); err != nil {
				return nil, err
			}
		}
		return v, nil
	case map[string]any:
		return v, c.signReferencesInPlace(ctx, v)
	case string:
		return nil, &MalformedStructureError{
			Reason: "cannot sign a string in place; use Sign",
		}
	default:
		return nil, &MalformedStructureError{
			Reason: fmt.Sprintf("cannot sign value of type %T in place", obj),
		}
	}
}
