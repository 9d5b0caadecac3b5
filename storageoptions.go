package sasign

import (
	"context"
	"fmt"

	"github.com/geoblob/sasign/internal/href"
	"github.com/geoblob/sasign/stac"
)

// Storage-options blocks appear under one of three schema keys, kept for
// backward compatibility across extension versions: the table extension key,
// the xarray extension top-level key, and the xarray extension key nested
// under open_kwargs.
const (
	tableStorageOptionsKey  = "table:storage_options"
	xarrayStorageOptionsKey = "xarray:storage_options"
	xarrayOpenKwargsKey     = "xarray:open_kwargs"

	nestedStorageOptionsKey = "storage_options"
)

// storageOptionsBlock locates the asset's storage-options block, whichever
// schema key holds it. Returns ok=false when the asset carries none.
func storageOptionsBlock(asset *stac.Asset) (map[string]any, bool) {
	for _, key := range []string{tableStorageOptionsKey, xarrayStorageOptionsKey} {
		if block, ok := asset.ExtraFields[key].(map[string]any); ok {
			return block, true
		}
	}

	if kwargs, ok := asset.ExtraFields[xarrayOpenKwargsKey].(map[string]any); ok {
		if block, ok := kwargs[nestedStorageOptionsKey].(map[string]any); ok {
			return block, true
		}
	}

	return nil, false
}

// injectStorageOptions updates the asset's storage-options block, if any,
// with the storage account name and a valid token as the credential. Sibling
// keys in the block are left untouched; assets without a block are left
// entirely alone.
func (c *Client) injectStorageOptions(ctx context.Context, asset *stac.Asset) error {
	block, ok := storageOptionsBlock(asset)
	if !ok {
		return nil
	}

	account, _ := block["account_name"].(string)
	container := ""

	if comps, ok := href.Parse(asset.Href); ok {
		container = comps.Container
		if comps.Account != "" {
			// the href names the account authoritatively
			account = comps.Account
		}
	}

	if account == "" || container == "" {
		return &MalformedStructureError{
			Reason: fmt.Sprintf(
				"storage options present but account/container undeterminable for href %q",
				asset.Href),
		}
	}

	token, err := c.cache.Get(ctx, account, container)
	if err != nil {
		return err
	}

	block["account_name"] = account
	block["credential"] = token.Token

	return nil
}
