package stac_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoblob/sasign/stac"
)

const sampleItemJSON = `{
	"type": "Feature",
	"stac_version": "1.0.0",
	"id": "sample-item",
	"collection": "naip",
	"bbox": [-73.21, 43.99, -73.12, 44.05],
	"geometry": {"type": "Point", "coordinates": [-73.2, 44.0]},
	"properties": {"datetime": "2020-10-02T19:12:29Z"},
	"links": [
		{"rel": "self", "href": "https://example.com/items/sample-item"},
		{"rel": "root", "href": "https://example.com/", "type": "application/json"}
	],
	"assets": {
		"image": {
			"href": "https://naipeuwest.blob.core.windows.net/naip/01.tif",
			"type": "image/tiff",
			"roles": ["data"],
			"eo:bands": [{"name": "red"}]
		}
	},
	"msft:short_description": "sample"
}`

func parseSampleItem(t *testing.T) *stac.Item {
	t.Helper()

	var item stac.Item
	require.NoError(t, json.Unmarshal([]byte(sampleItemJSON), &item))
	return &item
}

func TestItemUnmarshal(t *testing.T) {
	item := parseSampleItem(t)

	assert.Equal(t, "sample-item", item.ID)
	assert.Equal(t, "naip", item.Collection)
	assert.Len(t, item.Links, 2)
	assert.Equal(t, "sample", item.ExtraFields["msft:short_description"])

	image := item.Assets["image"]
	require.NotNil(t, image)
	assert.Equal(t, "https://naipeuwest.blob.core.windows.net/naip/01.tif", image.Href)
	assert.Equal(t, "image/tiff", image.MediaType)
	assert.Equal(t, []string{"data"}, image.Roles)
	assert.Contains(t, image.ExtraFields, "eo:bands")
	assert.Same(t, item, image.Owner())
}

func TestItemJSONRoundTrip(t *testing.T) {
	item := parseSampleItem(t)

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var reparsed stac.Item
	require.NoError(t, json.Unmarshal(data, &reparsed))

	assert.Equal(t, item.ID, reparsed.ID)
	assert.Equal(t, item.ExtraFields, reparsed.ExtraFields)
	assert.Len(t, reparsed.Links, 2)
	assert.Equal(t, "self", reparsed.Links[0].Rel)
	assert.Equal(t, item.Assets["image"].Href, reparsed.Assets["image"].Href)
	assert.Equal(t, item.Assets["image"].ExtraFields, reparsed.Assets["image"].ExtraFields)
}

func TestItemClone_DeepAndOwned(t *testing.T) {
	item := parseSampleItem(t)
	clone := item.Clone()

	// mutations of the clone must not leak into the original
	clone.Assets["image"].Href = "changed"
	clone.Assets["image"].ExtraFields["eo:bands"] = "changed"
	clone.Links[0].Href = "changed"
	clone.Properties["datetime"] = "changed"

	assert.Equal(t, "https://naipeuwest.blob.core.windows.net/naip/01.tif", item.Assets["image"].Href)
	assert.NotEqual(t, "changed", item.Assets["image"].ExtraFields["eo:bands"])
	assert.Equal(t, "https://example.com/items/sample-item", item.Links[0].Href)
	assert.Equal(t, "2020-10-02T19:12:29Z", item.Properties["datetime"])

	// owner backreferences point at the clone, not the source item
	assert.Same(t, clone, clone.Assets["image"].Owner())
	assert.Same(t, item, item.Assets["image"].Owner())
}

func TestItemLink(t *testing.T) {
	item := parseSampleItem(t)

	self := item.Link("self")
	require.NotNil(t, self)
	assert.Equal(t, "https://example.com/items/sample-item", self.Href)

	assert.Nil(t, item.Link("license"))
}

func TestAssetClone_Detached(t *testing.T) {
	item := parseSampleItem(t)
	clone := item.Assets["image"].Clone()

	assert.Nil(t, clone.Owner())
	assert.Equal(t, item.Assets["image"].Href, clone.Href)
}

func TestItemCollectionJSONRoundTrip(t *testing.T) {
	collection := &stac.ItemCollection{
		Items:       []*stac.Item{parseSampleItem(t)},
		ExtraFields: map[string]any{"context": map[string]any{"returned": float64(1)}},
	}

	data, err := json.Marshal(collection)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"FeatureCollection"`)

	var reparsed stac.ItemCollection
	require.NoError(t, json.Unmarshal(data, &reparsed))

	require.Len(t, reparsed.Items, 1)
	assert.Equal(t, "sample-item", reparsed.Items[0].ID)
	assert.Equal(t, collection.ExtraFields, reparsed.ExtraFields)
}

func TestItemCollectionClone_PreservesOrder(t *testing.T) {
	a := parseSampleItem(t)
	b := parseSampleItem(t)
	b.ID = "second-item"

	collection := &stac.ItemCollection{Items: []*stac.Item{a, b}}
	clone := collection.Clone()

	require.Len(t, clone.Items, 2)
	assert.Equal(t, "sample-item", clone.Items[0].ID)
	assert.Equal(t, "second-item", clone.Items[1].ID)
	assert.NotSame(t, a, clone.Items[0])
}
