package stac

import "encoding/json"

// ItemCollection is an ordered collection of items, serialized as a GeoJSON
// FeatureCollection.
type ItemCollection struct {
	Items       []*Item
	ExtraFields map[string]any
}

// Clone returns a deep copy of the collection with each member cloned.
func (c *ItemCollection) Clone() *ItemCollection {
	clone := &ItemCollection{}
	if c.ExtraFields != nil {
		clone.ExtraFields = copyMap(c.ExtraFields)
	}
	for _, item := range c.Items {
		clone.Items = append(clone.Items, item.Clone())
	}
	return clone
}

func (c *ItemCollection) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	for k, v := range c.ExtraFields {
		m[k] = v
	}

	m["type"] = "FeatureCollection"
	features := c.Items
	if features == nil {
		features = []*Item{}
	}
	m["features"] = features

	return json.Marshal(m)
}

func (c *ItemCollection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Features []*Item `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	delete(m, "type")
	delete(m, "features")

	c.Items = raw.Features
	if len(m) > 0 {
		c.ExtraFields = m
	}

	return nil
}
