// Package stac provides a minimal STAC catalog object model: items, assets,
// links and item collections, with the accessor capabilities the signing
// rewriter relies on (asset maps, link preservation, extra fields, deep
// cloning).
package stac

import "encoding/json"

// Asset is a named resource belonging to an Item, typically an href plus
// metadata describing how to read it.
type Asset struct {
	Href        string
	Title       string
	Description string
	MediaType   string
	Roles       []string

	// ExtraFields holds any asset properties outside the core set, such as
	// the storage-options blocks used by table and xarray extensions.
	ExtraFields map[string]any

	owner *Item
}

// Owner returns the item this asset belongs to, or nil for a detached asset.
func (a *Asset) Owner() *Item {
	return a.owner
}

// SetOwner attaches the asset to an item.
func (a *Asset) SetOwner(item *Item) {
	a.owner = item
}

// Clone returns a deep copy of the asset. The copy is detached: the owner
// backreference is not carried over.
func (a *Asset) Clone() *Asset {
	clone := &Asset{
		Href:        a.Href,
		Title:       a.Title,
		Description: a.Description,
		MediaType:   a.MediaType,
	}

	if a.Roles != nil {
		clone.Roles = append([]string(nil), a.Roles...)
	}
	if a.ExtraFields != nil {
		clone.ExtraFields = copyMap(a.ExtraFields)
	}

	return clone
}

func (a *Asset) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	for k, v := range a.ExtraFields {
		m[k] = v
	}

	m["href"] = a.Href
	if a.Title != "" {
		m["title"] = a.Title
	}
	if a.Description != "" {
		m["description"] = a.Description
	}
	if a.MediaType != "" {
		m["type"] = a.MediaType
	}
	if len(a.Roles) > 0 {
		m["roles"] = a.Roles
	}

	return json.Marshal(m)
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	a.Href, _ = takeString(m, "href")
	a.Title, _ = takeString(m, "title")
	a.Description, _ = takeString(m, "description")
	a.MediaType, _ = takeString(m, "type")

	if roles, ok := m["roles"].([]any); ok {
		delete(m, "roles")
		a.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok {
				a.Roles = append(a.Roles, s)
			}
		}
	}

	if len(m) > 0 {
		a.ExtraFields = m
	}

	return nil
}

// copyMap deep copies a JSON-shaped map (nested maps and slices copied,
// scalars shared).
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func takeString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	if ok {
		delete(m, key)
	}
	return s, ok
}
