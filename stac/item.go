package stac

import "encoding/json"

// Link connects an item to related resources: its self href, parent
// catalog, derived products and so on.
type Link struct {
	Rel         string
	Href        string
	MediaType   string
	Title       string
	ExtraFields map[string]any
}

// Clone returns a deep copy of the link.
func (l *Link) Clone() *Link {
	clone := *l
	if l.ExtraFields != nil {
		clone.ExtraFields = copyMap(l.ExtraFields)
	}
	return &clone
}

func (l *Link) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	for k, v := range l.ExtraFields {
		m[k] = v
	}

	m["rel"] = l.Rel
	m["href"] = l.Href
	if l.MediaType != "" {
		m["type"] = l.MediaType
	}
	if l.Title != "" {
		m["title"] = l.Title
	}

	return json.Marshal(m)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	l.Rel, _ = takeString(m, "rel")
	l.Href, _ = takeString(m, "href")
	l.MediaType, _ = takeString(m, "type")
	l.Title, _ = takeString(m, "title")

	if len(m) > 0 {
		l.ExtraFields = m
	}

	return nil
}

// Item is a STAC item: a spatiotemporal catalog entry holding a map of
// named assets and a set of links.
type Item struct {
	ID          string
	StacVersion string
	Geometry    any
	BBox        []float64
	Properties  map[string]any
	Links       []*Link
	Assets      map[string]*Asset
	Collection  string
	ExtraFields map[string]any
}

// AddAsset stores an asset under the given key and sets its owner
// backreference.
func (i *Item) AddAsset(key string, asset *Asset) {
	if i.Assets == nil {
		i.Assets = map[string]*Asset{}
	}
	asset.SetOwner(i)
	i.Assets[key] = asset
}

// Link returns the first link with the given rel, or nil.
func (i *Item) Link(rel string) *Link {
	for _, l := range i.Links {
		if l.Rel == rel {
			return l
		}
	}
	return nil
}

// Clone returns a deep copy of the item. Asset owner backreferences point at
// the new item.
func (i *Item) Clone() *Item {
	clone := &Item{
		ID:          i.ID,
		StacVersion: i.StacVersion,
		Geometry:    copyValue(i.Geometry),
		Collection:  i.Collection,
	}

	if i.BBox != nil {
		clone.BBox = append([]float64(nil), i.BBox...)
	}
	if i.Properties != nil {
		clone.Properties = copyMap(i.Properties)
	}
	if i.ExtraFields != nil {
		clone.ExtraFields = copyMap(i.ExtraFields)
	}

	for _, l := range i.Links {
		clone.Links = append(clone.Links, l.Clone())
	}

	if i.Assets != nil {
		clone.Assets = make(map[string]*Asset, len(i.Assets))
		for key, a := range i.Assets {
			clone.AddAsset(key, a.Clone())
		}
	}

	return clone
}

func (i *Item) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	for k, v := range i.ExtraFields {
		m[k] = v
	}

	m["type"] = "Feature"
	m["id"] = i.ID
	m["geometry"] = i.Geometry
	m["properties"] = i.Properties
	m["links"] = i.Links
	m["assets"] = i.Assets

	if i.StacVersion != "" {
		m["stac_version"] = i.StacVersion
	}
	if i.BBox != nil {
		m["bbox"] = i.BBox
	}
	if i.Collection != "" {
		m["collection"] = i.Collection
	}

	return json.Marshal(m)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string            `json:"id"`
		StacVersion string            `json:"stac_version"`
		Geometry    any               `json:"geometry"`
		BBox        []float64         `json:"bbox"`
		Properties  map[string]any    `json:"properties"`
		Links       []*Link           `json:"links"`
		Assets      map[string]*Asset `json:"assets"`
		Collection  string            `json:"collection"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for _, known := range []string{
		"type", "id", "stac_version", "geometry", "bbox",
		"properties", "links", "assets", "collection",
	} {
		delete(m, known)
	}

	i.ID = raw.ID
	i.StacVersion = raw.StacVersion
	i.Geometry = raw.Geometry
	i.BBox = raw.BBox
	i.Properties = raw.Properties
	i.Links = raw.Links
	i.Collection = raw.Collection
	if len(m) > 0 {
		i.ExtraFields = m
	}

	i.Assets = nil
	for key, a := range raw.Assets {
		i.AddAsset(key, a)
	}

	return nil
}
