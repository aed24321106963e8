package cms

import (
	"encoding/json"
	"strings"
)

// Sys is the system metadata block the CMS attaches to every resource.
type Sys struct {
	ID               string `json:"id,omitempty"`
	Type             string `json:"type,omitempty"`
	LinkType         string `json:"linkType,omitempty"`
	Version          int    `json:"version,omitempty"`
	PublishedVersion int    `json:"publishedVersion,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	PublishedAt      string `json:"publishedAt,omitempty"`
	Visibility       string `json:"visibility,omitempty"`
	ContentType      *Link  `json:"contentType,omitempty"`
}

// Link references another resource by id.
type Link struct {
	Sys Sys `json:"sys"`
}

// NewLink builds a Link of the given linkType ("Tag", "Asset", "Upload", ...).
func NewLink(linkType, id string) Link {
	return Link{Sys: Sys{Type: "Link", LinkType: linkType, ID: id}}
}

// Metadata carries the tags attached to an entry or asset.
type Metadata struct {
	Tags []Link `json:"tags"`
}

// TagIDs returns the ids of the linked tags.
func (m Metadata) TagIDs() []string {
	ids := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		ids = append(ids, t.Sys.ID)
	}
	return ids
}

// Fields is a management API field map: field id -> locale -> value.
type Fields map[string]map[string]any

// Localize wraps plain field values under locale.
func Localize(values map[string]any, locale string) Fields {
	out := make(Fields, len(values))
	for k, v := range values {
		out[k] = map[string]any{locale: v}
	}
	return out
}

// Merge overlays patch onto f, replacing whole fields.
func (f Fields) Merge(patch Fields) Fields {
	out := make(Fields, len(f)+len(patch))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Entry is a management API entry.
type Entry struct {
	Sys      Sys      `json:"sys"`
	Fields   Fields   `json:"fields"`
	Metadata Metadata `json:"metadata"`
}

// Value returns the raw value of field in locale.
func (e Entry) Value(field, locale string) (any, bool) {
	v, ok := e.Fields[field][locale]
	return v, ok
}

// String returns a string field, or "" when missing or not a string.
func (e Entry) String(field, locale string) string {
	v, _ := e.Value(field, locale)
	s, _ := v.(string)
	return s
}

// Published reports whether the entry has a published version.
func (e Entry) Published() bool { return e.Sys.PublishedVersion > 0 }

// ImageDetails holds the pixel size reported after processing.
type ImageDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FileDetails describes a processed file.
type FileDetails struct {
	Size  int           `json:"size,omitempty"`
	Image *ImageDetails `json:"image,omitempty"`
}

// AssetFile is one localized file of an asset.
type AssetFile struct {
	URL         string       `json:"url,omitempty"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	UploadFrom  *Link        `json:"uploadFrom,omitempty"`
	Details     *FileDetails `json:"details,omitempty"`
}

// AssetFields are the localized asset fields.
type AssetFields struct {
	Title       map[string]string    `json:"title,omitempty"`
	Description map[string]string    `json:"description,omitempty"`
	File        map[string]AssetFile `json:"file,omitempty"`
}

// Asset is a management API asset.
type Asset struct {
	Sys    Sys         `json:"sys"`
	Fields AssetFields `json:"fields"`
}

// File returns the file for locale, if any.
func (a Asset) File(locale string) (AssetFile, bool) {
	f, ok := a.Fields.File[locale]
	return f, ok
}

// URL returns the processed file URL for locale with protocol-relative
// references made absolute. Empty until processing finished.
func (a Asset) URL(locale string) string {
	f, ok := a.File(locale)
	if !ok {
		return ""
	}
	return AbsoluteURL(f.URL)
}

// Published reports whether the asset has a published version.
func (a Asset) Published() bool { return a.Sys.PublishedVersion > 0 }

// AbsoluteURL prefixes protocol-relative URLs with "https:".
func AbsoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// Tag is an environment-level tag.
type Tag struct {
	Sys  Sys    `json:"sys"`
	Name string `json:"name"`
}

// ContentTypeField describes one field of a content type.
type ContentTypeField struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	Localized bool   `json:"localized"`
}

// ContentType is the schema of an entry type.
type ContentType struct {
	Sys          Sys                `json:"sys"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	DisplayField string             `json:"displayField,omitempty"`
	Fields       []ContentTypeField `json:"fields"`
}

// Collection is a paged list response.
type Collection[T any] struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Items []T `json:"items"`
}

// DeliveryEntry is a published entry from the delivery API. Fields are
// already resolved to a single locale.
type DeliveryEntry struct {
	Sys      Sys                        `json:"sys"`
	Fields   map[string]json.RawMessage `json:"fields"`
	Metadata Metadata                   `json:"metadata"`
}

// String returns a string field or "".
func (e DeliveryEntry) String(field string) string {
	var s string
	if raw, ok := e.Fields[field]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// DeliveryAsset is a published asset from the delivery API.
type DeliveryAsset struct {
	Sys    Sys `json:"sys"`
	Fields struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		File        AssetFile `json:"file"`
	} `json:"fields"`
}

// DeliveryPage is a delivery API entries response with linked includes.
type DeliveryPage struct {
	Total    int             `json:"total"`
	Skip     int             `json:"skip"`
	Limit    int             `json:"limit"`
	Items    []DeliveryEntry `json:"items"`
	Includes struct {
		Asset []DeliveryAsset `json:"Asset"`
	} `json:"includes"`
}
