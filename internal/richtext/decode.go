package richtext

import (
	"encoding/json"
	"fmt"
)

// DefaultLocale is the locale used to unwrap localized link targets.
const DefaultLocale = "en-US"

// AssetIndex resolves asset ids to their rendered reference, typically built
// from the delivery API "includes" section.
type AssetIndex map[string]AssetRef

type rawNode struct {
	NodeType string    `json:"nodeType"`
	Value    string    `json:"value"`
	Marks    []rawMark `json:"marks"`
	Data     rawData   `json:"data"`
	Content  []rawNode `json:"content"`
}

type rawMark struct {
	Type string `json:"type"`
}

type rawData struct {
	URI    string          `json:"uri"`
	Target json.RawMessage `json:"target"`
}

type rawTarget struct {
	Sys struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		LinkType string `json:"linkType"`
	} `json:"sys"`
	Fields map[string]json.RawMessage `json:"fields"`
}

var blockKinds = map[string]BlockKind{
	"paragraph":            Paragraph,
	"heading-1":            Heading1,
	"heading-2":            Heading2,
	"heading-3":            Heading3,
	"heading-4":            Heading4,
	"heading-5":            Heading5,
	"heading-6":            Heading6,
	"unordered-list":       UnorderedList,
	"ordered-list":         OrderedList,
	"list-item":            ListItem,
	"blockquote":           Quote,
	"hr":                   HorizontalRule,
	"embedded-asset-block": EmbeddedAsset,
	"embedded-entry-block": EmbeddedEntry,
}

var inlineKinds = map[string]InlineKind{
	"hyperlink":             Hyperlink,
	"asset-hyperlink":       AssetHyperlink,
	"entry-hyperlink":       EntryHyperlink,
	"embedded-entry-inline": InlineUnknown,
}

var markKinds = map[string]Mark{
	"bold":      Bold,
	"italic":    Italic,
	"code":      Code,
	"underline": Underline,
}

type decoder struct {
	locale string
	assets AssetIndex
}

// DecodeOption configures Decode.
type DecodeOption func(*decoder)

// WithAssets resolves asset links against idx.
func WithAssets(idx AssetIndex) DecodeOption {
	return func(d *decoder) { d.assets = idx }
}

// WithLocale sets the locale used for localized target fields.
func WithLocale(locale string) DecodeOption {
	return func(d *decoder) { d.locale = locale }
}

// Decode parses a CMS rich-text JSON document. Only malformed JSON is an
// error; unknown node types are kept as unknown kinds. Empty input yields an
// empty document.
func Decode(data []byte, opts ...DecodeOption) (Document, error) {
	d := &decoder{locale: DefaultLocale}
	for _, opt := range opts {
		opt(d)
	}
	if len(data) == 0 || string(data) == "null" {
		return Document{}, nil
	}
	var root rawNode
	if err := json.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("richtext: decode: %w", err)
	}
	return Document{Children: d.nodes(root.Content)}, nil
}

func (d *decoder) nodes(raw []rawNode) []Node {
	out := make([]Node, 0, len(raw))
	for _, r := range raw {
		out = append(out, d.node(r))
	}
	return out
}

func (d *decoder) node(r rawNode) Node {
	if r.NodeType == "text" {
		var ms MarkSet
		for _, m := range r.Marks {
			ms |= MarkSet(markKinds[m.Type])
		}
		return Text{Value: r.Value, Marks: ms}
	}
	if kind, ok := inlineKinds[r.NodeType]; ok {
		in := Inline{Kind: kind, URI: r.Data.URI, Children: d.nodes(r.Content)}
		switch kind {
		case AssetHyperlink:
			in.Asset = d.asset(r.Data.Target)
		case EntryHyperlink:
			in.Entry = d.entry(r.Data.Target)
		}
		return in
	}
	kind := blockKinds[r.NodeType]
	b := Block{Kind: kind, Children: d.nodes(r.Content)}
	switch kind {
	case EmbeddedAsset:
		b.Asset = d.asset(r.Data.Target)
	case EmbeddedEntry:
		b.Entry = d.entry(r.Data.Target)
	}
	return b
}

func (d *decoder) entry(raw json.RawMessage) *EntryRef {
	var t rawTarget
	if len(raw) == 0 || json.Unmarshal(raw, &t) != nil {
		return nil
	}
	return &EntryRef{ID: t.Sys.ID}
}

// asset resolves a link target. Inline fields win over the index, matching
// documents where the CMS already embedded the asset.
func (d *decoder) asset(raw json.RawMessage) *AssetRef {
	var t rawTarget
	if len(raw) == 0 || json.Unmarshal(raw, &t) != nil {
		return nil
	}
	ref := AssetRef{ID: t.Sys.ID}
	if f, ok := t.Fields["file"]; ok {
		ref.URL = d.fileURL(f)
	}
	if f, ok := t.Fields["description"]; ok {
		ref.Description = d.localizedString(f)
	}
	if ref.URL == "" && d.assets != nil {
		if known, ok := d.assets[t.Sys.ID]; ok {
			ref.URL = known.URL
			if ref.Description == "" {
				ref.Description = known.Description
			}
		}
	}
	return &ref
}

func (d *decoder) fileURL(raw json.RawMessage) string {
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return ""
	}
	if u, ok := m["url"]; ok {
		var s string
		_ = json.Unmarshal(u, &s)
		return s
	}
	if loc, ok := m[d.locale]; ok {
		return d.fileURL(loc)
	}
	return ""
}

func (d *decoder) localizedString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var m map[string]string
	if json.Unmarshal(raw, &m) == nil {
		return m[d.locale]
	}
	return ""
}
