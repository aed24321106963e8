// Package richtext models the CMS rich-text document tree and renders it as
// Markdown.
package richtext

// Node is one node of a rich-text document. The set of implementations is
// closed: Text, Block and Inline.
type Node interface {
	isNode()
}

// Mark is a text formatting mark.
type Mark uint8

const (
	Bold Mark = 1 << iota
	Italic
	Code
	Underline
)

// markOrder is the nesting order used when rendering: earlier marks wrap
// closer to the text.
var markOrder = []Mark{Bold, Italic, Code, Underline}

// MarkSet is an unordered set of marks.
type MarkSet uint8

// Marks builds a MarkSet from marks given in any order.
func Marks(ms ...Mark) MarkSet {
	var s MarkSet
	for _, m := range ms {
		s |= MarkSet(m)
	}
	return s
}

// Has reports whether m is in the set.
func (s MarkSet) Has(m Mark) bool { return s&MarkSet(m) != 0 }

// BlockKind enumerates block node kinds.
type BlockKind int

const (
	BlockUnknown BlockKind = iota
	Paragraph
	Heading1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
	UnorderedList
	OrderedList
	ListItem
	Quote
	HorizontalRule
	EmbeddedAsset
	EmbeddedEntry
)

// HeadingLevel returns 1..6 for heading kinds and 0 otherwise.
func (k BlockKind) HeadingLevel() int {
	if k >= Heading1 && k <= Heading6 {
		return int(k-Heading1) + 1
	}
	return 0
}

// InlineKind enumerates inline node kinds.
type InlineKind int

const (
	InlineUnknown InlineKind = iota
	Hyperlink
	AssetHyperlink
	EntryHyperlink
)

// AssetRef points at a CMS asset. URL and Description are empty when the
// link could not be resolved.
type AssetRef struct {
	ID          string
	URL         string
	Description string
}

// EntryRef points at a CMS entry.
type EntryRef struct {
	ID string
}

// Text is a leaf carrying a string value and its marks.
type Text struct {
	Value string
	Marks MarkSet
}

// Block is a block-level container.
type Block struct {
	Kind     BlockKind
	Asset    *AssetRef
	Entry    *EntryRef
	Children []Node
}

// Inline is an inline container with a link target.
type Inline struct {
	Kind     InlineKind
	URI      string
	Asset    *AssetRef
	Entry    *EntryRef
	Children []Node
}

func (Text) isNode()   {}
func (Block) isNode()  {}
func (Inline) isNode() {}

// Document is the root of a rich-text tree.
type Document struct {
	Children []Node
}
