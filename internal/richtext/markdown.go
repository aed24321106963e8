package richtext

import "strings"

// ToMarkdown renders doc as Markdown. It never fails: unknown kinds degrade
// to their children and unresolved asset or entry references render as
// empty strings or bare text.
//
// List items are emitted as "- {children}" with no separator between
// siblings, so a three item list renders as "- a- b- c\n". Consumers of the
// stored output already depend on this shape.
func ToMarkdown(doc Document) string {
	var b strings.Builder
	for _, n := range doc.Children {
		writeNode(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func writeNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case Text:
		b.WriteString(renderText(n))
	case *Text:
		if n != nil {
			b.WriteString(renderText(*n))
		}
	case Block:
		writeBlock(b, n)
	case *Block:
		if n != nil {
			writeBlock(b, *n)
		}
	case Inline:
		writeInline(b, n)
	case *Inline:
		if n != nil {
			writeInline(b, *n)
		}
	}
}

func renderText(t Text) string {
	s := t.Value
	for _, m := range markOrder {
		if !t.Marks.Has(m) {
			continue
		}
		switch m {
		case Bold:
			s = "**" + s + "**"
		case Italic:
			s = "*" + s + "*"
		case Code:
			s = "`" + s + "`"
		case Underline:
			s = "<u>" + s + "</u>"
		}
	}
	return s
}

func children(ns []Node) string {
	var b strings.Builder
	for _, n := range ns {
		writeNode(&b, n)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, n Block) {
	inner := children(n.Children)
	switch n.Kind {
	case Paragraph:
		b.WriteString(inner + "\n\n")
	case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
		b.WriteString(strings.Repeat("#", n.Kind.HeadingLevel()) + " " + inner + "\n\n")
	case UnorderedList, OrderedList:
		b.WriteString(inner + "\n")
	case ListItem:
		b.WriteString("- " + inner)
	case Quote:
		b.WriteString("> " + inner + "\n\n")
	case HorizontalRule:
		b.WriteString("---\n\n")
	case EmbeddedAsset:
		if n.Asset == nil || n.Asset.URL == "" {
			return
		}
		b.WriteString("![" + n.Asset.Description + "](" + ResolveURL(n.Asset.URL) + ")\n\n")
	case EmbeddedEntry:
	default:
		b.WriteString(inner)
	}
}

func writeInline(b *strings.Builder, n Inline) {
	inner := children(n.Children)
	switch n.Kind {
	case Hyperlink:
		b.WriteString("[" + inner + "](" + n.URI + ")")
	case AssetHyperlink:
		if n.Asset == nil || n.Asset.URL == "" {
			b.WriteString(inner)
			return
		}
		b.WriteString("[" + inner + "](" + ResolveURL(n.Asset.URL) + ")")
	default:
		b.WriteString(inner)
	}
}

// ResolveURL turns a protocol-relative CMS URL into an https URL.
func ResolveURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
