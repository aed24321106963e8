package editor

import (
	"bytes"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// dropped elements never carry post content; editors leave toolbars and
// scripts in their serialized output.
var droppedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"button": true, "input": true, "form": true, "iframe": true,
}

// HTMLConverter turns WYSIWYG editor HTML into markdown.
type HTMLConverter struct {
	converter *md.Converter
}

// NewHTMLConverter creates a converter with GitHub-flavored output.
func NewHTMLConverter() *HTMLConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &HTMLConverter{converter: converter}
}

// Convert strips non-content elements and converts the rest to markdown.
func (c *HTMLConverter) Convert(src string) (string, error) {
	cleaned, err := stripElements(src)
	if err != nil {
		return "", err
	}
	out, err := c.converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

func stripElements(src string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(src), &html.Node{
		Type: html.ElementNode, Data: "body", DataAtom: atom.Body,
	})
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		prune(n)
		if n.Type == html.ElementNode && droppedElements[n.Data] {
			continue
		}
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && droppedElements[c.Data] {
			n.RemoveChild(c)
		} else {
			prune(c)
		}
		c = next
	}
}
