package assets

import (
	"encoding/base64"
	"fmt"
	"html"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="450" viewBox="0 0 800 450">` +
	`<rect width="800" height="450" fill="#f0f0f0"/>` +
	`<text x="400" y="210" font-family="sans-serif" font-size="32" text-anchor="middle" fill="#666">Processing Image</text>` +
	`<text x="400" y="260" font-family="monospace" font-size="20" text-anchor="middle" fill="#999">ID: %s</text>` +
	`</svg>`

// PlaceholderWidth and PlaceholderHeight are the size of Placeholder images.
const (
	PlaceholderWidth  = 800
	PlaceholderHeight = 450
)

// Placeholder returns an inline SVG data URL naming the first eight
// characters of assetID.
func Placeholder(assetID string) string {
	short := assetID
	if len(short) > 8 {
		short = short[:8]
	}
	svg := fmt.Sprintf(placeholderSVG, html.EscapeString(short))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
