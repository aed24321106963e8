package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults for Optimizer.
const (
	DefaultLargeFileThreshold = 1 << 20
	DefaultMaxDimension       = 2000
	jpegQuality               = 85
)

// Image is the result of optimization.
type Image struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
	Resized     bool
}

// Optimizer shrinks large images while keeping their format.
type Optimizer struct {
	Threshold    int
	MaxDimension int
}

// Optimize returns data unchanged when it is at or below the threshold.
// Larger images are scaled so neither side exceeds MaxDimension, never
// upscaled. Any decode or encode failure falls back to the original bytes.
// Width and height always describe the returned bytes; they are zero for
// formats that cannot be decoded (such as SVG).
func (o Optimizer) Optimize(data []byte, contentType string) Image {
	threshold := o.Threshold
	if threshold <= 0 {
		threshold = DefaultLargeFileThreshold
	}
	maxDim := o.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if contentType == "" {
		contentType = sniff(data)
	}

	orig := Image{Data: data, ContentType: contentType}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		orig.Width, orig.Height = cfg.Width, cfg.Height
	}
	if len(data) <= threshold {
		return orig
	}

	resized, err := resize(data, maxDim)
	if err != nil || resized == nil {
		return orig
	}
	return *resized
}

// resize returns nil with no error when the image already fits.
func resize(data []byte, maxDim int) (*Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)
	if w == b.Dx() && h == b.Dy() {
		return nil, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		return nil, fmt.Errorf("no encoder for %s", format)
	}
	if err != nil {
		return nil, err
	}
	return &Image{Data: buf.Bytes(), Width: w, Height: h, ContentType: "image/" + format, Resized: true}, nil
}

// fitWithin scales (w, h) down so both sides are at most limit, keeping the
// aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, (h*limit+w/2)/w)
	}
	return max(1, (w*limit+h/2)/h), limit
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "text/") && bytes.Contains(data[:min(len(data), 1024)], []byte("<svg")) {
		return "image/svg+xml"
	}
	return strings.Split(ct, ";")[0]
}
