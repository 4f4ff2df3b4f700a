package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// mirrorHorizontal flips the frame so embedded text reads correctly after a
// self-facing capture.
func mirrorHorizontal(src image.Image) image.Image {
	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(bounds.Dx()-1-x, y, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

// clampToFit scales the frame down so its longest side does not exceed max.
// Nearest neighbor is good enough for a preview-quality payload bound.
func clampToFit(src image.Image, max int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if max <= 0 || (w <= max && h <= max) {
		return src
	}
	scale := float64(max) / float64(w)
	if h > w {
		scale = float64(max) / float64(h)
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			out.Set(x, y, src.At(sx, sy))
		}
	}
	return out
}

// encodeDataURI renders the frame as a base64 JPEG data URI.
func encodeDataURI(src image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI returns the raw bytes and mime type behind an image data URI.
// Bare base64 payloads are accepted and assumed to be JPEG.
func DecodeDataURI(src string) ([]byte, string, error) {
	trimmed := strings.TrimSpace(src)
	mimeType := "image/jpeg"
	payload := trimmed
	if strings.HasPrefix(trimmed, "data:") {
		idx := strings.Index(trimmed, ",")
		if idx < 0 {
			return nil, "", fmt.Errorf("malformed data uri")
		}
		meta := strings.TrimPrefix(trimmed[:idx], "data:")
		if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
			mimeType = mt
		}
		payload = trimmed[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image payload: %w", err)
	}
	return data, mimeType, nil
}
