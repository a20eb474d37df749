// Package imagex handles image data URLs: parsing, building and the
// downscale-and-recompress step applied to photos before they are queued.
package imagex

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// Defaults applied to captured photos.
const (
	DefaultMaxWidth = 1200
	DefaultQuality  = 0.8
)

// MaxPixels bounds the decoded size of an input image. The header is checked
// before any pixel data is decoded.
const MaxPixels = 50_000_000

var (
	ErrNotDataURL = errors.New("not a base64 image data URL")
	ErrTooLarge   = errors.New("image too large")
)

// ParseDataURL splits "data:<mime>;base64,<payload>".
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !strings.HasPrefix(mime, "image/") {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrNotDataURL, err)
	}
	return mime, data, nil
}

func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FromBytes builds a data URL from raw file contents, sniffing the type.
func FromBytes(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("unsupported content type %s", mime)
	}
	return DataURL(mime, data), nil
}

// Compress scales the image down to maxWidth (keeping the aspect ratio) and
// re-encodes it as JPEG with quality in (0, 1]. WebP input is returned as is
// since it is already compact and cannot be decoded here.
func Compress(dataURL string, maxWidth int, quality float64) (string, error) {
	mime, data, err := ParseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if mime == "image/webp" {
		return dataURL, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	q := int(quality * 100)
	if q < 1 || q > 100 {
		q = int(DefaultQuality * 100)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return DataURL("image/jpeg", buf.Bytes()), nil
}
