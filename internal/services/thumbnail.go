package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/webp"

	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
	"github.com/stitchfolk/patternhub-backend/internal/platform/logger"
)

const (
	thumbnailMaxDim     = 512
	thumbnailMaxBytes   = 5 << 20
	placeholderFontSize = 96
	placeholderCardSize = 512
)

// TransformOp is a named in-place thumbnail transform.
type TransformOp string

const (
	TransformRotateCW  TransformOp = "rotate_cw"
	TransformRotateCCW TransformOp = "rotate_ccw"
	TransformRotate180 TransformOp = "rotate_180"
	TransformFlipH     TransformOp = "flip_h"
	TransformFlipV     TransformOp = "flip_v"
)

func ParseTransformOp(raw string) (TransformOp, error) {
	op := TransformOp(strings.ToLower(strings.TrimSpace(raw)))
	switch op {
	case TransformRotateCW, TransformRotateCCW, TransformRotate180, TransformFlipH, TransformFlipV:
		return op, nil
	default:
		return "", apierr.Validation("unknown_transform", fmt.Errorf("unknown thumbnail transform: %q", raw))
	}
}

var allowedThumbnailMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

type ThumbnailService interface {
	// RenderPreview decodes a companion preview image and re-encodes it as a
	// PNG thumbnail bounded to 512px on the long edge.
	RenderPreview(raw []byte) ([]byte, error)
	// ValidateAndRender enforces the direct-upload rules (MIME allow-list,
	// size ceiling, decodable image) before rendering.
	ValidateAndRender(raw []byte, mimeType string) ([]byte, error)
	// Transform applies a named transform to an existing thumbnail.
	Transform(raw []byte, op TransformOp) ([]byte, error)
	// RenderPlaceholder draws a monogram card for patterns that shipped
	// without a preview image.
	RenderPlaceholder(name string) ([]byte, error)
}

type thumbnailService struct {
	log      *logger.Logger
	fontFace font.Face
}

func NewThumbnailService(log *logger.Logger) ThumbnailService {
	serviceLog := log.With("service", "ThumbnailService")

	var face font.Face
	if fontPath := strings.TrimSpace(os.Getenv("PLACEHOLDER_FONT")); fontPath != "" {
		f, err := loadFontFace(fontPath, placeholderFontSize)
		if err != nil {
			serviceLog.Warn("could not load placeholder font; placeholders will omit the monogram", "font", fontPath, "error", err)
		} else {
			face = f
		}
	}

	return &thumbnailService{log: serviceLog, fontFace: face}
}

func loadFontFace(path string, points float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}

func (ts *thumbnailService) RenderPreview(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		// webp is not wired into image.Decode; try it explicitly.
		img, err = webp.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, apierr.Validation("corrupt_image", fmt.Errorf("preview image cannot be decoded: %w", err))
	}
	return encodePNG(boundImage(img))
}

func (ts *thumbnailService) ValidateAndRender(raw []byte, mimeType string) ([]byte, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !allowedThumbnailMIMEs[mimeType] {
		return nil, apierr.Validation("unsupported_mime_type",
			fmt.Errorf("mime type %q not allowed (png, jpeg, webp, gif)", mimeType))
	}
	if len(raw) > thumbnailMaxBytes {
		return nil, apierr.Validation("image_too_large",
			fmt.Errorf("image is %d bytes; limit is %d", len(raw), thumbnailMaxBytes))
	}

	var (
		img image.Image
		err error
	)
	switch mimeType {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(raw))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(raw))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(raw))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, apierr.Validation("corrupt_image", fmt.Errorf("image cannot be decoded as %s: %w", mimeType, err))
	}
	return encodePNG(boundImage(img))
}

func (ts *thumbnailService) Transform(raw []byte, op TransformOp) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apierr.Validation("corrupt_image", fmt.Errorf("stored thumbnail cannot be decoded: %w", err))
	}

	var out image.Image
	switch op {
	case TransformRotateCW:
		out = rotate90(img, true)
	case TransformRotateCCW:
		out = rotate90(img, false)
	case TransformRotate180:
		out = rotate180(img)
	case TransformFlipH:
		out = flip(img, true)
	case TransformFlipV:
		out = flip(img, false)
	default:
		return nil, apierr.Validation("unknown_transform", fmt.Errorf("unknown thumbnail transform: %q", op))
	}
	return encodePNG(out)
}

func (ts *thumbnailService) RenderPlaceholder(name string) ([]byte, error) {
	const size = placeholderCardSize
	dc := gg.NewContext(size, size)

	bg := placeholderColor(name)
	dc.SetColor(bg)
	dc.Clear()

	// Soft inner frame so placeholders read as cards, not broken images.
	dc.SetRGBA(1, 1, 1, 0.35)
	dc.SetLineWidth(6)
	dc.DrawRectangle(16, 16, size-32, size-32)
	dc.Stroke()

	if ts.fontFace != nil {
		dc.SetFontFace(ts.fontFace)
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(monogram(name), size/2, size/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func monogram(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	})
	var initials []rune
	for _, f := range fields {
		r, _ := utf8.DecodeRuneInString(f)
		if r == utf8.RuneError {
			continue
		}
		initials = append(initials, r)
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		r, _ := utf8.DecodeRuneInString(name)
		initials = []rune{r}
	}
	return strings.ToUpper(string(initials))
}

func placeholderColor(name string) color.NRGBA {
	palette := []color.NRGBA{
		{R: 0x5c, G: 0x6b, B: 0xc0, A: 0xff},
		{R: 0x26, G: 0xa6, B: 0x9a, A: 0xff},
		{R: 0xef, G: 0x6c, B: 0x00, A: 0xff},
		{R: 0x8e, G: 0x24, B: 0xaa, A: 0xff},
		{R: 0x43, G: 0xa0, B: 0x47, A: 0xff},
	}
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return palette[sum%len(palette)]
}

// boundImage scales img down so its long edge is at most thumbnailMaxDim.
// Smaller images pass through untouched.
func boundImage(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= thumbnailMaxDim && h <= thumbnailMaxDim {
		return img
	}
	scale := float64(thumbnailMaxDim) / float64(w)
	if h > w {
		scale = float64(thumbnailMaxDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func rotate90(img image.Image, clockwise bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if clockwise {
				dst.Set(h-1-y, x, c)
			} else {
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func flip(img image.Image, horizontal bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if horizontal {
				dst.Set(w-1-x, y, c)
			} else {
				dst.Set(x, h-1-y, c)
			}
		}
	}
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
