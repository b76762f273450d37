package services

import (
	"bytes"
	"image"
	_ "image/png"
	"testing"
	"unicode/utf8"

	"github.com/stitchfolk/patternhub-backend/internal/platform/apierr"
)

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode rendered image: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRenderPreviewBoundsLongEdge(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))

	out, err := svc.RenderPreview(makeTestPNG(t, 1024, 512))
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	w, h := decodeSize(t, out)
	if w != 512 || h != 256 {
		t.Fatalf("bounds: want 512x256 got %dx%d", w, h)
	}
}

func TestRenderPreviewKeepsSmallImages(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))

	out, err := svc.RenderPreview(makeTestPNG(t, 60, 40))
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	w, h := decodeSize(t, out)
	if w != 60 || h != 40 {
		t.Fatalf("bounds: want 60x40 got %dx%d", w, h)
	}
}

func TestRenderPreviewRejectsCorruptImage(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))

	if _, err := svc.RenderPreview([]byte("garbage")); err == nil {
		t.Fatalf("RenderPreview: expected error for corrupt input")
	}
}

func TestTransformRotateSwapsDimensions(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))
	src := makeTestPNG(t, 40, 20)

	for _, op := range []TransformOp{TransformRotateCW, TransformRotateCCW} {
		out, err := svc.Transform(src, op)
		if err != nil {
			t.Fatalf("Transform %s: %v", op, err)
		}
		w, h := decodeSize(t, out)
		if w != 20 || h != 40 {
			t.Fatalf("Transform %s: want 20x40 got %dx%d", op, w, h)
		}
	}
}

func TestTransformKeepsDimensionsForFlips(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))
	src := makeTestPNG(t, 40, 20)

	for _, op := range []TransformOp{TransformRotate180, TransformFlipH, TransformFlipV} {
		out, err := svc.Transform(src, op)
		if err != nil {
			t.Fatalf("Transform %s: %v", op, err)
		}
		w, h := decodeSize(t, out)
		if w != 40 || h != 20 {
			t.Fatalf("Transform %s: want 40x20 got %dx%d", op, w, h)
		}
	}
}

func TestParseTransformOp(t *testing.T) {
	op, err := ParseTransformOp(" Rotate_CW ")
	if err != nil || op != TransformRotateCW {
		t.Fatalf("ParseTransformOp: op=%q err=%v", op, err)
	}
	if _, err := ParseTransformOp("spin"); !apierr.IsValidation(err) {
		t.Fatalf("ParseTransformOp: expected validation error, got %v", err)
	}
}

func TestValidateAndRenderRules(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))
	valid := makeTestPNG(t, 16, 16)

	if _, err := svc.ValidateAndRender(valid, "image/tiff"); !apierr.IsValidation(err) {
		t.Fatalf("bad mime: expected validation error, got %v", err)
	}
	if _, err := svc.ValidateAndRender([]byte("junk"), "image/png"); !apierr.IsValidation(err) {
		t.Fatalf("corrupt image: expected validation error, got %v", err)
	}
	oversize := make([]byte, thumbnailMaxBytes+1)
	if _, err := svc.ValidateAndRender(oversize, "image/png"); !apierr.IsValidation(err) {
		t.Fatalf("oversize: expected validation error, got %v", err)
	}
	if _, err := svc.ValidateAndRender(valid, "image/png"); err != nil {
		t.Fatalf("valid upload: %v", err)
	}
}

func TestMonogramHandlesMultibyteNames(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"rose garden", "RG"},
		{"rose.oxs", "RO"},
		{"Éloise", "É"},
		{"Éloise Dubois", "ÉD"},
		{"桜の図案", "桜"},
		{"", "?"},
		{"   ", "?"},
	}
	for _, tc := range cases {
		got := monogram(tc.name)
		if got != tc.want {
			t.Fatalf("monogram(%q): want=%q got=%q", tc.name, tc.want, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("monogram(%q) produced invalid UTF-8: %q", tc.name, got)
		}
	}
}

func TestRenderPlaceholderProducesPNG(t *testing.T) {
	svc := NewThumbnailService(testLogger(t))

	out, err := svc.RenderPlaceholder("rose.oxs")
	if err != nil {
		t.Fatalf("RenderPlaceholder: %v", err)
	}
	w, h := decodeSize(t, out)
	if w != placeholderCardSize || h != placeholderCardSize {
		t.Fatalf("placeholder: want %dx%d got %dx%d", placeholderCardSize, placeholderCardSize, w, h)
	}
}
