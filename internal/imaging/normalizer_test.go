package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	apperrors "go-imaging-report/internal/errors"
)

// createTestImage creates a solid-color test image
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_SmallRasterUpscaled(t *testing.T) {
	n := NewNormalizer(512)
	raw := encodePNG(t, createTestImage(256, 256, color.RGBA{200, 30, 30, 255}))

	result, err := n.Normalize(raw, "scan.png")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	bounds := result.Image.Bounds()
	if bounds.Dx() != 512 || bounds.Dy() != 512 {
		t.Errorf("Expected 512x512, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if result.Source != SourceRaster {
		t.Errorf("Expected raster source, got %s", result.Source)
	}
}

func TestNormalize_AspectRatioPreserved(t *testing.T) {
	n := NewNormalizer(512)
	raw := encodePNG(t, createTestImage(300, 600, color.RGBA{80, 80, 80, 255}))

	result, err := n.Normalize(raw, "scan.png")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	bounds := result.Image.Bounds()
	if bounds.Dx() != 512 {
		t.Errorf("Expected shorter side 512, got %d", bounds.Dx())
	}
	if bounds.Dy() != 1024 {
		t.Errorf("Expected longer side 1024, got %d", bounds.Dy())
	}
}

func TestNormalize_LargeRasterUnchanged(t *testing.T) {
	n := NewNormalizer(512)
	raw := encodePNG(t, createTestImage(800, 600, color.RGBA{10, 10, 10, 255}))

	result, err := n.Normalize(raw, "scan.png")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	bounds := result.Image.Bounds()
	if bounds.Dx() != 800 || bounds.Dy() != 600 {
		t.Errorf("Expected 800x600 unchanged, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestNormalize_DataURL(t *testing.T) {
	n := NewNormalizer(512)
	raw := encodePNG(t, createTestImage(512, 512, color.RGBA{128, 128, 128, 255}))

	result, err := n.Normalize(raw, "scan.png")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !strings.HasPrefix(result.DataURL, "data:image/jpeg;base64,") {
		t.Errorf("Expected JPEG data URL, got prefix %q", result.DataURL[:32])
	}
}

func TestNormalize_UnreadableBytes(t *testing.T) {
	n := NewNormalizer(512)

	_, err := n.Normalize([]byte("definitely not an image"), "scan.png")
	if err == nil {
		t.Fatal("Expected error for unreadable bytes")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeUnreadableImage) {
		t.Errorf("Expected unreadable_image error, got %v", err)
	}
}

func TestNormalize_DICOMMissingTagsRejectedBeforeDecode(t *testing.T) {
	n := NewNormalizer(512)

	// A DICM preamble with no parsable dataset: the DICOM branch must
	// be taken (not the raster fallback).
	raw := make([]byte, 200)
	copy(raw[128:], "DICM")
	_, err := n.Normalize(raw, "study.dcm")
	if err == nil {
		t.Fatal("Expected error for truncated DICOM")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T", err)
	}
}

func TestIsDICOM(t *testing.T) {
	if !isDICOM(nil, "study.DCM") {
		t.Error("Expected .dcm suffix to be detected")
	}
	raw := make([]byte, 200)
	copy(raw[128:], "DICM")
	if !isDICOM(raw, "upload.bin") {
		t.Error("Expected DICM magic to be detected")
	}
	if isDICOM([]byte("plain"), "scan.png") {
		t.Error("Expected raster payload to not be DICOM")
	}
}
