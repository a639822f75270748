package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

// createGradientImage creates a gradient test image
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			intensity := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{intensity, intensity, intensity, 255})
		}
	}
	return img
}

func TestVariants_Count(t *testing.T) {
	img := createGradientImage(100, 100)
	variants := Variants(img)
	if len(variants) != 5 {
		t.Errorf("Expected 5 variants, got %d", len(variants))
	}
}

func TestVariants_OriginalFirst(t *testing.T) {
	img := createGradientImage(100, 100)
	variants := Variants(img)
	if variants[0] != image.Image(img) {
		t.Error("Expected the unmodified original as the first candidate")
	}
}

func TestVariants_ROIDimensions(t *testing.T) {
	img := createGradientImage(200, 100)
	variants := Variants(img)

	roi := variants[1].Bounds()
	if roi.Dx() != 180 || roi.Dy() != 90 {
		t.Errorf("Expected 180x90 ROI, got %dx%d", roi.Dx(), roi.Dy())
	}

	// Blur, zoom and multi-scale variants all keep ROI dimensions.
	for i := 2; i < 5; i++ {
		b := variants[i].Bounds()
		if b.Dx() != 180 || b.Dy() != 90 {
			t.Errorf("Variant %d: expected 180x90, got %dx%d", i, b.Dx(), b.Dy())
		}
	}
}

func TestVariants_Deterministic(t *testing.T) {
	img := createGradientImage(120, 80)

	first := Variants(img)
	second := Variants(img)

	if len(first) != len(second) {
		t.Fatalf("Variant counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !pixelsEqual(first[i], second[i]) {
			t.Errorf("Variant %d differs between runs", i)
		}
	}
}

func TestCenterCrop_MinimumSize(t *testing.T) {
	img := createGradientImage(1, 1)
	crop := centerCrop(img, 0.5)
	if crop.Bounds().Dx() != 1 || crop.Bounds().Dy() != 1 {
		t.Errorf("Expected 1x1 crop floor, got %v", crop.Bounds())
	}
}

func TestGaussianBlur_PreservesSolidColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 96
	}
	blurred := gaussianBlur(img)
	for i, p := range blurred.Pix {
		if p != 96 {
			t.Fatalf("Expected solid color unchanged by blur, pixel byte %d is %d", i, p)
		}
	}
}

func pixelsEqual(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	ra, aOK := a.(*image.RGBA)
	rb, bOK := b.(*image.RGBA)
	if aOK && bOK {
		return bytes.Equal(ra.Pix, rb.Pix)
	}
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				return false
			}
		}
	}
	return true
}
