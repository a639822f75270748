package imaging

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// Variant generation constants. The ROI extraction is a centered crop
// standing in for a real segmentation step.
const (
	roiFraction  = 0.9
	zoomFraction = 0.8
	blurRadius   = 1
)

// Variants produces the fixed ordered candidate set for the diagnosis
// search: the original, the ROI crop, the ROI softened by a small
// Gaussian blur, a tighter crop of the ROI resized back to ROI
// dimensions, and the ROI passed through a half-scale round trip.
// The same input always yields the same sequence.
func Variants(img image.Image) []image.Image {
	roi := centerCrop(img, roiFraction)
	return []image.Image{
		img,
		roi,
		gaussianBlur(roi),
		zoomVariant(roi),
		multiScaleVariant(roi),
	}
}

// centerCrop keeps the given fraction of width and height around the center.
func centerCrop(img image.Image, fraction float64) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cw := int(float64(w) * fraction)
	ch := int(float64(h) * fraction)
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	x0 := bounds.Min.X + (w-cw)/2
	y0 := bounds.Min.Y + (h-ch)/2

	out := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(out, out.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return out
}

// zoomVariant crops tighter and resizes back, simulating zoom or
// registration variation.
func zoomVariant(img *image.RGBA) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tight := centerCrop(img, zoomFraction)
	return resize.Resize(uint(w), uint(h), tight, resize.Lanczos3)
}

// multiScaleVariant downsamples by half then upsamples back,
// simulating resolution loss.
func multiScaleVariant(img *image.RGBA) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	halfW, halfH := w/2, h/2
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}
	half := resize.Resize(uint(halfW), uint(halfH), img, resize.Lanczos3)
	return resize.Resize(uint(w), uint(h), half, resize.Lanczos3)
}

// gaussianBlur applies a radius-1 Gaussian (3x3 binomial kernel),
// clamping at the edges.
func gaussianBlur(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	kernel := [3][3]int{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sumR, sumG, sumB, sumA int
			for ky := -blurRadius; ky <= blurRadius; ky++ {
				for kx := -blurRadius; kx <= blurRadius; kx++ {
					sx := clamp(x+kx, 0, w-1)
					sy := clamp(y+ky, 0, h-1)
					i := img.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)
					k := kernel[ky+blurRadius][kx+blurRadius]
					sumR += int(img.Pix[i]) * k
					sumG += int(img.Pix[i+1]) * k
					sumB += int(img.Pix[i+2]) * k
					sumA += int(img.Pix[i+3]) * k
				}
			}
			o := out.PixOffset(x, y)
			out.Pix[o] = uint8(sumR / 16)
			out.Pix[o+1] = uint8(sumG / 16)
			out.Pix[o+2] = uint8(sumB / 16)
			out.Pix[o+3] = uint8(sumA / 16)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
