package ensemble

import (
	"image"

	"github.com/nfnt/resize"
)

// InputSize is the spatial resolution each classifier expects.
const InputSize = 224

// ImageNet channel statistics applied after scaling pixels to [0,1].
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// preprocess resizes to InputSize and converts to a normalized CHW
// float32 tensor.
func preprocess(img image.Image) []float32 {
	resized := resize.Resize(InputSize, InputSize, img, resize.Lanczos3)

	bounds := resized.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]float32, 3*w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*w + x
			data[i] = (float32(r)/65535.0 - channelMean[0]) / channelStd[0]
			data[w*h+i] = (float32(g)/65535.0 - channelMean[1]) / channelStd[1]
			data[2*w*h+i] = (float32(b)/65535.0 - channelMean[2]) / channelStd[2]
		}
	}
	return data
}
