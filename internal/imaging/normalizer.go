package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"

	apperrors "go-imaging-report/internal/errors"
	"go-imaging-report/internal/logger"
)

// SourceKind identifies how an uploaded payload was decoded.
type SourceKind string

const (
	SourceDICOM  SourceKind = "DICOM"
	SourceRaster SourceKind = "Standard"
)

// NormalizedImage is the canonical in-memory form every downstream
// stage consumes: 3-channel, shorter side at least the configured
// minimum resolution. DataURL is a derived JPEG view for transmission
// to the narrative model, not separate state.
type NormalizedImage struct {
	Image    *image.RGBA
	DataURL  string
	Source   SourceKind
	Modality string // DICOM Modality code, empty for raster uploads
}

// Normalizer decodes uploaded bytes (DICOM or standard raster) into a
// NormalizedImage. It is a pure function over its inputs.
type Normalizer struct {
	minResolution int
}

func NewNormalizer(minResolution int) *Normalizer {
	if minResolution <= 0 {
		minResolution = 512
	}
	return &Normalizer{minResolution: minResolution}
}

// Normalize decodes raw bytes using the filename as a format hint.
// DICOM payloads must carry Modality, BodyPartExamined and PatientID
// tags; raster payloads must decode as a recognized image format.
func (n *Normalizer) Normalize(raw []byte, filename string) (*NormalizedImage, error) {
	var (
		img      image.Image
		source   SourceKind
		modality string
	)

	if isDICOM(raw, filename) {
		study, err := decodeDICOM(raw)
		if err != nil {
			return nil, apperrors.NewUnreadableImageError("failed to parse DICOM payload", err)
		}
		if missing := study.missingTags(); len(missing) > 0 {
			logger.WithStage("normalizer").WithField("missing_tags", missing).
				Error("DICOM payload rejected")
			return nil, apperrors.NewMetadataError(missing)
		}
		img = study.grayImage()
		source = SourceDICOM
		modality = study.Modality
	} else {
		decoded, format, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, apperrors.NewUnreadableImageError("unrecognized image format", err)
		}
		logger.WithStage("normalizer").WithFields(map[string]interface{}{
			"format": format,
			"width":  decoded.Bounds().Dx(),
			"height": decoded.Bounds().Dy(),
		}).Debug("decoded raster upload")
		img = decoded
		source = SourceRaster
	}

	img = n.upscaleIfNeeded(img)
	rgba := toRGBA(img)

	dataURL, err := encodeDataURL(rgba)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode normalized image", err)
	}

	return &NormalizedImage{
		Image:    rgba,
		DataURL:  dataURL,
		Source:   source,
		Modality: modality,
	}, nil
}

// upscaleIfNeeded resizes isotropically so the shorter side equals the
// minimum resolution, rounding the longer side.
func (n *Normalizer) upscaleIfNeeded(img image.Image) image.Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return img
	}
	min := w
	if h < min {
		min = h
	}
	if min >= n.minResolution {
		return img
	}

	var newW, newH int
	if w < h {
		newW = n.minResolution
		newH = int(float64(h) * float64(n.minResolution) / float64(w))
	} else {
		newH = n.minResolution
		newW = int(float64(w) * float64(n.minResolution) / float64(h))
	}
	return resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
}

func isDICOM(raw []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".dcm") {
		return true
	}
	// 128-byte preamble followed by the DICM magic
	return len(raw) > 132 && string(raw[128:132]) == "DICM"
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("jpeg encode: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
