package imaging

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// requiredTags are the identifying tags every accepted DICOM payload
// must carry, in report order.
var requiredTags = []struct {
	Tag     tag.Tag
	Keyword string
}{
	{tag.Modality, "Modality"},
	{tag.BodyPartExamined, "BodyPartExamined"},
	{tag.PatientID, "PatientID"},
}

// dicomStudy is the decoded view of a DICOM payload: the identifying
// tags plus the first native pixel frame.
type dicomStudy struct {
	Modality  string
	BodyPart  string
	PatientID string

	rows, cols int
	pixels     []int
}

func decodeDICOM(raw []byte) (*dicomStudy, error) {
	ds, err := dicom.Parse(bytes.NewReader(raw), int64(len(raw)), nil)
	if err != nil {
		return nil, fmt.Errorf("dicom parse: %w", err)
	}

	study := &dicomStudy{}
	study.Modality, _ = stringTag(ds, tag.Modality)
	study.BodyPart, _ = stringTag(ds, tag.BodyPartExamined)
	study.PatientID, _ = stringTag(ds, tag.PatientID)

	pde, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("missing pixel data: %w", err)
	}
	info := dicom.MustGetPixelDataInfo(pde.Value)
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("pixel data carries no frames")
	}
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return nil, fmt.Errorf("encapsulated pixel data unsupported: %w", err)
	}

	study.rows = native.Rows
	study.cols = native.Cols
	study.pixels = make([]int, 0, len(native.Data))
	for _, sample := range native.Data {
		study.pixels = append(study.pixels, sample[0])
	}
	if len(study.pixels) != study.rows*study.cols {
		return nil, fmt.Errorf("pixel count %d does not match %dx%d frame",
			len(study.pixels), study.rows, study.cols)
	}
	return study, nil
}

func (s *dicomStudy) missingTags() []string {
	var missing []string
	for _, rt := range requiredTags {
		switch rt.Keyword {
		case "Modality":
			if s.Modality == "" {
				missing = append(missing, rt.Keyword)
			}
		case "BodyPartExamined":
			if s.BodyPart == "" {
				missing = append(missing, rt.Keyword)
			}
		case "PatientID":
			if s.PatientID == "" {
				missing = append(missing, rt.Keyword)
			}
		}
	}
	return missing
}

// grayImage linearly rescales the stored intensities to 0-255 using
// the observed min/max. A constant frame (zero dynamic range) maps to
// mid-gray rather than dividing by zero.
func (s *dicomStudy) grayImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.cols, s.rows))

	min, max := s.pixels[0], s.pixels[0]
	for _, p := range s.pixels {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}

	if max == min {
		for i := range img.Pix {
			img.Pix[i] = 128
		}
		return img
	}

	span := float64(max - min)
	for i, p := range s.pixels {
		img.Pix[i] = uint8(float64(p-min) / span * 255)
	}
	return img
}

func stringTag(ds dicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return "", false
	}
	values, ok := el.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return "", false
	}
	v := strings.TrimSpace(values[0])
	return v, v != ""
}
