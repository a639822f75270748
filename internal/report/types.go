package report

import "time"

// Document is the persisted form of one diagnostic report.
type Document struct {
	ID         string    `bson:"report_id" json:"report_id"`
	Filename   string    `bson:"filename" json:"filename"`
	Report     string    `bson:"report" json:"report"`
	Modality   string    `bson:"modality" json:"modality"`
	Class      int       `bson:"class" json:"class"`
	Confidence float64   `bson:"confidence" json:"confidence"`
	Variance   float64   `bson:"variance" json:"variance"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// ImageMetadata summarizes the normalized image for the API response.
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mode   string `json:"mode"`
	Format string `json:"format"`
}

// AnalysisResponse is the payload returned by POST /analyze-image.
type AnalysisResponse struct {
	ReportID      string        `json:"report_id"`
	Filename      string        `json:"filename"`
	ImageMetadata ImageMetadata `json:"image_metadata"`
	Analysis      string        `json:"analysis"`
	Class         int           `json:"class"`
	Confidence    float64       `json:"confidence"`
	Variance      float64       `json:"variance"`
}
