package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-imaging-report/internal/imaging"
	"go-imaging-report/internal/logger"
	"go-imaging-report/internal/narrative"
	"go-imaging-report/internal/report"
	"go-imaging-report/internal/repository"
	"go-imaging-report/internal/search"
	"go-imaging-report/internal/storage"
)

// ReportService drives the full pipeline for one upload: normalize,
// search for the best diagnosis, generate and enrich the narrative,
// persist the result.
type ReportService interface {
	AnalyzeImage(ctx context.Context, raw []byte, filename string, patient report.PatientContext) (*report.AnalysisResponse, error)
	GetReport(ctx context.Context, filename string) (*report.Document, error)
	ListReports(ctx context.Context) ([]*report.Document, error)
}

type reportService struct {
	normalizer *imaging.Normalizer
	searcher   *search.Searcher
	generator  narrative.Generator
	assembler  *report.Assembler
	reports    repository.ReportRepository
	archiver   storage.ImageArchiver
}

func NewReportService(
	normalizer *imaging.Normalizer,
	searcher *search.Searcher,
	generator narrative.Generator,
	assembler *report.Assembler,
	reports repository.ReportRepository,
	archiver storage.ImageArchiver,
) ReportService {
	return &reportService{
		normalizer: normalizer,
		searcher:   searcher,
		generator:  generator,
		assembler:  assembler,
		reports:    reports,
		archiver:   archiver,
	}
}

func (s *reportService) AnalyzeImage(ctx context.Context, raw []byte, filename string, patient report.PatientContext) (*report.AnalysisResponse, error) {
	start := time.Now()

	normalized, err := s.normalizer.Normalize(raw, filename)
	if err != nil {
		return nil, err
	}

	result, err := s.searcher.Search(ctx, normalized.Image)
	if err != nil {
		return nil, err
	}

	contextPrompt := s.assembler.PreliminaryContext(result.Score)
	if p := patient.Prompt(); p != "" {
		contextPrompt = p + " " + contextPrompt
	}

	analysis, err := s.generator.Generate(ctx, normalized.DataURL, contextPrompt)
	if err != nil {
		return nil, err
	}

	text := s.assembler.Assemble(ctx, analysis, normalized)

	doc := &report.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		Report:     text,
		Modality:   report.ResolveModality(normalized, text),
		Class:      result.Score.Class,
		Confidence: result.Score.Confidence,
		Variance:   result.Score.Variance,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.reports.StoreReport(ctx, doc); err != nil {
		return nil, err
	}

	// Archive failures degrade to a warning: the report is already
	// persisted and the image is reproducible from the upload.
	if err := s.archiver.ArchiveImage(ctx, doc.ID, normalized.Image); err != nil {
		logger.WithStage("service").WithError(err).WithField("report_id", doc.ID).
			Warn("failed to archive normalized image")
	}

	bounds := normalized.Image.Bounds()
	logger.WithStage("service").WithFields(map[string]interface{}{
		"filename":           filename,
		"report_id":          doc.ID,
		"class":              doc.Class,
		"confidence":         doc.Confidence,
		"variance":           doc.Variance,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}).Info("analysis completed")

	return &report.AnalysisResponse{
		ReportID: doc.ID,
		Filename: filename,
		ImageMetadata: report.ImageMetadata{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Mode:   "RGB",
			Format: string(normalized.Source),
		},
		Analysis:   text,
		Class:      doc.Class,
		Confidence: doc.Confidence,
		Variance:   doc.Variance,
	}, nil
}

func (s *reportService) GetReport(ctx context.Context, filename string) (*report.Document, error) {
	doc, err := s.reports.GetReport(ctx, filename)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *reportService) ListReports(ctx context.Context) ([]*report.Document, error) {
	docs, err := s.reports.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*report.Document{}
	}
	return docs, nil
}
