package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"go-imaging-report/internal/ensemble"
	"go-imaging-report/internal/imaging"
	"go-imaging-report/internal/knowledge"
	"go-imaging-report/internal/report"
	"go-imaging-report/internal/search"
)

type stubScorer struct {
	score ensemble.Score
}

func (s *stubScorer) Score(ctx context.Context, img image.Image) (ensemble.Score, error) {
	return s.score, nil
}

type stubGenerator struct {
	analysis string
	err      error
	prompt   string
	dataURL  string
}

func (g *stubGenerator) Generate(ctx context.Context, dataURL, contextPrompt string) (string, error) {
	g.dataURL = dataURL
	g.prompt = contextPrompt
	if g.err != nil {
		return "", g.err
	}
	return g.analysis, nil
}

type stubRepo struct {
	stored []*report.Document
	docs   []*report.Document
	err    error
}

func (r *stubRepo) StoreReport(ctx context.Context, doc *report.Document) error {
	if r.err != nil {
		return r.err
	}
	r.stored = append(r.stored, doc)
	return nil
}

func (r *stubRepo) GetReport(ctx context.Context, filename string) (*report.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, doc := range r.docs {
		if doc.Filename == filename {
			return doc, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubRepo) ListReports(ctx context.Context) ([]*report.Document, error) {
	return r.docs, r.err
}

func (r *stubRepo) Close(ctx context.Context) error { return nil }

type stubArchiver struct {
	archived []string
	err      error
}

func (a *stubArchiver) ArchiveImage(ctx context.Context, reportID string, img image.Image) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, reportID)
	return nil
}

type stubFetcher struct{}

func (stubFetcher) FetchReferences(ctx context.Context, query string, maxResults int) ([]string, error) {
	return nil, nil
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestService(gen *stubGenerator, repo *stubRepo, arch *stubArchiver) ReportService {
	scorer := &stubScorer{score: ensemble.Score{Class: 7, Confidence: 0.81, Variance: 0.02}}
	searcher := search.NewWithVariants(scorer, func(image.Image) []image.Image { return nil },
		search.Options{Iterations: 0, VariancePenalty: 0.5})
	assembler := report.NewAssembler(knowledge.Load(), stubFetcher{}, 0.1)
	return NewReportService(imaging.NewNormalizer(512), searcher, gen, assembler, repo, arch)
}

func TestAnalyzeImage(t *testing.T) {
	gen := &stubGenerator{analysis: "Chest radiograph shows pneumonia."}
	repo := &stubRepo{}
	arch := &stubArchiver{}
	svc := newTestService(gen, repo, arch)

	age := 63
	resp, err := svc.AnalyzeImage(context.Background(), encodeTestPNG(t, 600, 600), "chest.png",
		report.PatientContext{Age: &age, Sex: "M"})
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}

	if resp.ReportID == "" {
		t.Error("Expected a report id")
	}
	if resp.Class != 7 || resp.Confidence != 0.81 || resp.Variance != 0.02 {
		t.Errorf("Unexpected score fields: %+v", resp)
	}
	if resp.ImageMetadata.Width != 600 || resp.ImageMetadata.Height != 600 {
		t.Errorf("Unexpected image metadata %+v", resp.ImageMetadata)
	}
	if resp.ImageMetadata.Format != "Standard" {
		t.Errorf("Expected Standard format, got %q", resp.ImageMetadata.Format)
	}
	if !strings.Contains(resp.Analysis, "pneumonia") {
		t.Error("Expected the narrative in the response")
	}
	if !strings.Contains(resp.Analysis, strings.TrimSpace(report.Disclaimer)) {
		t.Error("Expected the disclaimer in the response")
	}

	if !strings.HasPrefix(gen.prompt, "Patient Age:63. Patient Sex:M.") {
		t.Errorf("Expected demographics ahead of the ensemble context, got %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "class index 7") {
		t.Errorf("Expected preliminary assessment in the prompt, got %q", gen.prompt)
	}
	if !strings.HasPrefix(gen.dataURL, "data:image/jpeg;base64,") {
		t.Errorf("Expected a JPEG data URL, got prefix %q", gen.dataURL[:min(len(gen.dataURL), 30)])
	}

	if len(repo.stored) != 1 {
		t.Fatalf("Expected one stored document, got %d", len(repo.stored))
	}
	doc := repo.stored[0]
	if doc.ID != resp.ReportID || doc.Filename != "chest.png" {
		t.Errorf("Stored document mismatch: %+v", doc)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("Expected a creation timestamp")
	}

	if len(arch.archived) != 1 || arch.archived[0] != doc.ID {
		t.Errorf("Expected the normalized image archived under the report id, got %v", arch.archived)
	}
}

func TestAnalyzeImage_UnreadableBytes(t *testing.T) {
	svc := newTestService(&stubGenerator{analysis: "x"}, &stubRepo{}, &stubArchiver{})

	if _, err := svc.AnalyzeImage(context.Background(), []byte("not an image"), "bad.png",
		report.PatientContext{}); err == nil {
		t.Fatal("Expected error for undecodable upload")
	}
}

func TestAnalyzeImage_GeneratorFailure(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(&stubGenerator{err: errors.New("model down")}, repo, &stubArchiver{})

	if _, err := svc.AnalyzeImage(context.Background(), encodeTestPNG(t, 520, 520), "a.png",
		report.PatientContext{}); err == nil {
		t.Fatal("Expected narrative failure to propagate")
	}
	if len(repo.stored) != 0 {
		t.Error("Expected nothing persisted when the narrative fails")
	}
}

func TestAnalyzeImage_ArchiveFailureIsNonFatal(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(&stubGenerator{analysis: "Normal study."}, repo,
		&stubArchiver{err: errors.New("blob unreachable")})

	if _, err := svc.AnalyzeImage(context.Background(), encodeTestPNG(t, 520, 520), "b.png",
		report.PatientContext{}); err != nil {
		t.Fatalf("Expected archive failure to be tolerated, got %v", err)
	}
	if len(repo.stored) != 1 {
		t.Error("Expected the report persisted despite the archive failure")
	}
}

func TestListReports_NilBecomesEmpty(t *testing.T) {
	svc := newTestService(&stubGenerator{}, &stubRepo{}, &stubArchiver{})

	docs, err := svc.ListReports(context.Background())
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if docs == nil {
		t.Error("Expected an empty slice, not nil")
	}
}
