// Package report assembles the final diagnostic report: the model
// narrative reformatted and enriched with differentials, guidelines,
// the ensemble's preliminary diagnosis and literature references.
package report

import (
	"context"
	"fmt"
	"strings"

	"go-imaging-report/internal/ensemble"
	"go-imaging-report/internal/imaging"
	"go-imaging-report/internal/knowledge"
	"go-imaging-report/internal/logger"
	"go-imaging-report/internal/pubmed"
)

// Disclaimer is appended to every report exactly once.
const Disclaimer = "\n\n*AI-generated analysis - Must be validated by a board-certified radiologist*"

const maxReferences = 3

// PatientContext carries optional demographics folded into the prompt
// and the report.
type PatientContext struct {
	Age *int
	Sex string
}

// Prompt renders demographics for the narrative request.
func (p PatientContext) Prompt() string {
	var parts []string
	if p.Age != nil {
		parts = append(parts, fmt.Sprintf("Patient Age:%d.", *p.Age))
	}
	if p.Sex != "" {
		parts = append(parts, "Patient Sex:"+p.Sex+".")
	}
	return strings.Join(parts, " ")
}

// Assembler enriches a raw narrative into the stored report text.
type Assembler struct {
	library              *knowledge.Library
	fetcher              pubmed.Fetcher
	uncertaintyThreshold float64
}

func NewAssembler(library *knowledge.Library, fetcher pubmed.Fetcher, uncertaintyThreshold float64) *Assembler {
	return &Assembler{
		library:              library,
		fetcher:              fetcher,
		uncertaintyThreshold: uncertaintyThreshold,
	}
}

// PreliminaryContext renders the ensemble search result as prompt
// context for the narrative model, flagging high predictive variance.
func (a *Assembler) PreliminaryContext(score ensemble.Score) string {
	ctx := fmt.Sprintf(
		"Preliminary ensemble assessment: class index %d, confidence %.3f, predictive variance %.4f.",
		score.Class, score.Confidence, score.Variance)
	if score.Variance > a.uncertaintyThreshold {
		ctx += " HIGH UNCERTAINTY: the ensemble's predictive variance exceeds the alert threshold; treat the preliminary class with caution."
	}
	return ctx
}

// Assemble reformats and enriches the narrative. PubMed failures are
// logged and skipped: missing references never fail the report.
func (a *Assembler) Assemble(ctx context.Context, analysis string, img *imaging.NormalizedImage) string {
	text := Reformat(analysis)

	categories := a.library.SelectCategories(text)
	text = a.library.IncorporateDifferentials(text, categories)

	modality := ResolveModality(img, text)
	text = a.library.IncorporateGuidelines(text, modality)

	if query := pubmed.ExtractQuery(text); query != "" {
		refs, err := a.fetcher.FetchReferences(ctx, query, maxReferences)
		if err != nil {
			logger.WithStage("report").WithError(err).WithField("query", query).
				Warn("skipping PubMed references")
		} else if len(refs) > 0 {
			text += "\n\n**Relevant PubMed References:**\n- " + strings.Join(refs, "\n- ")
		}
	}
	return text
}

// Reformat strips blank lines and guarantees the disclaimer appears
// exactly once.
func Reformat(analysis string) string {
	var lines []string
	for _, line := range strings.Split(analysis, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	formatted := strings.Join(lines, "\n")
	if !strings.Contains(formatted, strings.TrimSpace(Disclaimer)) {
		formatted += Disclaimer
	}
	return formatted
}

// ResolveModality maps the DICOM Modality code to a guideline key,
// falling back to text heuristics for raster uploads. General means no
// guideline section applies.
func ResolveModality(img *imaging.NormalizedImage, analysis string) string {
	if img != nil && img.Source == imaging.SourceDICOM {
		switch strings.ToUpper(img.Modality) {
		case "CR", "DR", "DX", "RF":
			return "ChestXRay"
		case "MG":
			return "Mammogram"
		case "SM":
			return "Histopathology"
		default:
			return "General"
		}
	}

	txt := strings.ToLower(analysis)
	switch {
	case strings.Contains(txt, "histopathology"), strings.Contains(txt, "microscopic"), strings.Contains(txt, "ductal"):
		return "Histopathology"
	case strings.Contains(txt, "chest"):
		return "ChestXRay"
	case strings.Contains(txt, "mammogram"), strings.Contains(txt, "breast"):
		return "Mammogram"
	default:
		return "General"
	}
}
