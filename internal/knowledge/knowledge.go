// Package knowledge holds the static differential-diagnosis and
// clinical-guideline tables. The tables are loaded once at startup and
// read-only thereafter; there is no mutation path.
package knowledge

import (
	"strings"

	"github.com/arbovm/levenshtein"
)

// Differential describes one condition's diagnostic profile.
type Differential struct {
	ImagingDescriptors []string
	RiskFactors        []string
	Epidemiology       string
	Correlations       []string
	Recommendations    []string
}

// FormattedSummary renders the entry for inclusion in a report.
func (d Differential) FormattedSummary() string {
	var parts []string
	if len(d.ImagingDescriptors) > 0 {
		parts = append(parts, "Imaging Descriptors: "+strings.Join(d.ImagingDescriptors, "; "))
	}
	if len(d.RiskFactors) > 0 {
		parts = append(parts, "Risk Factors: "+strings.Join(d.RiskFactors, "; "))
	}
	if d.Epidemiology != "" {
		parts = append(parts, "Epidemiology: "+d.Epidemiology)
	}
	if len(d.Correlations) > 0 {
		parts = append(parts, "Clinical Correlations: "+strings.Join(d.Correlations, "; "))
	}
	if len(d.Recommendations) > 0 {
		parts = append(parts, "Recommendations: "+strings.Join(d.Recommendations, "; "))
	}
	return strings.Join(parts, ". ")
}

// Library is the process-wide read-only knowledge base.
type Library struct {
	radiology  map[string]map[string]Differential
	guidelines map[string]map[string]map[string]string
	triggers   map[string][]string
}

// Load builds the library from the compiled-in tables.
func Load() *Library {
	return &Library{
		radiology:  radiologyDifferentials,
		guidelines: clinicalGuidelines,
		triggers: map[string][]string{
			"Pulmonary":       {"pneumonia", "consolidation", "infiltrate", "nodule", "effusion"},
			"Neurological":    {"stroke", "hemorrhage", "midline", "infarct"},
			"Musculoskeletal": {"scoliosis", "fracture", "degenerative"},
		},
	}
}

// SelectCategories picks differential categories whose trigger terms
// appear in the analysis text. Matching tolerates small spelling
// variation (edit distance 1 on longer tokens) to catch plurals and
// transcription noise in model output.
func (l *Library) SelectCategories(analysis string) []string {
	tokens := tokenize(analysis)

	var selected []string
	for _, category := range []string{"Pulmonary", "Neurological", "Musculoskeletal"} {
		if l.matchesAny(tokens, l.triggers[category]) {
			selected = append(selected, category)
		}
	}
	return selected
}

func (l *Library) matchesAny(tokens []string, triggers []string) bool {
	for _, trigger := range triggers {
		for _, token := range tokens {
			if token == trigger {
				return true
			}
			if len(trigger) > 5 && len(token) > 5 && levenshtein.Distance(token, trigger) <= 1 {
				return true
			}
		}
	}
	return false
}

// IncorporateDifferentials appends differential sections for the
// selected categories. Unknown categories are skipped.
func (l *Library) IncorporateDifferentials(text string, categories []string) string {
	var sections []string
	for _, cat := range categories {
		conditions, ok := l.radiology[cat]
		if !ok {
			continue
		}
		lines := []string{"**Additional " + cat + " Differentials:**"}
		for _, name := range sortedKeys(conditions) {
			lines = append(lines, "- "+name+": "+conditions[name].FormattedSummary())
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return text
	}
	return text + "\n\n" + strings.Join(sections, "\n\n")
}

// IncorporateGuidelines appends modality-specific guideline summaries.
// Modalities without guidelines leave the text unchanged.
func (l *Library) IncorporateGuidelines(text, modality string) string {
	selected, ok := l.guidelines[modality]
	if !ok || len(selected) == 0 {
		return text
	}

	var lines []string
	for _, guideline := range sortedKeys(selected) {
		lines = append(lines, "**"+guideline+" Guidelines Summary:**")
		topics := selected[guideline]
		for _, topic := range sortedKeys(topics) {
			lines = append(lines, "- "+topic+": "+topics[topic])
		}
	}
	return text + "\n\n" + strings.Join(lines, "\n")
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
