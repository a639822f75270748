package pubmed

import "strings"

// ExtractQuery derives a targeted PubMed query from the analysis text.
// Returns "" when no recognized modality or finding is present, in
// which case the references section is skipped entirely.
func ExtractQuery(analysis string) string {
	txt := strings.ToLower(analysis)

	// Histopathology findings take precedence over radiography terms.
	if containsAny(txt, "histopathology", "microscopic", "ductal", "fibroadenoma") {
		return "fibroadenoma breast histopathology OR immunohistochemistry"
	}

	if strings.Contains(txt, "normal chest x-ray") {
		return "normal chest x-ray screening recommendations"
	}
	if containsAny(txt, "pneumonia", "infiltrate") {
		return "pneumonia chest x-ray findings"
	}
	if strings.Contains(txt, "nodule") {
		return "pulmonary nodule chest x-ray follow-up"
	}

	if containsAny(txt, "mammogram", "breast mass") {
		return "breast mass mammogram fibroadenoma or cyst"
	}

	return ""
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
