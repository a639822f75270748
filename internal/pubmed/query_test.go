package pubmed

import "testing"

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		expected string
	}{
		{
			name:     "histopathology precedence",
			analysis: "Microscopic examination shows ductal proliferation with pneumonia-like pattern.",
			expected: "fibroadenoma breast histopathology OR immunohistochemistry",
		},
		{
			name:     "normal chest study",
			analysis: "Impression: Normal chest X-ray without acute findings.",
			expected: "normal chest x-ray screening recommendations",
		},
		{
			name:     "pneumonia finding",
			analysis: "Right lower lobe consolidation consistent with pneumonia.",
			expected: "pneumonia chest x-ray findings",
		},
		{
			name:     "infiltrate finding",
			analysis: "Patchy infiltrate in the left midlung.",
			expected: "pneumonia chest x-ray findings",
		},
		{
			name:     "nodule finding",
			analysis: "A 6mm nodule is noted in the right apex.",
			expected: "pulmonary nodule chest x-ray follow-up",
		},
		{
			name:     "breast mass",
			analysis: "Mammogram demonstrates a well-circumscribed mass.",
			expected: "breast mass mammogram fibroadenoma or cyst",
		},
		{
			name:     "no recognized findings",
			analysis: "Unremarkable abdominal series.",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractQuery(tt.analysis); got != tt.expected {
				t.Errorf("Expected query %q, got %q", tt.expected, got)
			}
		})
	}
}
