package knowledge

import "sort"

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// radiologyDifferentials covers the conditions the report enrichment
// can elaborate on, organized by category.
var radiologyDifferentials = map[string]map[string]Differential{
	"Pulmonary": {
		"Pneumonia": {
			ImagingDescriptors: []string{
				"Lobar consolidation", "Multifocal infiltrates", "Air bronchograms",
				"Ground-glass opacity",
			},
			RiskFactors:  []string{"Advanced age", "Immunocompromise", "Chronic lung disease", "Smoking"},
			Epidemiology: "High prevalence during winter; increased incidence in post-viral settings.",
			Correlations: []string{"Correlate with fever, productive cough and leukocytosis"},
			Recommendations: []string{
				"Follow-up radiograph in 6 weeks to confirm resolution",
				"CT if findings persist or the presentation is atypical",
			},
		},
		"Pulmonary Embolism": {
			ImagingDescriptors: []string{"Peripheral wedge-shaped opacity (Hampton hump)", "Regional oligemia (Westermark sign)"},
			RiskFactors:        []string{"Immobilization", "Malignancy", "Recent surgery", "Thrombophilia"},
			Epidemiology:       "Common in hospitalized patients; frequently underdiagnosed on plain film.",
			Correlations:       []string{"D-dimer and Wells score guide pretest probability"},
			Recommendations:    []string{"CT pulmonary angiography is the confirmatory study of choice"},
		},
		"Lung Cancer": {
			ImagingDescriptors: []string{"Spiculated nodule or mass", "Hilar enlargement", "Post-obstructive atelectasis"},
			RiskFactors:        []string{"Smoking", "Radon exposure", "Occupational carcinogens"},
			Epidemiology:       "Leading cause of cancer mortality worldwide.",
			Correlations:       []string{"Weight loss, hemoptysis and chronic cough raise suspicion"},
			Recommendations:    []string{"Dedicated CT with contrast and tissue sampling per nodule size"},
		},
	},
	"Neurological": {
		"Stroke": {
			ImagingDescriptors: []string{"Loss of gray-white differentiation", "Dense vessel sign", "Wedge-shaped hypodensity"},
			RiskFactors:        []string{"Hypertension", "Atrial fibrillation", "Diabetes", "Smoking"},
			Epidemiology:       "A leading cause of adult disability; incidence rises sharply with age.",
			Correlations:       []string{"Sudden focal deficit; time of onset drives management"},
			Recommendations:    []string{"Non-contrast CT to exclude hemorrhage, then CT/MR angiography"},
		},
		"Brain Tumor": {
			ImagingDescriptors: []string{"Mass with surrounding vasogenic edema", "Midline shift", "Ring enhancement"},
			RiskFactors:        []string{"Prior irradiation", "Genetic syndromes"},
			Epidemiology:       "Metastases outnumber primary tumors in adults.",
			Correlations:       []string{"Headache worse in the morning, new seizures, focal deficits"},
			Recommendations:    []string{"Contrast-enhanced MRI; neurosurgical referral"},
		},
	},
	"Musculoskeletal": {
		"Fracture": {
			ImagingDescriptors: []string{"Cortical discontinuity", "Lucent fracture line", "Periosteal reaction in healing"},
			RiskFactors:        []string{"Trauma", "Osteoporosis", "Chronic steroid use"},
			Epidemiology:       "Fragility fractures are increasingly common in aging populations.",
			Correlations:       []string{"Point tenderness and mechanism of injury"},
			Recommendations:    []string{"Orthogonal views; CT for occult or complex fractures"},
		},
		"Scoliosis": {
			ImagingDescriptors: []string{"Lateral spinal curvature with Cobb angle > 10 degrees", "Vertebral rotation"},
			RiskFactors:        []string{"Adolescent growth spurt", "Neuromuscular disease", "Congenital vertebral anomalies"},
			Epidemiology:       "Adolescent idiopathic scoliosis is the most common form.",
			Correlations:       []string{"Asymmetric shoulder or pelvic height on exam"},
			Recommendations:    []string{"Standing full-spine radiographs; serial Cobb angle measurement"},
		},
	},
}

// clinicalGuidelines are concise modality-keyed guideline summaries
// (ACR for plain film, BI-RADS for mammography, CAP/WHO for
// histopathology). The General modality intentionally has no entry:
// enrichment skips it.
var clinicalGuidelines = map[string]map[string]map[string]string{
	"ChestXRay": {
		"ACR_ChestXRay": {
			"NormalChest":   "Follow standard screening intervals unless clinical suspicion arises.",
			"AbnormalChest": "If suspicious lesions are present, further evaluation with CT is recommended.",
		},
	},
	"Mammogram": {
		"BI-RADS": {
			"Category 0": "Incomplete - additional imaging evaluation is required.",
			"Category 1": "Negative - routine screening is recommended.",
			"Category 2": "Benign findings - continue routine screening.",
			"Category 3": "Probably benign - short-interval follow-up (e.g., 6 months).",
			"Category 4": "Suspicion for malignancy - biopsy recommended.",
			"Category 5": "Highly suggestive of malignancy - prompt action required.",
		},
	},
	"Histopathology": {
		"General_Pathology": {
			"Tissue_Processing":      "Standard formalin fixation and paraffin embedding; follow CAP guidelines for specimen handling.",
			"Microscopic_Evaluation": "Examine H&E-stained slides for cellular architecture, nuclear features and stromal changes.",
			"Immunohistochemistry":   "Consider ER, PR, HER2 or Ki-67 markers depending on suspected pathology.",
			"Reporting_Standards":    "Use standardized synoptic reporting per WHO classification and CAP protocols.",
		},
	},
}
