package domain

// ComparisonReport is the rendered output of the pipeline: a templated,
// deterministic narrative plus the structured values it was filled from.
// Reports are immutable snapshots; rendering the same inputs twice produces
// byte-identical text, so no clock or random source participates.
type ComparisonReport struct {
	LesionRef string `json:"lesion_ref"`

	TimelineSummary        string   `json:"timeline_summary"`
	ChangeSummary          string   `json:"change_summary"`
	ClinicalInterpretation string   `json:"clinical_interpretation"`
	ComparisonParagraph    string   `json:"comparison_paragraph"`
	PatientSummary         string   `json:"patient_summary"`
	Recommendations        []string `json:"recommendations"`
	Disclaimer             string   `json:"disclaimer"`

	Assessment   GrowthAssessment   `json:"assessment"`
	Risk         RiskClassification `json:"risk"`
	Differential []Hypothesis       `json:"differential"`
}
