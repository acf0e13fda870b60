package domain

// GuidelineRule is one row of an ordered guideline table: a predicate over
// the current measurement and growth assessment mapped to a category and
// recommended action. Rules are evaluated in table order and the first match
// wins; guideline schemes such as Lung-RADS are ordered escalation ladders,
// so precedence is positional, never "most specific".
type GuidelineRule struct {
	Name string `json:"name" mapstructure:"name"`

	// Size predicate over the equivalent diameter, half-open [min, max).
	// A nil bound is unbounded on that side.
	MinSizeMM *float64 `json:"min_size_mm,omitempty" mapstructure:"min_size_mm"`
	MaxSizeMM *float64 `json:"max_size_mm,omitempty" mapstructure:"max_size_mm"`

	// Empty slices match any value.
	Densities  []DensityCategory `json:"densities,omitempty" mapstructure:"densities"`
	Modalities []Modality        `json:"modalities,omitempty" mapstructure:"modalities"`
	Trends     []Trend           `json:"trends,omitempty" mapstructure:"trends"`

	// VDT band predicate in days; only satisfiable when a doubling time is
	// defined. Half-open [min, max) like the size predicate.
	MinVDTDays *float64 `json:"min_vdt_days,omitempty" mapstructure:"min_vdt_days"`
	MaxVDTDays *float64 `json:"max_vdt_days,omitempty" mapstructure:"max_vdt_days"`

	Category          string    `json:"category" mapstructure:"category"`
	RecommendedAction string    `json:"recommended_action" mapstructure:"recommended_action"`
	RiskLevel         RiskLevel `json:"risk_level" mapstructure:"risk_level"`
}

// GuidelineTable is versioned external configuration: an ordered list of
// rules plus identifying metadata. The core never embeds a table.
type GuidelineTable struct {
	Name    string          `json:"name" mapstructure:"name"`
	Version string          `json:"version" mapstructure:"version"`
	Rules   []GuidelineRule `json:"rules" mapstructure:"rules"`
}

// RiskClassification is the outcome of evaluating a guideline table against
// the current observation and growth assessment.
type RiskClassification struct {
	LesionRef         string    `json:"lesion_ref"`
	Category          string    `json:"category"`
	PriorCategory     string    `json:"prior_category,omitempty"`
	RecommendedAction string    `json:"recommended_action"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Rationale         []string  `json:"rationale"`
	GuidelineName     string    `json:"guideline_name"`
	GuidelineVersion  string    `json:"guideline_version"`
}

// IndeterminateCategory is the category reported when no guideline rule
// matches; it is a normal outcome, not an error.
const IndeterminateCategory = "indeterminate"

// IndeterminateAction is the recommended action attached to an indeterminate
// classification. The classifier never silently defaults to a specific
// clinical action.
const IndeterminateAction = "clinical correlation recommended"
