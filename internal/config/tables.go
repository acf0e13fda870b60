package config

import "github.com/lesion-track-server/internal/domain"

// Bundled default tables, used when the configuration file supplies none.
// They are configuration data shipped with the binary, not core logic: any
// deployment can replace them wholesale through the config file. The default
// guideline ladder follows the ACR Lung-RADS v1.1 size/density tiers with
// VDT-based escalation.

func f(v float64) *float64 { return &v }

// DefaultGuidelineTable returns the bundled Lung-RADS-style rule ladder.
// Rules are an ordered escalation ladder: first match wins.
func DefaultGuidelineTable() domain.GuidelineTable {
	return domain.GuidelineTable{
		Name:    "lung-rads-default",
		Version: "1.1",
		Rules: []domain.GuidelineRule{
			{
				Name:              "interval-regression",
				Trends:            []domain.Trend{domain.SHRINKING},
				Category:          "2",
				RecommendedAction: "follow-up imaging in 12 months to document resolution",
				RiskLevel:         domain.LOW_RISK,
			},
			{
				Name:              "solid-rapid-growth",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MinSizeMM:         f(8),
				Trends:            []domain.Trend{domain.GROWING},
				MaxVDTDays:        f(400),
				Category:          "4B",
				RecommendedAction: "urgent tissue sampling or PET-CT; consider multidisciplinary tumor board discussion",
				RiskLevel:         domain.VERY_HIGH_RISK,
			},
			{
				Name:              "solid-small-growing",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MinSizeMM:         f(6),
				MaxSizeMM:         f(8),
				Trends:            []domain.Trend{domain.GROWING},
				Category:          "4A",
				RecommendedAction: "PET-CT for further characterization; short-interval follow-up CT in 3 months if PET not performed",
				RiskLevel:         domain.HIGH_RISK,
			},
			{
				Name:              "solid-very-small",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MaxSizeMM:         f(6),
				Category:          "2",
				RecommendedAction: "continue annual low-dose CT screening",
				RiskLevel:         domain.LOW_RISK,
			},
			{
				Name:              "solid-small",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MinSizeMM:         f(6),
				MaxSizeMM:         f(8),
				Category:          "3",
				RecommendedAction: "follow-up CT in 6 months",
				RiskLevel:         domain.INTERMEDIATE_RISK,
			},
			{
				Name:              "solid-intermediate",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MinSizeMM:         f(8),
				MaxSizeMM:         f(15),
				Category:          "4A",
				RecommendedAction: "PET-CT for further characterization",
				RiskLevel:         domain.HIGH_RISK,
			},
			{
				Name:              "solid-large",
				Densities:         []domain.DensityCategory{domain.SOLID},
				MinSizeMM:         f(15),
				Category:          "4B",
				RecommendedAction: "tissue sampling recommended",
				RiskLevel:         domain.VERY_HIGH_RISK,
			},
			{
				Name:              "ground-glass-small",
				Densities:         []domain.DensityCategory{domain.GROUND_GLASS},
				MaxSizeMM:         f(30),
				Category:          "2",
				RecommendedAction: "continue annual low-dose CT screening",
				RiskLevel:         domain.LOW_RISK,
			},
			{
				Name:              "ground-glass-large-growing",
				Densities:         []domain.DensityCategory{domain.GROUND_GLASS},
				MinSizeMM:         f(30),
				Trends:            []domain.Trend{domain.GROWING},
				Category:          "4A",
				RecommendedAction: "PET-CT for further characterization",
				RiskLevel:         domain.HIGH_RISK,
			},
			{
				Name:              "ground-glass-large",
				Densities:         []domain.DensityCategory{domain.GROUND_GLASS},
				MinSizeMM:         f(30),
				Category:          "3",
				RecommendedAction: "follow-up CT in 6 months",
				RiskLevel:         domain.INTERMEDIATE_RISK,
			},
			{
				Name:              "part-solid-small",
				Densities:         []domain.DensityCategory{domain.PART_SOLID},
				MaxSizeMM:         f(6),
				Category:          "2",
				RecommendedAction: "continue annual low-dose CT screening",
				RiskLevel:         domain.LOW_RISK,
			},
			{
				Name:              "part-solid-growing",
				Densities:         []domain.DensityCategory{domain.PART_SOLID},
				MinSizeMM:         f(6),
				Trends:            []domain.Trend{domain.GROWING},
				Category:          "4B",
				RecommendedAction: "urgent tissue sampling or PET-CT",
				RiskLevel:         domain.VERY_HIGH_RISK,
			},
			{
				Name:              "part-solid",
				Densities:         []domain.DensityCategory{domain.PART_SOLID},
				MinSizeMM:         f(6),
				Category:          "4A",
				RecommendedAction: "PET-CT for further characterization",
				RiskLevel:         domain.HIGH_RISK,
			},
		},
	}
}

// DefaultPriors returns the bundled hypothesis set and prior weights.
// Order is significant: it fixes the iteration order of every update.
func DefaultPriors() []domain.HypothesisPrior {
	return []domain.HypothesisPrior{
		{Label: "malignancy", Weight: 0.3},
		{Label: "inflammatory", Weight: 0.4},
		{Label: "indolent", Weight: 0.3},
	}
}

// DefaultLikelihoodTable returns the bundled per-trend likelihood factors.
func DefaultLikelihoodTable() domain.LikelihoodTable {
	return domain.LikelihoodTable{
		Name:    "differential-default",
		Version: "1.0",
		Factors: map[domain.Trend]map[string]float64{
			domain.GROWING: {
				"malignancy":   2.2,
				"inflammatory": 0.5,
				"indolent":     1.1,
			},
			domain.STABLE: {
				"malignancy":   0.6,
				"inflammatory": 0.8,
				"indolent":     1.5,
			},
			domain.SHRINKING: {
				"malignancy":   0.1,
				"inflammatory": 2.5,
				"indolent":     0.7,
			},
		},
		DensityFactors: map[domain.DensityCategory]map[string]float64{
			domain.PART_SOLID: {
				"malignancy": 1.3,
			},
			domain.GROUND_GLASS: {
				"inflammatory": 1.2,
			},
		},
	}
}
