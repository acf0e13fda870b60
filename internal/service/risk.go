package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// RiskClassifier evaluates an ordered guideline table against the current
// measurement and growth assessment. It is a pure function of its inputs and
// the supplied table: rules are tried in table order and the first match
// wins. Guideline tables are escalation ladders, so positional precedence is
// the documented contract.
type RiskClassifier struct {
	logger *logrus.Logger
	table  domain.GuidelineTable
}

// NewRiskClassifier creates a classifier bound to a guideline table
func NewRiskClassifier(logger *logrus.Logger, table domain.GuidelineTable) *RiskClassifier {
	return &RiskClassifier{logger: logger, table: table}
}

// Table returns the guideline table the classifier evaluates
func (c *RiskClassifier) Table() domain.GuidelineTable {
	return c.table
}

// Classify maps the observation and assessment to a risk classification.
// When no rule matches the result is the indeterminate category with
// "clinical correlation recommended"; that is a representable outcome, never
// an error, and never silently escalated to a specific clinical action.
func (c *RiskClassifier) Classify(obs domain.Observation, assessment *domain.GrowthAssessment) domain.RiskClassification {
	diameter := obs.EquivalentDiameterMM()

	for _, rule := range c.table.Rules {
		if !c.ruleMatches(rule, obs, assessment, diameter) {
			continue
		}

		result := domain.RiskClassification{
			LesionRef:         obs.LesionRef,
			Category:          rule.Category,
			RecommendedAction: rule.RecommendedAction,
			RiskLevel:         rule.RiskLevel,
			Rationale:         []string{c.describeRule(rule, diameter, assessment)},
			GuidelineName:     c.table.Name,
			GuidelineVersion:  c.table.Version,
		}

		c.logger.WithFields(logrus.Fields{
			"lesion_ref": obs.LesionRef,
			"rule":       rule.Name,
			"category":   rule.Category,
			"risk_level": rule.RiskLevel.String(),
		}).Debug("Guideline rule fired")

		return result
	}

	c.logger.WithFields(logrus.Fields{
		"lesion_ref":  obs.LesionRef,
		"diameter_mm": diameter,
		"guideline":   c.table.Name,
	}).Debug("No guideline rule matched")

	return domain.RiskClassification{
		LesionRef:         obs.LesionRef,
		Category:          domain.IndeterminateCategory,
		RecommendedAction: domain.IndeterminateAction,
		RiskLevel:         domain.INTERMEDIATE_RISK,
		Rationale:         []string{fmt.Sprintf("no rule in guideline %q %s matched the finding", c.table.Name, c.table.Version)},
		GuidelineName:     c.table.Name,
		GuidelineVersion:  c.table.Version,
	}
}

// ruleMatches evaluates one rule's predicate. Size and VDT bands are
// half-open [min, max); empty enum slices match any value; a VDT band only
// matches when the assessment defines a doubling time.
func (c *RiskClassifier) ruleMatches(rule domain.GuidelineRule, obs domain.Observation, assessment *domain.GrowthAssessment, diameter float64) bool {
	if rule.MinSizeMM != nil && diameter < *rule.MinSizeMM {
		return false
	}
	if rule.MaxSizeMM != nil && diameter >= *rule.MaxSizeMM {
		return false
	}
	if len(rule.Densities) > 0 && !containsDensity(rule.Densities, obs.Density) {
		return false
	}
	if len(rule.Modalities) > 0 && !containsModality(rule.Modalities, obs.Modality) {
		return false
	}
	if len(rule.Trends) > 0 && !containsTrend(rule.Trends, assessment.Trend) {
		return false
	}
	if rule.MinVDTDays != nil || rule.MaxVDTDays != nil {
		if assessment.Kinetics == nil || assessment.Kinetics.VolumeDoublingTimeDays == nil {
			return false
		}
		vdt := *assessment.Kinetics.VolumeDoublingTimeDays
		if rule.MinVDTDays != nil && vdt < *rule.MinVDTDays {
			return false
		}
		if rule.MaxVDTDays != nil && vdt >= *rule.MaxVDTDays {
			return false
		}
	}
	return true
}

func (c *RiskClassifier) describeRule(rule domain.GuidelineRule, diameter float64, assessment *domain.GrowthAssessment) string {
	desc := fmt.Sprintf("rule %q matched: size %.1f mm", rule.Name, diameter)
	if assessment.Trend != domain.INDETERMINATE {
		desc += fmt.Sprintf(", trend %s", assessment.Trend.String())
	}
	if assessment.Kinetics != nil && assessment.Kinetics.VolumeDoublingTimeDays != nil {
		desc += fmt.Sprintf(", VDT %.0f days", *assessment.Kinetics.VolumeDoublingTimeDays)
	}
	return desc
}

func containsDensity(set []domain.DensityCategory, v domain.DensityCategory) bool {
	for _, d := range set {
		if d == v {
			return true
		}
	}
	return false
}

func containsModality(set []domain.Modality, v domain.Modality) bool {
	for _, m := range set {
		if m == v {
			return true
		}
	}
	return false
}

func containsTrend(set []domain.Trend, v domain.Trend) bool {
	for _, t := range set {
		if t == v {
			return true
		}
	}
	return false
}
