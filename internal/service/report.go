package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// Fixed formatting precision for rendered reports: diameters to 1 decimal
// mm, percentages to the nearest integer, doubling times to the nearest day.
// Rendering is pure templating over precomputed values; the assembler never
// invents a number, and indeterminate fields are stated, never omitted.

// Disclaimer appended to every rendered report.
const Disclaimer = "Automated analysis for decision support. Findings must be verified by a qualified radiologist."

// ReportAssembler renders comparison reports from assessed timeline state.
type ReportAssembler struct {
	logger *logrus.Logger
}

// NewReportAssembler creates a report assembler
func NewReportAssembler(logger *logrus.Logger) *ReportAssembler {
	return &ReportAssembler{logger: logger}
}

// Render produces an immutable comparison report for the timeline and its
// derived state. Rendering the same snapshot twice yields byte-identical
// output: no clock, no randomness.
//
// assessment is the baseline-relative view that drove classification;
// interval is the change since the previous visit. The comparison texts
// ("previously", "since your last scan") are filled from the interval view
// so they speak about the prior study, not the baseline.
func (r *ReportAssembler) Render(
	timeline *domain.LesionTimeline,
	assessment *domain.GrowthAssessment,
	interval *domain.GrowthAssessment,
	risk domain.RiskClassification,
	differential []domain.Hypothesis,
) *domain.ComparisonReport {
	report := &domain.ComparisonReport{
		LesionRef:              timeline.LesionRef,
		TimelineSummary:        r.renderTimeline(timeline),
		ChangeSummary:          r.renderChangeSummary(timeline, interval),
		ClinicalInterpretation: r.renderInterpretation(assessment, risk),
		ComparisonParagraph:    r.renderComparisonParagraph(timeline, interval, risk),
		PatientSummary:         r.renderPatientSummary(timeline, interval),
		Recommendations:        r.renderRecommendations(risk),
		Disclaimer:             Disclaimer,
		Assessment:             *assessment,
		Risk:                   risk,
		Differential:           append([]domain.Hypothesis(nil), differential...),
	}

	r.logger.WithFields(logrus.Fields{
		"lesion_ref": timeline.LesionRef,
		"trend":      assessment.Trend.String(),
		"category":   risk.Category,
	}).Debug("Comparison report rendered")

	return report
}

func (r *ReportAssembler) renderTimeline(timeline *domain.LesionTimeline) string {
	var b strings.Builder
	b.WriteString("TIMELINE:")
	for _, obs := range timeline.Observations {
		b.WriteString(fmt.Sprintf("\n- %s: %s %s lesion (%s)",
			obs.Timestamp.Format("2006-01-02"),
			fmtSize(obs),
			strings.ToLower(densityLabel(obs.Density)),
			obs.Modality.String()))
	}
	return b.String()
}

func (r *ReportAssembler) renderChangeSummary(timeline *domain.LesionTimeline, interval *domain.GrowthAssessment) string {
	current := timeline.Current()
	location := current.Region
	if location == "" {
		location = "the identified region"
	}

	if interval.Kinetics == nil {
		return fmt.Sprintf("Single observation on %s measuring %s in %s. Growth assessment indeterminate: no prior measurement for comparison.",
			current.Timestamp.Format("2006-01-02"), fmtSize(current), location)
	}

	k := interval.Kinetics
	reference := timeline.Prior()
	switch interval.Trend {
	case domain.STABLE:
		return fmt.Sprintf("The %s lesion in %s remains stable, measuring %s (previously %s, %s change over %d days).",
			strings.ToLower(densityLabel(current.Density)), location, fmtSize(current), fmtSize(reference),
			fmtSignedPct(k.PercentChange), k.IntervalDays)
	case domain.GROWING:
		vdtText := " Volume doubling time undefined."
		if k.VolumeDoublingTimeDays != nil {
			vdtText = fmt.Sprintf(" Volume doubling time is approximately %.0f days.", *k.VolumeDoublingTimeDays)
		}
		return fmt.Sprintf("The %s lesion in %s has demonstrated interval growth, now measuring %s (previously %s, %s change, %s volume change over %d days).%s",
			strings.ToLower(densityLabel(current.Density)), location, fmtSize(current), fmtSize(reference),
			fmtSignedPct(k.PercentChange), fmtSignedPct(k.VolumePercentChange), k.IntervalDays, vdtText)
	case domain.SHRINKING:
		vdtText := ""
		if k.VolumeDoublingTimeDays != nil {
			vdtText = fmt.Sprintf(" Volume halving time is approximately %.0f days.", *k.VolumeDoublingTimeDays)
		}
		return fmt.Sprintf("The %s lesion in %s has decreased in size, now measuring %s (previously %s, %s reduction over %d days). This suggests interval improvement.%s",
			strings.ToLower(densityLabel(current.Density)), location, fmtSize(current), fmtSize(reference),
			fmtPct(math.Abs(k.PercentChange)), k.IntervalDays, vdtText)
	default:
		return fmt.Sprintf("Change assessment indeterminate. Current: %s, prior: %s.", fmtSize(current), fmtSize(reference))
	}
}

func (r *ReportAssembler) renderInterpretation(assessment *domain.GrowthAssessment, risk domain.RiskClassification) string {
	var parts []string

	if assessment.Kinetics != nil && assessment.Kinetics.VolumeDoublingTimeDays != nil {
		vdt := *assessment.Kinetics.VolumeDoublingTimeDays
		switch assessment.Trend {
		case domain.GROWING:
			switch {
			case vdt < 200:
				parts = append(parts, fmt.Sprintf("Volume doubling time of %.0f days indicates rapid growth, highly suggestive of malignancy.", vdt))
			case vdt < 400:
				parts = append(parts, fmt.Sprintf("Volume doubling time of %.0f days raises concern for malignancy.", vdt))
			case vdt < 600:
				parts = append(parts, fmt.Sprintf("Volume doubling time of %.0f days suggests an intermediate growth rate.", vdt))
			default:
				parts = append(parts, fmt.Sprintf("Volume doubling time of %.0f days suggests slow growth; continued surveillance warranted.", vdt))
			}
		case domain.SHRINKING:
			parts = append(parts, fmt.Sprintf("Volume halving time of %.0f days is consistent with a resolving process.", vdt))
		}
	} else {
		parts = append(parts, "Volume doubling time: undefined.")
	}

	parts = append(parts, fmt.Sprintf("Current category: %s (%s %s).", risk.Category, risk.GuidelineName, risk.GuidelineVersion))
	if risk.PriorCategory != "" && risk.PriorCategory != risk.Category {
		parts = append(parts, fmt.Sprintf("Category has changed from %s to %s.", risk.PriorCategory, risk.Category))
	}
	parts = append(parts, fmt.Sprintf("Overall risk assessment: %s.", risk.RiskLevel.String()))

	return strings.Join(parts, " ")
}

func (r *ReportAssembler) renderComparisonParagraph(timeline *domain.LesionTimeline, interval *domain.GrowthAssessment, risk domain.RiskClassification) string {
	current := timeline.Current()

	if interval.Kinetics == nil {
		return fmt.Sprintf("BASELINE: %s study dated %s.\n\nA %s %s lesion is identified in %s. No prior study is available for comparison; change assessment is indeterminate.",
			current.Modality.String(), current.Timestamp.Format("2006-01-02"),
			fmtSize(current), strings.ToLower(densityLabel(current.Density)), regionOr(current.Region))
	}

	k := interval.Kinetics
	reference := timeline.Prior()
	header := fmt.Sprintf("COMPARISON: %s study dated %s.\n\n", reference.Modality.String(), reference.Timestamp.Format("2006-01-02"))

	switch interval.Trend {
	case domain.STABLE:
		return header + fmt.Sprintf("The previously identified %s %s lesion in %s remains stable, now measuring %s. No significant interval change (%s over %d days). Continued surveillance recommended per %s category %s.",
			fmtSize(reference), strings.ToLower(densityLabel(reference.Density)), regionOr(current.Region),
			fmtSize(current), fmtSignedPct(k.PercentChange), k.IntervalDays, risk.GuidelineName, risk.Category)
	case domain.GROWING:
		vdtText := ""
		if k.VolumeDoublingTimeDays != nil {
			vdtText = fmt.Sprintf(" Volume doubling time is approximately %.0f days.", *k.VolumeDoublingTimeDays)
		}
		return header + fmt.Sprintf("The previously identified %s %s lesion in %s has demonstrated interval growth, now measuring %s (%s increase, %s volume increase over %d days).%s Recommend %s per %s category %s.",
			fmtSize(reference), strings.ToLower(densityLabel(reference.Density)), regionOr(current.Region),
			fmtSize(current), fmtSignedPct(k.PercentChange), fmtSignedPct(k.VolumePercentChange), k.IntervalDays,
			vdtText, risk.RecommendedAction, risk.GuidelineName, risk.Category)
	case domain.SHRINKING:
		return header + fmt.Sprintf("The previously identified %s %s lesion in %s has decreased in size, now measuring %s (%s decrease over %d days). Interval improvement suggests benign etiology. Recommend %s.",
			fmtSize(reference), strings.ToLower(densityLabel(reference.Density)), regionOr(current.Region),
			fmtSize(current), fmtPct(math.Abs(k.PercentChange)), k.IntervalDays, risk.RecommendedAction)
	default:
		return header + "Indeterminate change. Clinical correlation recommended."
	}
}

func (r *ReportAssembler) renderPatientSummary(timeline *domain.LesionTimeline, interval *domain.GrowthAssessment) string {
	current := timeline.Current()

	if interval.Kinetics == nil {
		return fmt.Sprintf("Your scan shows a small finding (%s) that your care team will keep an eye on. A follow-up scan helps determine whether it is changing.", fmtSize(current))
	}

	switch interval.Trend {
	case domain.STABLE:
		return fmt.Sprintf("Your scan shows a finding (%s) that has not changed since your last scan. This is reassuring; your doctor recommends continuing to monitor it with regular scans.", fmtSize(current))
	case domain.GROWING:
		return fmt.Sprintf("Your scan shows a finding that has grown since your last scan (from %s to %s). This does not definitely mean it is harmful, but your doctor will likely recommend additional tests. Please follow up with your healthcare team.",
			fmtSize(timeline.Prior()), fmtSize(current))
	case domain.SHRINKING:
		return fmt.Sprintf("Your scan shows a finding that has gotten smaller since your last scan (now %s). This usually suggests a healing process such as a resolving infection. Your doctor may recommend one more scan to confirm.", fmtSize(current))
	default:
		return "Please discuss your scan results with your healthcare provider."
	}
}

func (r *ReportAssembler) renderRecommendations(risk domain.RiskClassification) []string {
	recommendations := []string{risk.RecommendedAction}
	if risk.RecommendedAction != domain.IndeterminateAction {
		recommendations = append(recommendations, domain.IndeterminateAction)
	}
	return recommendations
}

// fmtSize renders the observation's size at fixed precision: diameter to one
// decimal mm, or volume to one decimal mm³ for volume-only observations.
func fmtSize(obs domain.Observation) string {
	if obs.DiameterMM != nil {
		return fmt.Sprintf("%.1f mm", *obs.DiameterMM)
	}
	return fmt.Sprintf("%.1f mm³", *obs.VolumeMM3)
}

// fmtPct renders a fractional change to the nearest integer percent
func fmtPct(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}

// fmtSignedPct renders a fractional change with an explicit sign
func fmtSignedPct(fraction float64) string {
	return fmt.Sprintf("%+.0f%%", fraction*100)
}

func densityLabel(d domain.DensityCategory) string {
	switch d {
	case domain.SOLID:
		return "solid"
	case domain.PART_SOLID:
		return "part-solid"
	case domain.GROUND_GLASS:
		return "ground-glass"
	default:
		return "unspecified-density"
	}
}

func regionOr(region string) string {
	if region == "" {
		return "the identified region"
	}
	return region
}
