package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesion-track-server/internal/config"
	"github.com/lesion-track-server/internal/domain"
)

func renderedFixture(t *testing.T, observations ...domain.Observation) (*domain.ComparisonReport, *ReportAssembler, *domain.LesionTimeline, *domain.GrowthAssessment, *domain.GrowthAssessment, domain.RiskClassification) {
	t.Helper()

	timeline := timelineOf("lesion-1", observations...)
	calc := NewKineticsCalculator(testLogger(), 0.02)
	assessment, err := calc.Assess(timeline)
	require.NoError(t, err)
	interval, err := calc.AssessPrior(timeline)
	require.NoError(t, err)

	classifier := NewRiskClassifier(testLogger(), config.DefaultGuidelineTable())
	risk := classifier.Classify(timeline.Current(), assessment)

	tracker := newDifferentialTracker()
	state := tracker.Init("lesion-1", timeline.Baseline().Timestamp)

	assembler := NewReportAssembler(testLogger())
	report := assembler.Render(timeline, assessment, interval, risk, state.Hypotheses)
	return report, assembler, timeline, assessment, interval, risk
}

func TestReportAssembler_GrowingLesion(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, _, _, _, _, _ := renderedFixture(t,
		obsAt(base, f(8.0), nil),
		obsAt(base.AddDate(0, 0, 187), f(11.0), nil),
	)

	assert.Contains(t, report.ChangeSummary, "interval growth")
	assert.Contains(t, report.ChangeSummary, "11.0 mm")
	assert.Contains(t, report.ChangeSummary, "8.0 mm")
	assert.Contains(t, report.ChangeSummary, "+38%")
	assert.Contains(t, report.ChangeSummary, "187 days")
	assert.Contains(t, report.ChangeSummary, "136 days")

	assert.Contains(t, report.ClinicalInterpretation, "highly suggestive of malignancy")
	assert.Contains(t, report.ClinicalInterpretation, "4B")
	assert.Contains(t, report.ClinicalInterpretation, "VERY_HIGH")

	assert.Contains(t, report.ComparisonParagraph, "COMPARISON: CT study dated 2024-01-10")
	assert.Contains(t, report.ComparisonParagraph, "right upper lobe")

	assert.Contains(t, report.PatientSummary, "grown since your last scan")
	assert.Contains(t, report.TimelineSummary, "2024-01-10")
	assert.Contains(t, report.TimelineSummary, "2024-07-15")
	assert.Equal(t, Disclaimer, report.Disclaimer)
}

func TestReportAssembler_StableLesion(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, _, _, _, _, _ := renderedFixture(t,
		obsAt(base, f(8.0), nil),
		obsAt(base.AddDate(0, 0, 90), f(8.1), nil),
	)

	assert.Contains(t, report.ChangeSummary, "remains stable")
	assert.Contains(t, report.ChangeSummary, "+1% change")
	assert.Contains(t, report.ClinicalInterpretation, "Volume doubling time: undefined.")
	assert.Contains(t, report.ComparisonParagraph, "No significant interval change")
	assert.Contains(t, report.PatientSummary, "not changed")
}

func TestReportAssembler_SingleObservation(t *testing.T) {
	report, _, _, _, _, _ := renderedFixture(t,
		obsAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), f(8.0), nil),
	)

	// Indeterminate state is stated, never omitted.
	assert.Contains(t, report.ChangeSummary, "indeterminate")
	assert.Contains(t, report.ComparisonParagraph, "BASELINE:")
	assert.Contains(t, report.ComparisonParagraph, "No prior study is available")
	assert.Contains(t, report.ClinicalInterpretation, "undefined")
}

func TestReportAssembler_ShrinkingLesion(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, _, _, _, _, _ := renderedFixture(t,
		obsAt(base, f(10.0), nil),
		obsAt(base.AddDate(0, 0, 120), f(8.0), nil),
	)

	assert.Contains(t, report.ChangeSummary, "decreased in size")
	assert.Contains(t, report.ChangeSummary, "20% reduction")
	assert.Contains(t, report.ComparisonParagraph, "Interval improvement")
	assert.Contains(t, report.PatientSummary, "gotten smaller")
}

func TestReportAssembler_Idempotent(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, assembler, timeline, assessment, interval, risk := renderedFixture(t,
		obsAt(base, f(8.0), nil),
		obsAt(base.AddDate(0, 0, 187), f(11.0), nil),
	)

	tracker := newDifferentialTracker()
	state := tracker.Init("lesion-1", base)

	again := assembler.Render(timeline, assessment, interval, risk, state.Hypotheses)
	assert.Equal(t, report, again)
}

func TestReportAssembler_ComparesAgainstPriorVisit(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, _, _, _, _, _ := renderedFixture(t,
		obsAt(base, f(8.0), nil),
		obsAt(base.AddDate(0, 0, 187), f(11.0), nil),
		obsAt(base.AddDate(0, 0, 277), f(9.0), nil),
	)

	// The lesion grew and then regressed; "previously" and "since your last
	// scan" must speak about the 11.0 mm study, not the 8.0 mm baseline.
	assert.Contains(t, report.ChangeSummary, "decreased in size")
	assert.Contains(t, report.ChangeSummary, "previously 11.0 mm")
	assert.Contains(t, report.ComparisonParagraph, "COMPARISON: CT study dated 2024-07-15")
	assert.Contains(t, report.ComparisonParagraph, "decreased in size")
	assert.Contains(t, report.PatientSummary, "gotten smaller")
}

func TestReportAssembler_Recommendations(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	report, _, _, _, _, risk := renderedFixture(t,
		obsAt(base, f(8.0), nil),
		obsAt(base.AddDate(0, 0, 187), f(11.0), nil),
	)

	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, risk.RecommendedAction, report.Recommendations[0])
	assert.Contains(t, report.Recommendations, domain.IndeterminateAction)
}
