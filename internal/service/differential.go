package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// DifferentialTracker maintains the probability distribution over the
// configured hypothesis set for each lesion. Updates are deterministic: the
// same sequence of assessments under the same configured tables reproduces
// the same weight history bit for bit. Hypotheses are iterated in configured
// prior order, never over a map.
type DifferentialTracker struct {
	logger *logrus.Logger
	priors []domain.HypothesisPrior
	table  domain.LikelihoodTable
}

// NewDifferentialTracker creates a tracker with configured priors and
// likelihood factors. The prior must be non-empty with positive weights;
// the configuration layer validates that before construction.
func NewDifferentialTracker(logger *logrus.Logger, priors []domain.HypothesisPrior, table domain.LikelihoodTable) *DifferentialTracker {
	return &DifferentialTracker{
		logger: logger,
		priors: priors,
		table:  table,
	}
}

// Init returns the initial differential state for a lesion at its first
// observation: the configured prior, normalized, recorded as the first
// history snapshot.
func (d *DifferentialTracker) Init(lesionRef string, at time.Time) *domain.DifferentialState {
	hypotheses := make([]domain.Hypothesis, len(d.priors))
	var sum float64
	for _, p := range d.priors {
		sum += p.Weight
	}
	for i, p := range d.priors {
		hypotheses[i] = domain.Hypothesis{Label: p.Label, Weight: p.Weight / sum}
	}

	state := &domain.DifferentialState{
		LesionRef:  lesionRef,
		Hypotheses: hypotheses,
	}
	state.History = []domain.DifferentialSnapshot{snapshotOf(state, at, domain.INDETERMINATE)}
	return state
}

// Update applies the configured multiplicative likelihood factors for the
// assessment's trend and the observation's density category, renormalizes so
// the weights sum to 1.0, and appends a history snapshot. The input state is
// not mutated; a new state is returned.
func (d *DifferentialTracker) Update(state *domain.DifferentialState, assessment *domain.GrowthAssessment, density domain.DensityCategory, at time.Time) (*domain.DifferentialState, error) {
	next := state.Clone()

	var sum float64
	for i := range next.Hypotheses {
		h := &next.Hypotheses[i]
		h.Weight *= d.table.Factor(assessment.Trend, h.Label)
		h.Weight *= d.table.DensityFactor(density, h.Label)
		sum += h.Weight
	}
	if sum <= 0 {
		return nil, domain.NewTrackingError(domain.ErrInvalidConfiguration, state.LesionRef,
			"likelihood factors drove all hypothesis weights to zero under trend %s", assessment.Trend)
	}
	for i := range next.Hypotheses {
		next.Hypotheses[i].Weight /= sum
	}

	next.History = append(next.History, snapshotOf(next, at, assessment.Trend))

	d.logger.WithFields(logrus.Fields{
		"lesion_ref": state.LesionRef,
		"trend":      assessment.Trend.String(),
		"snapshots":  len(next.History),
	}).Debug("Differential weights updated")

	return next, nil
}

func snapshotOf(state *domain.DifferentialState, at time.Time, trend domain.Trend) domain.DifferentialSnapshot {
	weights := make([]domain.Hypothesis, len(state.Hypotheses))
	copy(weights, state.Hypotheses)
	return domain.DifferentialSnapshot{
		Timestamp: at,
		Trend:     trend,
		Weights:   weights,
	}
}
