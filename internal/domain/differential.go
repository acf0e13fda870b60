package domain

import "time"

// Hypothesis is one competing diagnostic explanation with its current
// normalized probability weight.
type Hypothesis struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// HypothesisPrior is the configured starting weight for one hypothesis.
// Priors are ordered: the slice order fixes the iteration order of every
// subsequent update, which keeps weight histories bit-for-bit reproducible.
type HypothesisPrior struct {
	Label  string  `json:"label" mapstructure:"label"`
	Weight float64 `json:"weight" mapstructure:"weight"`
}

// LikelihoodTable is external configuration mapping observed evidence to a
// multiplicative factor per hypothesis label: Factors keys on the growth
// trend, DensityFactors optionally keys on the lesion's density category.
// Factors absent from the table default to 1.0 (no evidence contribution).
type LikelihoodTable struct {
	Name           string                                 `json:"name" mapstructure:"name"`
	Version        string                                 `json:"version" mapstructure:"version"`
	Factors        map[Trend]map[string]float64           `json:"factors" mapstructure:"factors"`
	DensityFactors map[DensityCategory]map[string]float64 `json:"density_factors,omitempty" mapstructure:"density_factors"`
}

// Factor returns the configured likelihood factor for a hypothesis under a
// trend, defaulting to 1.0 when unconfigured.
func (t *LikelihoodTable) Factor(trend Trend, label string) float64 {
	if byLabel, ok := t.Factors[trend]; ok {
		if f, ok := byLabel[label]; ok {
			return f
		}
	}
	return 1.0
}

// DensityFactor returns the configured likelihood factor for a hypothesis
// given a density category, defaulting to 1.0 when unconfigured.
func (t *LikelihoodTable) DensityFactor(density DensityCategory, label string) float64 {
	if byLabel, ok := t.DensityFactors[density]; ok {
		if f, ok := byLabel[label]; ok {
			return f
		}
	}
	return 1.0
}

// DifferentialSnapshot records the normalized weights after one update.
type DifferentialSnapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Trend     Trend        `json:"trend"`
	Weights   []Hypothesis `json:"weights"`
}

// DifferentialState is the live probability distribution over the hypothesis
// set for one lesion, plus the full weight history. Weights always sum to 1.0
// after each update.
type DifferentialState struct {
	LesionRef  string                 `json:"lesion_ref"`
	Hypotheses []Hypothesis           `json:"hypotheses"`
	History    []DifferentialSnapshot `json:"history"`
}

// Clone returns a deep copy of the differential state
func (s *DifferentialState) Clone() *DifferentialState {
	out := &DifferentialState{
		LesionRef:  s.LesionRef,
		Hypotheses: make([]Hypothesis, len(s.Hypotheses)),
		History:    make([]DifferentialSnapshot, len(s.History)),
	}
	copy(out.Hypotheses, s.Hypotheses)
	for i, snap := range s.History {
		weights := make([]Hypothesis, len(snap.Weights))
		copy(weights, snap.Weights)
		out.History[i] = DifferentialSnapshot{
			Timestamp: snap.Timestamp,
			Trend:     snap.Trend,
			Weights:   weights,
		}
	}
	return out
}

// WeightSum returns the sum of all hypothesis weights
func (s *DifferentialState) WeightSum() float64 {
	var sum float64
	for _, h := range s.Hypotheses {
		sum += h.Weight
	}
	return sum
}
