package domain

import "time"

// LesionTimeline is the ordered sequence of observations sharing a lesion
// reference. Insertion order equals chronological order; the ledger enforces
// strictly increasing timestamps. A timeline always holds at least one
// observation. Timelines handed out by the ledger are deep copies: mutating
// one never affects ledger state.
type LesionTimeline struct {
	LesionRef    string        `json:"lesion_ref"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations in the timeline
func (t *LesionTimeline) Len() int {
	return len(t.Observations)
}

// Baseline returns the first observation of the timeline
func (t *LesionTimeline) Baseline() Observation {
	return t.Observations[0]
}

// Current returns the most recent observation of the timeline
func (t *LesionTimeline) Current() Observation {
	return t.Observations[len(t.Observations)-1]
}

// Prior returns the observation immediately preceding the current one.
// Only valid when the timeline holds at least two observations.
func (t *LesionTimeline) Prior() Observation {
	return t.Observations[len(t.Observations)-2]
}

// LatestTimestamp returns the timestamp of the most recent observation
func (t *LesionTimeline) LatestTimestamp() time.Time {
	return t.Current().Timestamp
}

// Clone returns a deep copy of the timeline, including the pointer-typed
// measurement fields of each observation.
func (t *LesionTimeline) Clone() *LesionTimeline {
	obs := make([]Observation, len(t.Observations))
	for i, o := range t.Observations {
		if o.DiameterMM != nil {
			d := *o.DiameterMM
			o.DiameterMM = &d
		}
		if o.VolumeMM3 != nil {
			v := *o.VolumeMM3
			o.VolumeMM3 = &v
		}
		obs[i] = o
	}
	return &LesionTimeline{
		LesionRef:    t.LesionRef,
		Observations: obs,
	}
}
