package domain

import "time"

// GrowthAssessment is the derived growth state of a lesion, recomputed in
// full from the timeline whenever an observation is appended. A timeline with
// a single observation yields Trend INDETERMINATE with nil Kinetics; that is
// a valid, representable state, not an error.
type GrowthAssessment struct {
	LesionRef string          `json:"lesion_ref"`
	Trend     Trend           `json:"trend"`
	Kinetics  *GrowthKinetics `json:"kinetics,omitempty"`
}

// HasKinetics reports whether derived numeric fields are defined
func (a *GrowthAssessment) HasKinetics() bool {
	return a.Kinetics != nil
}

// GrowthKinetics carries the numeric change metrics between a reference
// observation and the current observation.
//
// PercentChange is computed on volume when both observations carry a directly
// measured volume, otherwise on diameter; Basis records which. Fractional
// values: +0.375 means +37.5%.
//
// VolumeDoublingTimeDays follows the exponential growth model
// VDT = interval·ln2 / ln(V1/V0) and is always reported as a positive
// number of days: a doubling time when Trend is GROWING, a halving time when
// Trend is SHRINKING. It is nil when the trend is STABLE. Trend, not sign,
// disambiguates growth from shrinkage.
type GrowthKinetics struct {
	ReferenceDate time.Time        `json:"reference_date"`
	CurrentDate   time.Time        `json:"current_date"`
	IntervalDays  int              `json:"interval_days"`
	Basis         MeasurementBasis `json:"basis"`

	AbsoluteChange float64 `json:"absolute_change"`
	PercentChange  float64 `json:"percent_change"`

	ReferenceVolumeMM3  float64  `json:"reference_volume_mm3"`
	CurrentVolumeMM3    float64  `json:"current_volume_mm3"`
	VolumeDerived       bool     `json:"volume_derived"`
	VolumePercentChange float64  `json:"volume_percent_change"`
	ReferenceDiameterMM *float64 `json:"reference_diameter_mm,omitempty"`
	CurrentDiameterMM   *float64 `json:"current_diameter_mm,omitempty"`

	VolumeDoublingTimeDays *float64 `json:"volume_doubling_time_days,omitempty"`
}
