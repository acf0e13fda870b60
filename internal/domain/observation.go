package domain

import (
	"math"
	"time"
)

// Observation is a single measurement of one lesion at one point in time.
// At least one of DiameterMM or VolumeMM3 must be present; both must be
// positive when supplied. Observations are immutable once accepted by the
// ledger.
type Observation struct {
	LesionRef        string          `json:"lesion_ref,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	DiameterMM       *float64        `json:"diameter_mm,omitempty"`
	VolumeMM3        *float64        `json:"volume_mm3,omitempty"`
	Modality         Modality        `json:"modality"`
	Density          DensityCategory `json:"density_category,omitempty"`
	Region           string          `json:"region,omitempty"`
	Morphology       string          `json:"morphology,omitempty"`
	SourceConfidence float64         `json:"source_confidence"`
}

// Validate checks the observation's fields against the ingestion invariants.
// It returns a ValidationError for field-level problems and a TrackingError
// with code INCOMPLETE_MEASUREMENT when neither size measurement is present.
func (o *Observation) Validate() error {
	if o.Timestamp.IsZero() {
		return NewValidationError("timestamp", "timestamp is required", o.Timestamp)
	}
	if !o.Modality.IsValid() {
		return NewValidationError("modality", "modality must be one of CT, MRI, XRAY", o.Modality)
	}
	if !o.Density.IsValid() {
		return NewValidationError("density_category", "unknown density category", o.Density)
	}
	if o.DiameterMM == nil && o.VolumeMM3 == nil {
		return NewTrackingError(ErrIncompleteMeasurement, o.LesionRef,
			"observation carries neither diameter_mm nor volume_mm3")
	}
	if o.DiameterMM != nil && *o.DiameterMM <= 0 {
		return NewValidationError("diameter_mm", "diameter must be positive", *o.DiameterMM)
	}
	if o.VolumeMM3 != nil && *o.VolumeMM3 <= 0 {
		return NewValidationError("volume_mm3", "volume must be positive", *o.VolumeMM3)
	}
	if o.SourceConfidence < 0 || o.SourceConfidence > 1 {
		return NewValidationError("source_confidence", "confidence must be in [0,1]", o.SourceConfidence)
	}
	return nil
}

// HasDirectVolume reports whether the volume was measured rather than derived
func (o *Observation) HasDirectVolume() bool {
	return o.VolumeMM3 != nil
}

// EffectiveVolumeMM3 returns the observation's volume in mm³, deriving it via
// the sphere approximation V = (π/6)·d³ when only a diameter was measured.
// The approximation overestimates for irregular or spiculated lesions; the
// second return value is false when the volume is derived so downstream
// consumers can qualify it.
func (o *Observation) EffectiveVolumeMM3() (volume float64, direct bool) {
	if o.VolumeMM3 != nil {
		return *o.VolumeMM3, true
	}
	return SphereVolumeMM3(*o.DiameterMM), false
}

// EquivalentDiameterMM returns the measured diameter, or the sphere-equivalent
// diameter d = (6V/π)^(1/3) when only a volume was measured.
func (o *Observation) EquivalentDiameterMM() float64 {
	if o.DiameterMM != nil {
		return *o.DiameterMM
	}
	return math.Cbrt(6 * *o.VolumeMM3 / math.Pi)
}

// SphereVolumeMM3 computes the sphere-approximated volume for a diameter in mm
func SphereVolumeMM3(diameterMM float64) float64 {
	return math.Pi / 6 * diameterMM * diameterMM * diameterMM
}
