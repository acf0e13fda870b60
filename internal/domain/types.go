// Package domain contains core business entities and types for longitudinal
// lesion tracking and clinical decision support.
//
// Risk categorization follows an ordered guideline-table scheme modeled on
// ACR Lung-RADS v1.1; growth kinetics use the standard exponential volume
// doubling model.
package domain

import (
	"fmt"
)

// Modality represents the imaging modality an observation was acquired with.
type Modality string

const (
	CT   Modality = "CT"
	MRI  Modality = "MRI"
	XRAY Modality = "XRAY"
)

// String returns the string representation of the modality
func (m Modality) String() string {
	return string(m)
}

// IsValid reports whether the modality is a known value
func (m Modality) IsValid() bool {
	switch m {
	case CT, MRI, XRAY:
		return true
	}
	return false
}

// DensityCategory represents the radiographic density of a lesion.
type DensityCategory string

const (
	SOLID        DensityCategory = "SOLID"
	PART_SOLID   DensityCategory = "PART_SOLID"
	GROUND_GLASS DensityCategory = "GROUND_GLASS"
)

// String returns the string representation of the density category
func (d DensityCategory) String() string {
	return string(d)
}

// IsValid reports whether the density category is known; the empty value is
// valid because density is an optional field on observations.
func (d DensityCategory) IsValid() bool {
	switch d {
	case SOLID, PART_SOLID, GROUND_GLASS, "":
		return true
	}
	return false
}

// Trend classifies the growth behavior of a lesion between two observations.
type Trend string

const (
	GROWING       Trend = "GROWING"
	STABLE        Trend = "STABLE"
	SHRINKING     Trend = "SHRINKING"
	INDETERMINATE Trend = "INDETERMINATE"
)

// String returns the string representation of the trend
func (t Trend) String() string {
	return string(t)
}

// RiskLevel represents the overall risk tier attached to a guideline category.
type RiskLevel string

const (
	LOW_RISK          RiskLevel = "LOW"
	INTERMEDIATE_RISK RiskLevel = "INTERMEDIATE"
	HIGH_RISK         RiskLevel = "HIGH"
	VERY_HIGH_RISK    RiskLevel = "VERY_HIGH"
)

// String returns the string representation of the risk level
func (r RiskLevel) String() string {
	return string(r)
}

// MeasurementBasis identifies which size measurement a derived metric was
// computed from.
type MeasurementBasis string

const (
	DIAMETER_BASIS MeasurementBasis = "DIAMETER"
	VOLUME_BASIS   MeasurementBasis = "VOLUME"
)

// String returns the string representation of the measurement basis
func (b MeasurementBasis) String() string {
	return string(b)
}

// ParseModality converts a free-form modality string to a Modality value
func ParseModality(s string) (Modality, error) {
	m := Modality(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown modality: %q", s)
	}
	return m, nil
}

// ParseDensityCategory converts a free-form density string to a DensityCategory
func ParseDensityCategory(s string) (DensityCategory, error) {
	d := DensityCategory(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown density category: %q", s)
	}
	return d, nil
}
