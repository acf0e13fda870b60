package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// KineticsCalculator derives growth metrics from a lesion timeline. Every
// assessment is recomputed in full from the observations; nothing is patched
// incrementally.
type KineticsCalculator struct {
	logger *logrus.Logger

	// stabilityThreshold is the relative change below which a lesion is
	// considered stable, applied to PercentChange on its measurement basis.
	// 0.02 means +/-2%.
	stabilityThreshold float64
}

// NewKineticsCalculator creates a calculator with the configured stability
// threshold.
func NewKineticsCalculator(logger *logrus.Logger, stabilityThreshold float64) *KineticsCalculator {
	return &KineticsCalculator{
		logger:             logger,
		stabilityThreshold: stabilityThreshold,
	}
}

// Assess computes the growth assessment of the timeline's baseline against
// its current observation. A single-observation timeline yields trend
// INDETERMINATE with no kinetics; that is a valid result, not an error.
func (k *KineticsCalculator) Assess(timeline *domain.LesionTimeline) (*domain.GrowthAssessment, error) {
	if timeline.Len() < 2 {
		return &domain.GrowthAssessment{
			LesionRef: timeline.LesionRef,
			Trend:     domain.INDETERMINATE,
		}, nil
	}
	return k.AssessPair(timeline, 0, timeline.Len()-1)
}

// AssessPrior computes the assessment of the most recent prior observation
// against the current one, supporting "compared to the last visit" framing.
func (k *KineticsCalculator) AssessPrior(timeline *domain.LesionTimeline) (*domain.GrowthAssessment, error) {
	if timeline.Len() < 2 {
		return &domain.GrowthAssessment{
			LesionRef: timeline.LesionRef,
			Trend:     domain.INDETERMINATE,
		}, nil
	}
	return k.AssessPair(timeline, timeline.Len()-2, timeline.Len()-1)
}

// AssessPair computes the growth assessment between two observations of the
// timeline selected by index, with referenceIdx strictly before currentIdx.
//
// PercentChange is volume-based when both observations carry a directly
// measured volume, diameter-based otherwise; the sphere-derived volume is
// used only for the doubling-time model. The interval check is defensive:
// the ledger's monotonicity invariant makes a non-positive interval
// unreachable, so hitting INVALID_INTERVAL signals an invariant violation
// elsewhere.
func (k *KineticsCalculator) AssessPair(timeline *domain.LesionTimeline, referenceIdx, currentIdx int) (*domain.GrowthAssessment, error) {
	if referenceIdx < 0 || currentIdx >= timeline.Len() || referenceIdx >= currentIdx {
		return nil, domain.NewValidationError("indices", "reference index must precede current index within the timeline",
			[2]int{referenceIdx, currentIdx})
	}

	reference := timeline.Observations[referenceIdx]
	current := timeline.Observations[currentIdx]

	intervalDays := int(current.Timestamp.Sub(reference.Timestamp).Hours() / 24)
	if intervalDays <= 0 {
		return nil, domain.NewTrackingError(domain.ErrInvalidInterval, timeline.LesionRef,
			"non-positive interval of %d days between observations; ledger monotonicity invariant violated", intervalDays)
	}

	refVolume, refDirect := reference.EffectiveVolumeMM3()
	curVolume, curDirect := current.EffectiveVolumeMM3()

	kinetics := &domain.GrowthKinetics{
		ReferenceDate:       reference.Timestamp,
		CurrentDate:         current.Timestamp,
		IntervalDays:        intervalDays,
		ReferenceVolumeMM3:  refVolume,
		CurrentVolumeMM3:    curVolume,
		VolumeDerived:       !(refDirect && curDirect),
		VolumePercentChange: (curVolume - refVolume) / refVolume,
		ReferenceDiameterMM: reference.DiameterMM,
		CurrentDiameterMM:   current.DiameterMM,
	}

	if refDirect && curDirect {
		kinetics.Basis = domain.VOLUME_BASIS
		kinetics.AbsoluteChange = curVolume - refVolume
		kinetics.PercentChange = (curVolume - refVolume) / refVolume
	} else {
		refDiameter := reference.EquivalentDiameterMM()
		curDiameter := current.EquivalentDiameterMM()
		kinetics.Basis = domain.DIAMETER_BASIS
		kinetics.AbsoluteChange = curDiameter - refDiameter
		kinetics.PercentChange = (curDiameter - refDiameter) / refDiameter
	}

	trend := domain.STABLE
	switch {
	case math.Abs(kinetics.PercentChange) < k.stabilityThreshold:
		trend = domain.STABLE
	case kinetics.PercentChange > 0:
		trend = domain.GROWING
	default:
		trend = domain.SHRINKING
	}

	// VDT = interval * ln2 / ln(V1/V0), reported as a positive doubling time
	// when growing and a positive halving time when shrinking. Undefined when
	// stable; the trend field, not the sign, disambiguates.
	if trend != domain.STABLE && curVolume != refVolume {
		vdt := math.Abs(float64(intervalDays) * math.Ln2 / math.Log(curVolume/refVolume))
		kinetics.VolumeDoublingTimeDays = &vdt
	}

	assessment := &domain.GrowthAssessment{
		LesionRef: timeline.LesionRef,
		Trend:     trend,
		Kinetics:  kinetics,
	}

	k.logger.WithFields(logrus.Fields{
		"lesion_ref":     timeline.LesionRef,
		"trend":          trend.String(),
		"interval_days":  intervalDays,
		"percent_change": kinetics.PercentChange,
		"basis":          kinetics.Basis.String(),
	}).Debug("Growth assessment computed")

	return assessment, nil
}
