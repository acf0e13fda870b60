package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// CorrespondenceResolver decides whether a new observation extends an
// existing lesion timeline or opens a new one. Correspondence is either
// pre-resolved by the caller (observation carries a lesion_ref) or resolved
// by a deterministic metadata rule: same anatomic region label and same
// modality. Image-based registration is out of scope.
type CorrespondenceResolver struct {
	logger *logrus.Logger
}

// Resolution is the outcome of correspondence resolution.
type Resolution struct {
	LesionRef   string `json:"lesion_ref"`
	NewTimeline bool   `json:"new_timeline"`
	MatchedBy   string `json:"matched_by"` // "explicit_ref", "region_modality", "new"
}

// NewCorrespondenceResolver creates a new resolver
func NewCorrespondenceResolver(logger *logrus.Logger) *CorrespondenceResolver {
	return &CorrespondenceResolver{logger: logger}
}

// Resolve maps an observation onto a lesion reference given the existing
// timelines for the patient. It has no side effects; the ledger performs the
// actual append.
//
// When more than one timeline matches the metadata rule the resolver fails
// with AMBIGUOUS_CORRESPONDENCE rather than guessing; the caller retries with
// an explicit lesion_ref or richer metadata.
func (r *CorrespondenceResolver) Resolve(obs domain.Observation, timelines []*domain.LesionTimeline) (*Resolution, error) {
	if obs.LesionRef != "" {
		known := false
		for _, t := range timelines {
			if t.LesionRef == obs.LesionRef {
				known = true
				break
			}
		}
		return &Resolution{
			LesionRef:   obs.LesionRef,
			NewTimeline: !known,
			MatchedBy:   "explicit_ref",
		}, nil
	}

	var matches []string
	if obs.Region != "" {
		for _, t := range timelines {
			current := t.Current()
			if strings.EqualFold(current.Region, obs.Region) && current.Modality == obs.Modality {
				matches = append(matches, t.LesionRef)
			}
		}
	}

	switch len(matches) {
	case 0:
		ref := uuid.NewString()
		r.logger.WithFields(logrus.Fields{
			"lesion_ref": ref,
			"region":     obs.Region,
			"modality":   obs.Modality,
		}).Info("No corresponding timeline, opening new lesion")
		return &Resolution{LesionRef: ref, NewTimeline: true, MatchedBy: "new"}, nil
	case 1:
		r.logger.WithFields(logrus.Fields{
			"lesion_ref": matches[0],
			"region":     obs.Region,
			"modality":   obs.Modality,
		}).Debug("Observation matched existing timeline by metadata")
		return &Resolution{LesionRef: matches[0], NewTimeline: false, MatchedBy: "region_modality"}, nil
	default:
		return nil, domain.NewTrackingError(domain.ErrAmbiguousCorrespondence, "",
			"%d timelines match region %q with modality %s; supply an explicit lesion_ref",
			len(matches), obs.Region, obs.Modality)
	}
}
