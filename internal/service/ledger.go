package service

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
)

// Ledger is the append-only store of per-lesion observation timelines. It is
// the sole owner of timeline state; every timeline it hands out is a deep
// copy. Appends are atomic: an observation is either accepted in full or the
// ledger is left unchanged.
type Ledger struct {
	logger    *logrus.Logger
	mu        sync.RWMutex
	timelines map[string]*domain.LesionTimeline
}

// NewLedger creates an empty measurement ledger
func NewLedger(logger *logrus.Logger) *Ledger {
	return &Ledger{
		logger:    logger,
		timelines: make(map[string]*domain.LesionTimeline),
	}
}

// Append validates and appends an observation to the timeline identified by
// its LesionRef, opening a new timeline when none exists. It returns the
// updated timeline as an immutable snapshot.
//
// Rejections, all of which leave the ledger untouched:
//   - field-level problems (ValidationError)
//   - neither diameter nor volume present (INCOMPLETE_MEASUREMENT)
//   - timestamp not strictly after the timeline's latest (NON_MONOTONIC_TIME);
//     duplicate timestamps fall under the same rule
func (l *Ledger) Append(obs domain.Observation) (*domain.LesionTimeline, error) {
	if obs.LesionRef == "" {
		return nil, domain.NewValidationError("lesion_ref", "lesion_ref is required for append", obs.LesionRef)
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timeline, exists := l.timelines[obs.LesionRef]
	if exists && !obs.Timestamp.After(timeline.LatestTimestamp()) {
		return nil, domain.NewTrackingError(domain.ErrNonMonotonicTime, obs.LesionRef,
			"observation at %s does not strictly follow latest observation at %s",
			obs.Timestamp.Format("2006-01-02"), timeline.LatestTimestamp().Format("2006-01-02"))
	}

	if !exists {
		timeline = &domain.LesionTimeline{LesionRef: obs.LesionRef}
		l.timelines[obs.LesionRef] = timeline
	}
	timeline.Observations = append(timeline.Observations, obs)

	l.logger.WithFields(logrus.Fields{
		"lesion_ref":   obs.LesionRef,
		"timestamp":    obs.Timestamp.Format("2006-01-02"),
		"observations": timeline.Len(),
		"new_timeline": !exists,
	}).Info("Observation appended to ledger")

	return timeline.Clone(), nil
}

// Timeline returns a snapshot of the timeline for a lesion reference
func (l *Ledger) Timeline(lesionRef string) (*domain.LesionTimeline, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	timeline, ok := l.timelines[lesionRef]
	if !ok {
		return nil, domain.NewTrackingError(domain.ErrLesionNotFound, lesionRef, "no timeline for lesion")
	}
	return timeline.Clone(), nil
}

// History returns the ordered observations for a lesion reference
func (l *Ledger) History(lesionRef string) ([]domain.Observation, error) {
	timeline, err := l.Timeline(lesionRef)
	if err != nil {
		return nil, err
	}
	return timeline.Observations, nil
}

// Timelines returns snapshots of all timelines, ordered by lesion reference
func (l *Ledger) Timelines() []*domain.LesionTimeline {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.LesionTimeline, 0, len(l.timelines))
	for _, t := range l.timelines {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LesionRef < out[j].LesionRef })
	return out
}

// Refs returns all tracked lesion references in sorted order
func (l *Ledger) Refs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	refs := make([]string, 0, len(l.timelines))
	for ref := range l.timelines {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Has reports whether a timeline exists for the lesion reference
func (l *Ledger) Has(lesionRef string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.timelines[lesionRef]
	return ok
}

// Restore loads a previously persisted timeline into the ledger, replacing
// any in-memory timeline with the same reference. Used at startup by callers
// that persist observations through a repository store.
func (l *Ledger) Restore(timeline *domain.LesionTimeline) error {
	if timeline == nil || timeline.Len() == 0 {
		return domain.NewValidationError("timeline", "timeline must hold at least one observation", timeline)
	}
	for i := 1; i < timeline.Len(); i++ {
		if !timeline.Observations[i].Timestamp.After(timeline.Observations[i-1].Timestamp) {
			return domain.NewTrackingError(domain.ErrNonMonotonicTime, timeline.LesionRef,
				"persisted timeline is not strictly ordered at index %d", i)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.timelines[timeline.LesionRef] = timeline.Clone()
	return nil
}
