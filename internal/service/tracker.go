package service

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/domain"
	"github.com/lesion-track-server/internal/repository"
)

// TrackerConfig carries the externally configured tables and thresholds the
// pipeline runs with. All clinical numbers live here, never in code.
type TrackerConfig struct {
	StabilityThreshold float64
	Guideline          domain.GuidelineTable
	Priors             []domain.HypothesisPrior
	Likelihood         domain.LikelihoodTable
	ReportCacheSize    int
}

// TrackerService orchestrates the full pipeline for each new observation:
// resolve correspondence, append to the ledger, recompute growth kinetics,
// reclassify risk, update the differential, render the comparison report.
// Every downstream stage is a pure function of the ledger snapshot.
//
// Ingests are serialized by a single mutex: appends are not commutative and
// differential updates depend on the full ordered history.
type TrackerService struct {
	logger       *logrus.Logger
	ledger       *Ledger
	resolver     *CorrespondenceResolver
	kinetics     *KineticsCalculator
	classifier   *RiskClassifier
	differential *DifferentialTracker
	assembler    *ReportAssembler
	store        repository.Store

	mu            sync.Mutex
	differentials map[string]*domain.DifferentialState
	reports       *lru.Cache[string, *domain.ComparisonReport]
}

// IngestResult bundles everything derived from one accepted observation.
type IngestResult struct {
	Resolution   *Resolution               `json:"resolution"`
	Timeline     *domain.LesionTimeline    `json:"timeline"`
	Assessment   *domain.GrowthAssessment  `json:"assessment"`
	Risk         domain.RiskClassification `json:"risk"`
	Differential *domain.DifferentialState `json:"differential"`
	Report       *domain.ComparisonReport  `json:"report"`
}

// AssessmentBundle is the structured (non-prose) view of a lesion's state.
type AssessmentBundle struct {
	Assessment   *domain.GrowthAssessment  `json:"assessment"`
	Risk         domain.RiskClassification `json:"risk"`
	Differential *domain.DifferentialState `json:"differential"`
}

// NewTrackerService creates the pipeline with its configured tables. The
// store is optional; pass nil for in-memory operation.
func NewTrackerService(logger *logrus.Logger, cfg TrackerConfig, store repository.Store) (*TrackerService, error) {
	cacheSize := cfg.ReportCacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	reports, err := lru.New[string, *domain.ComparisonReport](cacheSize)
	if err != nil {
		return nil, err
	}

	return &TrackerService{
		logger:        logger,
		ledger:        NewLedger(logger),
		resolver:      NewCorrespondenceResolver(logger),
		kinetics:      NewKineticsCalculator(logger, cfg.StabilityThreshold),
		classifier:    NewRiskClassifier(logger, cfg.Guideline),
		differential:  NewDifferentialTracker(logger, cfg.Priors, cfg.Likelihood),
		assembler:     NewReportAssembler(logger),
		store:         store,
		differentials: make(map[string]*domain.DifferentialState),
		reports:       reports,
	}, nil
}

// Ingest runs one observation through the whole pipeline. Ingestion-time
// errors are returned synchronously and block the append; the ledger is
// never left partially updated.
func (s *TrackerService) Ingest(ctx context.Context, obs domain.Observation) (*IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolution, err := s.resolver.Resolve(obs, s.ledger.Timelines())
	if err != nil {
		return nil, err
	}
	obs.LesionRef = resolution.LesionRef

	timeline, err := s.ledger.Append(obs)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.SaveObservation(ctx, timeline.Current()); err != nil {
			// Durability is best-effort write-through; in-memory state is
			// authoritative for this process.
			s.logger.WithError(err).WithField("lesion_ref", obs.LesionRef).
				Warn("Failed to persist accepted observation")
		}
	}

	assessment, err := s.kinetics.Assess(timeline)
	if err != nil {
		return nil, err
	}
	interval, err := s.kinetics.AssessPrior(timeline)
	if err != nil {
		return nil, err
	}

	risk := s.classifyWithPrior(timeline, assessment)

	state, err := s.advanceDifferential(timeline, interval)
	if err != nil {
		return nil, err
	}
	s.differentials[timeline.LesionRef] = state

	report := s.assembler.Render(timeline, assessment, interval, risk, state.Hypotheses)
	s.reports.Add(timeline.LesionRef, report)

	s.logger.WithFields(logrus.Fields{
		"lesion_ref":   timeline.LesionRef,
		"observations": timeline.Len(),
		"trend":        assessment.Trend.String(),
		"category":     risk.Category,
		"risk_level":   risk.RiskLevel.String(),
	}).Info("Observation ingested")

	return &IngestResult{
		Resolution:   resolution,
		Timeline:     timeline,
		Assessment:   assessment,
		Risk:         risk,
		Differential: state.Clone(),
		Report:       report,
	}, nil
}

// classifyWithPrior classifies the current observation and, when a prior
// exists, also classifies the baseline on its own (trend indeterminate, no
// kinetics) to report the category transition.
func (s *TrackerService) classifyWithPrior(timeline *domain.LesionTimeline, assessment *domain.GrowthAssessment) domain.RiskClassification {
	risk := s.classifier.Classify(timeline.Current(), assessment)
	if timeline.Len() >= 2 {
		baselineAssessment := &domain.GrowthAssessment{
			LesionRef: timeline.LesionRef,
			Trend:     domain.INDETERMINATE,
		}
		prior := s.classifier.Classify(timeline.Baseline(), baselineAssessment)
		risk.PriorCategory = prior.Category
	}
	return risk
}

// advanceDifferential produces the post-append differential state. Each
// update conditions on the change since the previous visit, not since
// baseline: baseline-relative evidence would re-apply the same growth factor
// on every visit with no new information, and an interval regression after
// earlier growth would still read as growth. A missing in-memory state
// (process restart with a persisted ledger) is rebuilt by deterministic
// replay of the consecutive visit pairs.
func (s *TrackerService) advanceDifferential(timeline *domain.LesionTimeline, interval *domain.GrowthAssessment) (*domain.DifferentialState, error) {
	if timeline.Len() == 1 {
		return s.differential.Init(timeline.LesionRef, timeline.Baseline().Timestamp), nil
	}

	prev, ok := s.differentials[timeline.LesionRef]
	if !ok {
		// Replay everything up to, but not including, the current
		// observation; the caller applies the final update below.
		rebuilt, err := s.replayDifferential(timeline, timeline.Len()-1)
		if err != nil {
			return nil, err
		}
		prev = rebuilt
	}

	current := timeline.Current()
	return s.differential.Update(prev, interval, current.Density, current.Timestamp)
}

// replayDifferential rebuilds the differential state over the first n
// observations of the timeline, one consecutive visit pair at a time.
func (s *TrackerService) replayDifferential(timeline *domain.LesionTimeline, n int) (*domain.DifferentialState, error) {
	state := s.differential.Init(timeline.LesionRef, timeline.Baseline().Timestamp)
	for i := 1; i < n; i++ {
		assessment, err := s.kinetics.AssessPair(timeline, i-1, i)
		if err != nil {
			return nil, err
		}
		obs := timeline.Observations[i]
		state, err = s.differential.Update(state, assessment, obs.Density, obs.Timestamp)
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Restore rebuilds ledger and differential state from the configured store.
// Called once at startup before serving traffic.
func (s *TrackerService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	timelines, err := s.store.LoadTimelines(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timeline := range timelines {
		if err := s.ledger.Restore(timeline); err != nil {
			return err
		}
		state, err := s.replayDifferential(timeline, timeline.Len())
		if err != nil {
			return err
		}
		s.differentials[timeline.LesionRef] = state
	}

	s.logger.WithField("timelines", len(timelines)).Info("Restored ledger from store")
	return nil
}

// Refs returns all tracked lesion references
func (s *TrackerService) Refs() []string {
	return s.ledger.Refs()
}

// History returns the ordered observations for a lesion
func (s *TrackerService) History(lesionRef string) ([]domain.Observation, error) {
	return s.ledger.History(lesionRef)
}

// Assessment returns the structured derived state for a lesion, recomputed
// from the current ledger snapshot.
func (s *TrackerService) Assessment(lesionRef string) (*AssessmentBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeline, err := s.ledger.Timeline(lesionRef)
	if err != nil {
		return nil, err
	}
	assessment, err := s.kinetics.Assess(timeline)
	if err != nil {
		return nil, err
	}
	risk := s.classifyWithPrior(timeline, assessment)

	state, ok := s.differentials[lesionRef]
	if !ok {
		state, err = s.replayDifferential(timeline, timeline.Len())
		if err != nil {
			return nil, err
		}
		s.differentials[lesionRef] = state
	}

	return &AssessmentBundle{
		Assessment:   assessment,
		Risk:         risk,
		Differential: state.Clone(),
	}, nil
}

// AssessAgainst computes the growth assessment between two observations of
// a lesion's timeline selected by index, supporting "compared to six months
// ago" framing alongside the default baseline comparison.
func (s *TrackerService) AssessAgainst(lesionRef string, referenceIdx, currentIdx int) (*domain.GrowthAssessment, error) {
	timeline, err := s.ledger.Timeline(lesionRef)
	if err != nil {
		return nil, err
	}
	return s.kinetics.AssessPair(timeline, referenceIdx, currentIdx)
}

// Report returns the comparison report for a lesion, served from the cache
// when the timeline has not changed and re-rendered otherwise. Rendering is
// deterministic, so a cache miss never changes the bytes produced.
func (s *TrackerService) Report(lesionRef string) (*domain.ComparisonReport, error) {
	if report, ok := s.reports.Get(lesionRef); ok {
		return report, nil
	}

	bundle, err := s.Assessment(lesionRef)
	if err != nil {
		return nil, err
	}
	timeline, err := s.ledger.Timeline(lesionRef)
	if err != nil {
		return nil, err
	}
	interval, err := s.kinetics.AssessPrior(timeline)
	if err != nil {
		return nil, err
	}

	report := s.assembler.Render(timeline, bundle.Assessment, interval, bundle.Risk, bundle.Differential.Hypotheses)
	s.reports.Add(lesionRef, report)
	return report, nil
}
