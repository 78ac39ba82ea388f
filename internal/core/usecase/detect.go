package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fieldsight/location-engine/internal/core/cache"
	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

// DetectionObserver receives engine-level signals for metrics. All methods
// must be safe for concurrent use; a nil observer disables observation.
type DetectionObserver interface {
	DetectionCompleted(outcome string, tier domain.ConfidenceTier)
	FingerprintFastPathHit()
	CategoryQueryFailed(category string)
	MatchResolved(strategy string)
}

const (
	defaultPermissionTimeout = 10 * time.Second
	defaultFreshnessWindow   = 5 * time.Second
	defaultSearchRadius      = 2000.0
)

type detectionState string

const (
	stateIdle      detectionState = "idle"
	stateDetecting detectionState = "detecting"
	stateResolved  detectionState = "resolved"
	stateFailed    detectionState = "failed"
)

// DetectionOrchestrator drives a full detection pass: fingerprint read,
// permission, sensor fix, category aggregation, scoring and the fingerprint
// cache write. Concurrent callers share one in-flight detection; a context
// resolved within the freshness window absorbs rapid repeat calls.
type DetectionOrchestrator struct {
	sensor       ports.SensorGateway
	aggregator   *CategoryAggregator
	fingerprints *cache.FingerprintCache
	queue        ports.EventQueue
	observer     DetectionObserver

	searchRadiusMeters float64
	permissionTimeout  time.Duration
	freshnessWindow    time.Duration

	flight singleflight.Group

	mu          sync.Mutex
	state       detectionState
	lastContext *domain.DetectionContext
	lastAt      time.Time

	now func() time.Time
}

type OrchestratorOptions struct {
	SearchRadiusMeters float64
	PermissionTimeout  time.Duration
	FreshnessWindow    time.Duration
}

func NewDetectionOrchestrator(
	sensor ports.SensorGateway,
	aggregator *CategoryAggregator,
	fingerprints *cache.FingerprintCache,
	queue ports.EventQueue,
	observer DetectionObserver,
	options OrchestratorOptions,
) *DetectionOrchestrator {
	if options.SearchRadiusMeters <= 0 {
		options.SearchRadiusMeters = defaultSearchRadius
	}
	if options.PermissionTimeout <= 0 {
		options.PermissionTimeout = defaultPermissionTimeout
	}
	if options.FreshnessWindow <= 0 {
		options.FreshnessWindow = defaultFreshnessWindow
	}
	return &DetectionOrchestrator{
		sensor:             sensor,
		aggregator:         aggregator,
		fingerprints:       fingerprints,
		queue:              queue,
		observer:           observer,
		searchRadiusMeters: options.SearchRadiusMeters,
		permissionTimeout:  options.PermissionTimeout,
		freshnessWindow:    options.FreshnessWindow,
		state:              stateIdle,
		now:                time.Now,
	}
}

// DetectCurrentBusiness runs one detection pass. Rapid repeat calls within
// the freshness window receive the last resolved context; callers arriving
// while a detection is in flight wait for that detection instead of starting
// a second one.
func (o *DetectionOrchestrator) DetectCurrentBusiness(ctx context.Context) (*domain.DetectionContext, error) {
	if echo := o.freshContext(); echo != nil {
		return echo, nil
	}

	value, err, _ := o.flight.Do("detect", func() (any, error) {
		return o.detect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.DetectionContext), nil
}

// freshContext returns the last resolved context while it is still inside
// the freshness window. The echo is in-memory only, never persisted.
func (o *DetectionOrchestrator) freshContext() *domain.DetectionContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastContext == nil {
		return nil
	}
	if o.now().Sub(o.lastAt) > o.freshnessWindow {
		return nil
	}
	return o.lastContext
}

func (o *DetectionOrchestrator) detect(ctx context.Context) (*domain.DetectionContext, error) {
	o.setState(stateDetecting)

	detection, err := o.runDetection(ctx)
	if err != nil {
		o.setState(stateFailed)
		if o.observer != nil {
			o.observer.DetectionCompleted(outcomeForError(err), domain.TierNone)
		}
		return nil, err
	}

	o.mu.Lock()
	o.state = stateResolved
	o.lastContext = detection
	o.lastAt = o.now()
	o.mu.Unlock()

	if o.observer != nil {
		o.observer.DetectionCompleted("resolved", detection.Tier)
	}
	if o.queue != nil {
		if err := o.queue.PublishDetectionResolved(ctx, *detection); err != nil {
			slog.Warn("detection_event_publish_failed", "error", err)
		}
	}
	return detection, nil
}

func (o *DetectionOrchestrator) runDetection(ctx context.Context) (*domain.DetectionContext, error) {
	// Fingerprint read is best-effort; absence is a valid non-error state.
	fingerprint, err := o.sensor.ReadFingerprint(ctx)
	if err != nil {
		slog.Debug("fingerprint_unavailable", "error", err)
		fingerprint = ""
	}

	if fingerprint != "" {
		// A hit is a fast-path signal only. Business directories change and
		// fingerprints collide across venues sharing infrastructure, so the
		// pass always re-aggregates live data.
		entry, lookupErr := o.fingerprints.Lookup(ctx, fingerprint)
		if lookupErr != nil {
			slog.Warn("fingerprint_lookup_failed", "error", lookupErr)
		} else if entry != nil {
			slog.Info("fingerprint_fastpath_hit",
				"business_id", entry.BusinessID,
				"confidence", entry.Confidence,
				"use_count", entry.UseCount,
			)
			if o.observer != nil {
				o.observer.FingerprintFastPathHit()
			}
			if touchErr := o.fingerprints.Touch(ctx, fingerprint); touchErr != nil {
				slog.Warn("fingerprint_touch_failed", "error", touchErr)
			}
		}
	}

	granted, err := o.requestPermission(ctx)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "detect", fmt.Errorf("sensor permission not granted"))
	}

	fix, err := o.sensor.CurrentFix(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSensorUnavailable, "detect", err)
	}

	candidates, err := o.aggregator.Aggregate(ctx, fix.Coordinate, o.searchRadiusMeters)
	if err != nil {
		if domain.IsKind(err, domain.ErrAggregationFailed) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrAggregationFailed, "detect", err)
	}

	suggested, tier := scoreCandidates(candidates, o.searchRadiusMeters)

	// Only high/medium-confidence resolutions earn a fingerprint entry; a
	// low-tier suggestion is too weak an association to replay on later
	// visits.
	if suggested != nil && fingerprint != "" && (tier == domain.TierHigh || tier == domain.TierMedium) {
		if storeErr := o.fingerprints.Store(ctx, fingerprint, *suggested, tier.Confidence()); storeErr != nil {
			slog.Warn("fingerprint_store_failed", "error", storeErr)
		}
	}

	return &domain.DetectionContext{
		Position:    *fix,
		Fingerprint: fingerprint,
		Candidates:  candidates,
		Suggested:   suggested,
		Tier:        tier,
		DetectedAt:  o.now(),
	}, nil
}

// requestPermission applies the hard permission timeout; expiry resolves as
// denied, not as a transport failure.
func (o *DetectionOrchestrator) requestPermission(ctx context.Context) (bool, error) {
	permCtx, cancel := context.WithTimeout(ctx, o.permissionTimeout)
	defer cancel()

	granted, err := o.sensor.RequestPermission(permCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, domain.WrapError(domain.ErrSensorUnavailable, "request permission", err)
	}
	return granted, nil
}

// scoreCandidates picks the suggested candidate: nearest restaurant if any
// restaurant exists within the search radius, else nearest of any type.
// Beyond the radius no suggestion is surfaced.
func scoreCandidates(candidates []domain.BusinessCandidate, radiusMeters float64) (*domain.BusinessCandidate, domain.ConfidenceTier) {
	var nearest, nearestRestaurant *domain.BusinessCandidate
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.DistanceMeters > radiusMeters {
			continue
		}
		if nearest == nil {
			nearest = candidate
		}
		if nearestRestaurant == nil && candidate.BusinessType == domain.TypeRestaurant {
			nearestRestaurant = candidate
		}
	}

	pick := nearest
	if nearestRestaurant != nil {
		pick = nearestRestaurant
	}
	if pick == nil {
		return nil, domain.TierNone
	}

	tier := domain.TierForDistance(pick.DistanceMeters, radiusMeters)
	if tier == domain.TierNone {
		return nil, domain.TierNone
	}
	suggestion := *pick
	return &suggestion, tier
}

func (o *DetectionOrchestrator) setState(state detectionState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func outcomeForError(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrPermissionDenied):
		return "permission_denied"
	case domain.IsKind(err, domain.ErrSensorUnavailable):
		return "sensor_unavailable"
	case domain.IsKind(err, domain.ErrAggregationFailed):
		return "aggregation_failed"
	default:
		return "error"
	}
}
