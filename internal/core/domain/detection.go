package domain

import "time"

type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
	TierNone   ConfidenceTier = "none"
)

const (
	HighConfidenceRadiusMeters   = 150.0
	MediumConfidenceRadiusMeters = 500.0
)

// TierForDistance buckets a candidate distance against the search radius.
// Beyond the radius no suggestion is surfaced at all.
func TierForDistance(distanceMeters, searchRadiusMeters float64) ConfidenceTier {
	switch {
	case distanceMeters <= HighConfidenceRadiusMeters:
		return TierHigh
	case distanceMeters <= MediumConfidenceRadiusMeters:
		return TierMedium
	case distanceMeters <= searchRadiusMeters:
		return TierLow
	default:
		return TierNone
	}
}

// Confidence returns the numeric confidence stored alongside a fingerprint
// cache entry for a suggestion in this tier.
func (t ConfidenceTier) Confidence() float64 {
	switch t {
	case TierHigh:
		return 0.9
	case TierMedium:
		return 0.6
	case TierLow:
		return 0.3
	default:
		return 0
	}
}

// DetectionContext is the orchestrator's unit of output. It is immutable once
// returned; re-detection produces a new context.
type DetectionContext struct {
	Position    Position            `json:"position"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	Candidates  []BusinessCandidate `json:"candidates"`
	Suggested   *BusinessCandidate  `json:"suggested,omitempty"`
	Tier        ConfidenceTier      `json:"tier"`
	DetectedAt  time.Time           `json:"detected_at"`
}
