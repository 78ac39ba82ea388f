package domain

import "time"

// FingerprintMaxAge bounds how long a fingerprint cache entry stays usable
// without being touched.
const FingerprintMaxAge = 30 * 24 * time.Hour

// FingerprintEntry maps an opaque local-network fingerprint to the last
// business resolved at it. Advisory only: a hit never bypasses live
// aggregation.
type FingerprintEntry struct {
	Fingerprint  string       `json:"fingerprint"`
	BusinessID   string       `json:"business_id"`
	BusinessName string       `json:"business_name"`
	BusinessType BusinessType `json:"business_type"`
	Confidence   float64      `json:"confidence"`
	LastUsed     time.Time    `json:"last_used"`
	UseCount     int          `json:"use_count"`
}

func (e FingerprintEntry) Expired(now time.Time) bool {
	return now.Sub(e.LastUsed) > FingerprintMaxAge
}
