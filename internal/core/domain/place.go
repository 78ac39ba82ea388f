package domain

import "time"

// PlaceDetailTTL bounds how long resolved place metadata is served from
// cache. An older entry reads as a miss.
const PlaceDetailTTL = 24 * time.Hour

type PlaceDetail struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
	Address    string     `json:"address,omitempty"`
	CachedAt   time.Time  `json:"cached_at"`
}

func (d PlaceDetail) Expired(now time.Time) bool {
	return now.Sub(d.CachedAt) > PlaceDetailTTL
}
