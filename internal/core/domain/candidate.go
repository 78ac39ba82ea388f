package domain

// BusinessCandidate is one business returned by directory search. The external
// ID is stable per real-world place and is the dedup key inside one
// aggregation result.
type BusinessCandidate struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Address        string       `json:"address,omitempty"`
	Coordinate     Coordinate   `json:"coordinate"`
	DistanceMeters float64      `json:"distance_meters"`
	BusinessType   BusinessType `json:"business_type"`
	Rating         float64      `json:"rating,omitempty"`
	PriceLevel     int          `json:"price_level,omitempty"`
	OpenNow        *bool        `json:"open_now,omitempty"`
}
