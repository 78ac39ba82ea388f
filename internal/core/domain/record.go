package domain

import "time"

// MaintenanceRecord is one historical report. BusinessID is the primary
// identifier written at detection time (may be a directory place id);
// LocationID is a secondary free-text identifier from legacy clients.
type MaintenanceRecord struct {
	ID           string       `json:"id"`
	BusinessID   string       `json:"business_id,omitempty"`
	LocationID   string       `json:"location_id,omitempty"`
	BusinessName string       `json:"business_name,omitempty"`
	BusinessType BusinessType `json:"business_type,omitempty"`
	Coordinate   *Coordinate  `json:"coordinate,omitempty"`
	Description  string       `json:"description,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Location is one catalog entry, derived from historical records. One entry
// exists per distinct resolved business name.
type Location struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	Coordinate   *Coordinate  `json:"coordinate,omitempty"`
	BusinessType BusinessType `json:"business_type"`
	RecordCount  int          `json:"record_count"`
}
