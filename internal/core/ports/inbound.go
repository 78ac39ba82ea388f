package ports

import (
	"context"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

// BusinessDetector is the inbound contract for on-demand location detection.
type BusinessDetector interface {
	DetectCurrentBusiness(ctx context.Context) (*domain.DetectionContext, error)
}

// PlaceResolver resolves place metadata through the detail cache.
// Invalidate evicts a stale entry so the next Resolve refetches.
type PlaceResolver interface {
	Resolve(ctx context.Context, id string) (*domain.PlaceDetail, error)
	ResolveBatch(ctx context.Context, ids []string) (map[string]domain.PlaceDetail, error)
	Invalidate(ctx context.Context, id string) error
}

// RecordMatcher associates one historical record with at most one catalog
// location. A nil location with a nil error means unmatched.
type RecordMatcher interface {
	MatchRecordToLocation(ctx context.Context, record domain.MaintenanceRecord, catalog []domain.Location) (*domain.Location, error)
}

// CatalogService builds and reads the location catalog.
type CatalogService interface {
	Catalog(ctx context.Context) ([]domain.Location, error)
	Rebuild(ctx context.Context) ([]domain.Location, error)
}
