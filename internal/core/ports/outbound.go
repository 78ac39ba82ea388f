package ports

import (
	"context"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

// DirectorySearch is the third-party places directory. Implementations must
// report "no results" as success with an empty list; any non-success status
// surfaces as an error distinct from empty.
type DirectorySearch interface {
	SearchNearby(ctx context.Context, coord domain.Coordinate, radiusMeters float64, categoryTag string) ([]domain.BusinessCandidate, error)
	GetDetails(ctx context.Context, id string) (*domain.BusinessCandidate, error)
	TextSearch(ctx context.Context, query string, coord *domain.Coordinate) ([]domain.BusinessCandidate, error)
}

// SensorGateway bridges the device's location sensor. ReadFingerprint is
// best-effort: an empty fingerprint with a nil error is a valid outcome.
type SensorGateway interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentFix(ctx context.Context) (*domain.Position, error)
	ReadFingerprint(ctx context.Context) (string, error)
}

// KeyValueStore is the durable store backing both cache tiers. Get returns
// (nil, nil) on a missing key; no cross-key transactional guarantees.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RecordStore supplies historical maintenance records.
type RecordStore interface {
	Create(ctx context.Context, record *domain.MaintenanceRecord) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceRecord, error)
	ListAll(ctx context.Context) ([]domain.MaintenanceRecord, error)
	SaveMatch(ctx context.Context, recordID, locationID string) error
}

// EventQueue publishes engine events and feeds the worker.
type EventQueue interface {
	PublishDetectionResolved(ctx context.Context, detection domain.DetectionContext) error
	PublishRecordIngested(ctx context.Context, recordID string) error
	SubscribeRecordIngested(ctx context.Context, handler func(context.Context, string) error) error
}
