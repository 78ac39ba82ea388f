package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

type kvFake struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newKVFake() *kvFake {
	return &kvFake{data: make(map[string][]byte)}
}

func (f *kvFake) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (f *kvFake) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.data[key] = value
	return nil
}

func (f *kvFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *kvFake) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// searchFake serves per-category candidate lists keyed by category tag.
type searchFake struct {
	mu        sync.Mutex
	byTag     map[string][]domain.BusinessCandidate
	failTags  map[string]bool
	failAll   bool
	queries   int
	lastRadii []float64
}

func newSearchFake() *searchFake {
	return &searchFake{
		byTag:    make(map[string][]domain.BusinessCandidate),
		failTags: make(map[string]bool),
	}
}

func (f *searchFake) SearchNearby(_ context.Context, _ domain.Coordinate, radius float64, tag string) ([]domain.BusinessCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.lastRadii = append(f.lastRadii, radius)
	if f.failAll || f.failTags[tag] {
		return nil, errors.New("directory unreachable")
	}
	return f.byTag[tag], nil
}

func (f *searchFake) GetDetails(context.Context, string) (*domain.BusinessCandidate, error) {
	return nil, errors.New("not implemented")
}

func (f *searchFake) TextSearch(context.Context, string, *domain.Coordinate) ([]domain.BusinessCandidate, error) {
	return nil, nil
}

func (f *searchFake) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// sensorFake drives the orchestrator's permission and fix edges.
type sensorFake struct {
	mu          sync.Mutex
	fingerprint string
	fpErr       error

	granted        bool
	permissionErr  error
	blockOnPerm    bool
	permissionReqs int

	fix        *domain.Position
	fixErr     error
	fixBlocker chan struct{}
	fixReqs    int
}

func (f *sensorFake) ReadFingerprint(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fingerprint, f.fpErr
}

func (f *sensorFake) RequestPermission(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.permissionReqs++
	block := f.blockOnPerm
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.granted, f.permissionErr
}

func (f *sensorFake) CurrentFix(ctx context.Context) (*domain.Position, error) {
	f.mu.Lock()
	f.fixReqs++
	blocker := f.fixBlocker
	f.mu.Unlock()
	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fixErr != nil {
		return nil, f.fixErr
	}
	return f.fix, nil
}

func (f *sensorFake) fixCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixReqs
}

type recordStoreFake struct {
	records []domain.MaintenanceRecord
	listErr error
	matches map[string]string
}

func (f *recordStoreFake) Create(context.Context, *domain.MaintenanceRecord) error { return nil }

func (f *recordStoreFake) GetByID(_ context.Context, id string) (*domain.MaintenanceRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrRecordNotFound, "get record", errors.New(id))
}

func (f *recordStoreFake) ListAll(context.Context) ([]domain.MaintenanceRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *recordStoreFake) SaveMatch(_ context.Context, recordID, locationID string) error {
	if f.matches == nil {
		f.matches = make(map[string]string)
	}
	f.matches[recordID] = locationID
	return nil
}

type placeResolverFake struct {
	details     map[string]domain.PlaceDetail
	err         error
	calls       int
	invalidated []string
}

func (f *placeResolverFake) Resolve(_ context.Context, id string) (*domain.PlaceDetail, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	detail, ok := f.details[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "resolve", errors.New(id))
	}
	return &detail, nil
}

func (f *placeResolverFake) ResolveBatch(_ context.Context, ids []string) (map[string]domain.PlaceDetail, error) {
	out := make(map[string]domain.PlaceDetail)
	for _, id := range ids {
		if detail, ok := f.details[id]; ok {
			out[id] = detail
		}
	}
	return out, nil
}

func (f *placeResolverFake) Invalidate(_ context.Context, id string) error {
	f.invalidated = append(f.invalidated, id)
	delete(f.details, id)
	return nil
}
