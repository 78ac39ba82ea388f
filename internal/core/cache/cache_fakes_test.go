package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

type kvFake struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newKVFake() *kvFake {
	return &kvFake{data: make(map[string][]byte)}
}

func (f *kvFake) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (f *kvFake) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
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

type directoryFake struct {
	mu      sync.Mutex
	details map[string]domain.BusinessCandidate
	fetches []string
	failIDs map[string]bool
}

func newDirectoryFake() *directoryFake {
	return &directoryFake{
		details: make(map[string]domain.BusinessCandidate),
		failIDs: make(map[string]bool),
	}
}

func (f *directoryFake) SearchNearby(context.Context, domain.Coordinate, float64, string) ([]domain.BusinessCandidate, error) {
	return nil, nil
}

func (f *directoryFake) TextSearch(context.Context, string, *domain.Coordinate) ([]domain.BusinessCandidate, error) {
	return nil, nil
}

func (f *directoryFake) GetDetails(_ context.Context, id string) (*domain.BusinessCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, id)
	if f.failIDs[id] {
		return nil, errors.New("directory unavailable")
	}
	candidate, ok := f.details[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "get details", errors.New(id))
	}
	return &candidate, nil
}

func (f *directoryFake) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}
