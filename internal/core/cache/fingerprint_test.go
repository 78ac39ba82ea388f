package cache

import (
	"context"
	"testing"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

func TestFingerprintRoundTripAndExpiry(t *testing.T) {
	kv := newKVFake()
	c := NewFingerprintCache(kv)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	business := domain.BusinessCandidate{ID: "b1", Name: "Corner Cafe", BusinessType: domain.TypeCafe}
	if err := c.Store(context.Background(), "fp-1", business, 0.9); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	c.now = func() time.Time { return base.Add(domain.FingerprintMaxAge - time.Hour) }
	entry, err := c.Lookup(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil || entry.BusinessID != "b1" {
		t.Fatalf("expected entry before expiry, got %+v", entry)
	}
	if entry.UseCount != 1 {
		t.Fatalf("fresh entry must start at use-count 1, got %d", entry.UseCount)
	}

	c.now = func() time.Time { return base.Add(domain.FingerprintMaxAge + time.Hour) }
	expired, err := c.Lookup(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if expired != nil {
		t.Fatalf("expected nil after 30 days, got %+v", expired)
	}
}

func TestFingerprintStoreReplacesWholesale(t *testing.T) {
	c := NewFingerprintCache(newKVFake())

	first := domain.BusinessCandidate{ID: "b1", Name: "Old Venue"}
	if err := c.Store(context.Background(), "fp-1", first, 0.6); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Touch(context.Background(), "fp-1"); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}
	}

	second := domain.BusinessCandidate{ID: "b2", Name: "New Venue"}
	if err := c.Store(context.Background(), "fp-1", second, 0.9); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entry, err := c.Lookup(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry.BusinessID != "b2" {
		t.Fatalf("expected replacement business, got %s", entry.BusinessID)
	}
	if entry.UseCount != 1 {
		t.Fatalf("replace must not merge use-count, got %d", entry.UseCount)
	}
}

func TestFingerprintTouchIncrementsAndRefreshes(t *testing.T) {
	c := NewFingerprintCache(newKVFake())

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	if err := c.Store(context.Background(), "fp-1", domain.BusinessCandidate{ID: "b1"}, 0.9); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	later := base.Add(48 * time.Hour)
	c.now = func() time.Time { return later }
	if err := c.Touch(context.Background(), "fp-1"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	entry, err := c.Lookup(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry.UseCount != 2 {
		t.Fatalf("expected use-count 2, got %d", entry.UseCount)
	}
	if !entry.LastUsed.Equal(later) {
		t.Fatalf("expected last-used refreshed to %v, got %v", later, entry.LastUsed)
	}

	// Touching an unknown fingerprint is a no-op.
	if err := c.Touch(context.Background(), "fp-unknown"); err != nil {
		t.Fatalf("Touch() unknown error = %v", err)
	}
}

func TestFingerprintLoadPurgesStaleEntriesAndPersists(t *testing.T) {
	kv := newKVFake()
	writer := NewFingerprintCache(kv)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writer.now = func() time.Time { return base }
	if err := writer.Store(context.Background(), "fp-old", domain.BusinessCandidate{ID: "b1"}, 0.5); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	writer.now = func() time.Time { return base.Add(20 * 24 * time.Hour) }
	if err := writer.Store(context.Background(), "fp-fresh", domain.BusinessCandidate{ID: "b2"}, 0.5); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	reader := NewFingerprintCache(kv)
	reader.now = func() time.Time { return base.Add(35 * 24 * time.Hour) }
	setsBefore := kv.sets
	if err := reader.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if kv.sets != setsBefore+1 {
		t.Fatalf("expected pruned set persisted immediately")
	}

	if entry, _ := reader.Lookup(context.Background(), "fp-old"); entry != nil {
		t.Fatalf("expected stale entry purged, got %+v", entry)
	}
	entry, err := reader.Lookup(context.Background(), "fp-fresh")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if entry == nil || entry.BusinessID != "b2" {
		t.Fatalf("expected fresh entry retained, got %+v", entry)
	}
}

func TestFingerprintEmptyKeyIsNoop(t *testing.T) {
	kv := newKVFake()
	c := NewFingerprintCache(kv)
	if err := c.Store(context.Background(), "", domain.BusinessCandidate{ID: "b1"}, 0.9); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if kv.sets != 0 {
		t.Fatalf("empty fingerprint must not persist anything")
	}
	entry, err := c.Lookup(context.Background(), "")
	if err != nil || entry != nil {
		t.Fatalf("expected nil, nil for empty fingerprint, got %+v, %v", entry, err)
	}
}
