package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

func TestBuildCatalogOneEntryPerDistinctName(t *testing.T) {
	coord := &domain.Coordinate{Lat: 1, Lon: 2}
	records := []domain.MaintenanceRecord{
		{ID: "r1", BusinessID: "b1", BusinessName: "Harbor Grill", BusinessType: domain.TypeRestaurant, CreatedAt: time.Now()},
		{ID: "r2", BusinessName: "harbor grill", Coordinate: coord},
		{ID: "r3", BusinessName: "Main Street Pharmacy"},
		{ID: "r4", BusinessName: ""},
	}

	catalog := BuildCatalog(records)
	if len(catalog) != 2 {
		t.Fatalf("expected 2 catalog entries, got %d", len(catalog))
	}

	// Sorted by name: Harbor Grill first.
	grill := catalog[0]
	if grill.ID != "b1" || grill.RecordCount != 2 {
		t.Fatalf("expected first-seen id and merged count, got %+v", grill)
	}
	if grill.Coordinate == nil || grill.Coordinate.Lat != 1 {
		t.Fatalf("expected coordinate backfilled from later record, got %+v", grill.Coordinate)
	}

	pharmacy := catalog[1]
	if pharmacy.BusinessType != domain.TypePharmacy {
		t.Fatalf("expected type classified from name, got %s", pharmacy.BusinessType)
	}
	if pharmacy.ID != "name:main street pharmacy" {
		t.Fatalf("expected synthesized id for id-less records, got %s", pharmacy.ID)
	}
}

func TestCatalogBuilderCachesUntilRebuild(t *testing.T) {
	store := &recordStoreFake{records: []domain.MaintenanceRecord{
		{ID: "r1", BusinessName: "Venue One"},
	}}
	builder := NewCatalogBuilder(store, nil)

	first, err := builder.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(first))
	}

	store.records = append(store.records, domain.MaintenanceRecord{ID: "r2", BusinessName: "Venue Two"})
	cached, err := builder.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("expected cached catalog until rebuild, got %d entries", len(cached))
	}

	rebuilt, err := builder.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(rebuilt) != 2 {
		t.Fatalf("expected 2 entries after rebuild, got %d", len(rebuilt))
	}
}

func TestCatalogBuilderEnrichesDirectoryEntries(t *testing.T) {
	store := &recordStoreFake{records: []domain.MaintenanceRecord{
		{ID: "r1", BusinessID: "ChIJgrill", BusinessName: "Harbor Grill"},
		{ID: "r2", BusinessID: "local-1", BusinessName: "Corner Kiosk"},
	}}
	places := &placeResolverFake{details: map[string]domain.PlaceDetail{
		"ChIJgrill": {
			ID:         "ChIJgrill",
			Address:    "12 Harbor Rd",
			Coordinate: domain.Coordinate{Lat: 40.7, Lon: -74.0},
		},
	}}
	builder := NewCatalogBuilder(store, places)

	catalog, err := builder.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(catalog))
	}

	// Sorted by name: Corner Kiosk first, Harbor Grill second.
	kiosk, grill := catalog[0], catalog[1]
	if kiosk.Address != "" {
		t.Fatalf("non-directory entry must stay unenriched, got address %q", kiosk.Address)
	}
	if grill.Address != "12 Harbor Rd" {
		t.Fatalf("expected address from place detail, got %q", grill.Address)
	}
	if grill.Coordinate == nil || grill.Coordinate.Lat != 40.7 {
		t.Fatalf("expected coordinate backfilled from place detail, got %+v", grill.Coordinate)
	}
	if places.calls != 1 {
		t.Fatalf("expected one detail lookup, got %d", places.calls)
	}
}

func TestCatalogBuilderPropagatesScanError(t *testing.T) {
	builder := NewCatalogBuilder(&recordStoreFake{listErr: errors.New("db down")}, nil)
	if _, err := builder.Rebuild(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
