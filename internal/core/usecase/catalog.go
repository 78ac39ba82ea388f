package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

// CatalogBuilder derives the location catalog from historical records: one
// entry per distinct resolved business name. Entries backed by a directory
// id borrow address and coordinates from the place detail cache.
type CatalogBuilder struct {
	records ports.RecordStore
	places  ports.PlaceResolver

	mu      sync.RWMutex
	catalog []domain.Location
}

func NewCatalogBuilder(records ports.RecordStore, places ports.PlaceResolver) *CatalogBuilder {
	return &CatalogBuilder{records: records, places: places}
}

// Catalog returns the last built catalog, building it on first use.
func (b *CatalogBuilder) Catalog(ctx context.Context) ([]domain.Location, error) {
	b.mu.RLock()
	catalog := b.catalog
	b.mu.RUnlock()
	if catalog != nil {
		return catalog, nil
	}
	return b.Rebuild(ctx)
}

// Rebuild scans all records and regenerates the catalog.
func (b *CatalogBuilder) Rebuild(ctx context.Context) ([]domain.Location, error) {
	records, err := b.records.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	catalog := BuildCatalog(records)
	b.enrich(ctx, catalog)

	b.mu.Lock()
	b.catalog = catalog
	b.mu.Unlock()
	return catalog, nil
}

// enrich fills address and coordinates from the place detail cache for
// entries whose id points at the directory. Best-effort: a failed lookup
// leaves the entry as the records described it.
func (b *CatalogBuilder) enrich(ctx context.Context, catalog []domain.Location) {
	if b.places == nil {
		return
	}
	for i := range catalog {
		entry := &catalog[i]
		if entry.Address != "" || !strings.HasPrefix(entry.ID, defaultDirectoryIDPrefix) {
			continue
		}
		detail, err := b.places.Resolve(ctx, entry.ID)
		if err != nil || detail == nil {
			continue
		}
		entry.Address = detail.Address
		if entry.Coordinate == nil {
			coord := detail.Coordinate
			entry.Coordinate = &coord
		}
	}
}

// BuildCatalog aggregates records into catalog entries keyed by normalized
// business name. The first record seen for a name supplies the identifier
// and coordinates; unclassified entries fall back to name classification.
func BuildCatalog(records []domain.MaintenanceRecord) []domain.Location {
	byName := make(map[string]*domain.Location)
	for _, record := range records {
		name := strings.TrimSpace(record.BusinessName)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)

		entry, ok := byName[key]
		if !ok {
			id := record.BusinessID
			if id == "" {
				id = record.LocationID
			}
			if id == "" {
				id = "name:" + key
			}
			businessType := record.BusinessType
			if businessType == "" || businessType == domain.TypeOther {
				businessType = domain.ClassifyName(name)
			}
			entry = &domain.Location{
				ID:           id,
				Name:         name,
				Coordinate:   record.Coordinate,
				BusinessType: businessType,
			}
			byName[key] = entry
		}
		if entry.Coordinate == nil && record.Coordinate != nil {
			entry.Coordinate = record.Coordinate
		}
		entry.RecordCount++
	}

	catalog := make([]domain.Location, 0, len(byName))
	for _, entry := range byName {
		catalog = append(catalog, *entry)
	}
	sort.Slice(catalog, func(i, j int) bool {
		return catalog[i].Name < catalog[j].Name
	})
	return catalog
}
