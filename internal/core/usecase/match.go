package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

const (
	// Directory place ids carry a recognizable fixed prefix.
	defaultDirectoryIDPrefix = "ChIJ"
	// Legacy secondary identifiers pack a business name between delimiters.
	defaultTokenDelimiter = "_"

	minNameTokenLength = 3
)

// matchStrategy is one step of the ordered matching sequence. Strategies are
// evaluated top to bottom; the first one returning a location wins and no
// scores are combined across strategies.
type matchStrategy struct {
	name string
	run  func(ctx context.Context, record domain.MaintenanceRecord, catalog []domain.Location) *domain.Location
}

// RecordLocationMatcher associates a historical maintenance record with at
// most one catalog location. An unmatched record is a normal outcome, not an
// error.
type RecordLocationMatcher struct {
	places   ports.PlaceResolver
	observer DetectionObserver

	directoryIDPrefix string
	tokenDelimiter    string
}

func NewRecordLocationMatcher(places ports.PlaceResolver, observer DetectionObserver) *RecordLocationMatcher {
	return &RecordLocationMatcher{
		places:            places,
		observer:          observer,
		directoryIDPrefix: defaultDirectoryIDPrefix,
		tokenDelimiter:    defaultTokenDelimiter,
	}
}

func (m *RecordLocationMatcher) MatchRecordToLocation(ctx context.Context, record domain.MaintenanceRecord, catalog []domain.Location) (*domain.Location, error) {
	if len(catalog) == 0 {
		return nil, nil
	}

	for _, strategy := range m.strategies() {
		if location := strategy.run(ctx, record, catalog); location != nil {
			slog.Debug("record_matched", "record_id", record.ID, "location_id", location.ID, "strategy", strategy.name)
			if m.observer != nil {
				m.observer.MatchResolved(strategy.name)
			}
			return location, nil
		}
	}
	return nil, nil
}

func (m *RecordLocationMatcher) strategies() []matchStrategy {
	return []matchStrategy{
		{name: "primary_id_exact", run: m.matchPrimaryID},
		{name: "secondary_id_exact", run: m.matchSecondaryID},
		{name: "directory_name", run: m.matchDirectoryName},
		{name: "token_name", run: m.matchTokenizedName},
	}
}

func (m *RecordLocationMatcher) matchPrimaryID(_ context.Context, record domain.MaintenanceRecord, catalog []domain.Location) *domain.Location {
	return matchExactID(record.BusinessID, catalog)
}

func (m *RecordLocationMatcher) matchSecondaryID(_ context.Context, record domain.MaintenanceRecord, catalog []domain.Location) *domain.Location {
	return matchExactID(record.LocationID, catalog)
}

// matchDirectoryName resolves a directory-prefixed primary id through the
// place detail cache and substring-matches the resolved name against catalog
// names, case-insensitive in either direction.
func (m *RecordLocationMatcher) matchDirectoryName(ctx context.Context, record domain.MaintenanceRecord, catalog []domain.Location) *domain.Location {
	if m.places == nil || !strings.HasPrefix(record.BusinessID, m.directoryIDPrefix) {
		return nil
	}

	detail, err := m.places.Resolve(ctx, record.BusinessID)
	if err != nil {
		slog.Debug("directory_name_strategy_skipped", "record_id", record.ID, "error", err)
		return nil
	}
	if detail == nil || detail.Name == "" {
		return nil
	}
	return matchNameSubstring(detail.Name, catalog)
}

// matchTokenizedName extracts name tokens from the secondary identifier and
// substring-matches them against catalog names.
func (m *RecordLocationMatcher) matchTokenizedName(_ context.Context, record domain.MaintenanceRecord, catalog []domain.Location) *domain.Location {
	if record.LocationID == "" {
		return nil
	}
	for _, token := range strings.Split(record.LocationID, m.tokenDelimiter) {
		token = strings.TrimSpace(token)
		if len(token) < minNameTokenLength {
			continue
		}
		if location := matchNameSubstring(token, catalog); location != nil {
			return location
		}
	}
	return nil
}

func matchExactID(id string, catalog []domain.Location) *domain.Location {
	if id == "" {
		return nil
	}
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}

func matchNameSubstring(name string, catalog []domain.Location) *domain.Location {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range catalog {
		entry := strings.ToLower(catalog[i].Name)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, needle) || strings.Contains(needle, entry) {
			return &catalog[i]
		}
	}
	return nil
}
