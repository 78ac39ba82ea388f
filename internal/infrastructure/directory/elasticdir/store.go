package elasticdir

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

// Store serves directory searches from a self-hosted Elasticsearch places
// index, for deployments that mirror the third-party directory locally.
type Store struct {
	client *elastic.Client
	index  string
}

func New(url, index string) (*Store, error) {
	client, err := elastic.NewClient(elastic.SetURL(url), elastic.SetSniff(false))
	if err != nil {
		return nil, fmt.Errorf("create elastic client: %w", err)
	}
	return &Store{client: client, index: index}, nil
}

type placeDocument struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Address string           `json:"address"`
	Types   []string         `json:"types"`
	Rating  float64          `json:"rating"`
	Geo     elastic.GeoPoint `json:"location"`
}

func (s *Store) SearchNearby(ctx context.Context, coord domain.Coordinate, radiusMeters float64, categoryTag string) ([]domain.BusinessCandidate, error) {
	query := elastic.NewBoolQuery().
		Filter(elastic.NewGeoDistanceQuery("location").
			Point(coord.Lat, coord.Lon).
			Distance(fmt.Sprintf("%.0fm", radiusMeters)))
	if categoryTag != "" {
		query.Filter(elastic.NewTermQuery("types", categoryTag))
	}

	result, err := s.client.Search().
		Index(s.index).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(coord.Lat, coord.Lon).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(50).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("elastic nearby search: %w", err)
	}
	return s.mapHits(result), nil
}

func (s *Store) GetDetails(ctx context.Context, id string) (*domain.BusinessCandidate, error) {
	result, err := s.client.Search().
		Index(s.index).
		Query(elastic.NewTermQuery("id", id)).
		Size(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("elastic details lookup: %w", err)
	}
	candidates := s.mapHits(result)
	if len(candidates) == 0 {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "elastic details lookup", fmt.Errorf("id %s", id))
	}
	return &candidates[0], nil
}

func (s *Store) TextSearch(ctx context.Context, text string, coord *domain.Coordinate) ([]domain.BusinessCandidate, error) {
	search := s.client.Search().
		Index(s.index).
		Query(elastic.NewMatchQuery("name", text)).
		Size(25)
	if coord != nil {
		search = search.SortBy(elastic.NewGeoDistanceSort("location").
			Point(coord.Lat, coord.Lon).
			Asc().
			Unit("m").
			IgnoreUnmapped(true))
	}

	result, err := search.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("elastic text search: %w", err)
	}
	return s.mapHits(result), nil
}

func (s *Store) mapHits(result *elastic.SearchResult) []domain.BusinessCandidate {
	if result == nil || result.Hits == nil {
		return nil
	}
	candidates := make([]domain.BusinessCandidate, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc placeDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			continue
		}
		businessType := domain.ClassifyTags(doc.Types)
		if businessType == domain.TypeOther {
			businessType = domain.ClassifyName(doc.Name)
		}
		candidates = append(candidates, domain.BusinessCandidate{
			ID:           doc.ID,
			Name:         doc.Name,
			Address:      doc.Address,
			Coordinate:   domain.Coordinate{Lat: doc.Geo.Lat, Lon: doc.Geo.Lon},
			BusinessType: businessType,
			Rating:       doc.Rating,
		})
	}
	return candidates
}
