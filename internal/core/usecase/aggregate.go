package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

// CategoryAggregator fans one geographic query out across the category
// taxonomy, merges the results, deduplicates by external id and returns the
// list sorted by distance. Retry policy belongs to the transport collaborator,
// not here.
type CategoryAggregator struct {
	directory ports.DirectorySearch
	taxonomy  []domain.Category
	observer  DetectionObserver
}

func NewCategoryAggregator(directory ports.DirectorySearch, taxonomy []domain.Category, observer DetectionObserver) *CategoryAggregator {
	if len(taxonomy) == 0 {
		taxonomy = domain.DefaultTaxonomy()
	}
	return &CategoryAggregator{
		directory: directory,
		taxonomy:  taxonomy,
		observer:  observer,
	}
}

// Aggregate runs one query per category concurrently. A failed category
// contributes zero candidates; only failure of every category propagates an
// error.
func (a *CategoryAggregator) Aggregate(ctx context.Context, coord domain.Coordinate, radiusMeters float64) ([]domain.BusinessCandidate, error) {
	perCategory := make([][]domain.BusinessCandidate, len(a.taxonomy))
	errs := make([]error, len(a.taxonomy))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, category := range a.taxonomy {
		i, category := i, category
		group.Go(func() error {
			candidates, err := a.directory.SearchNearby(groupCtx, coord, radiusMeters, category.Tag)
			if err != nil {
				errs[i] = err
				slog.Warn("category_query_failed", "category", category.Name, "error", err)
				if a.observer != nil {
					a.observer.CategoryQueryFailed(category.Name)
				}
				return nil
			}
			perCategory[i] = candidates
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	var lastErr error
	for _, err := range errs {
		if err != nil {
			failed++
			lastErr = err
		}
	}
	if failed == len(a.taxonomy) {
		return nil, domain.WrapError(domain.ErrAggregationFailed, "aggregate categories", fmt.Errorf("all %d category queries failed: %w", failed, lastErr))
	}

	merged := mergeCandidates(perCategory)
	for i := range merged {
		merged[i].DistanceMeters = domain.DistanceMeters(coord, merged[i].Coordinate)
	}
	sortCandidatesByDistance(merged)
	return merged, nil
}

// mergeCandidates flattens per-category results deduplicating by external
// id. First occurrence wins; later duplicates are discarded, not merged.
func mergeCandidates(perCategory [][]domain.BusinessCandidate) []domain.BusinessCandidate {
	total := 0
	for _, candidates := range perCategory {
		total += len(candidates)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]domain.BusinessCandidate, 0, total)
	for _, candidates := range perCategory {
		for _, candidate := range candidates {
			if candidate.ID == "" {
				continue
			}
			if _, dup := seen[candidate.ID]; dup {
				continue
			}
			seen[candidate.ID] = struct{}{}
			merged = append(merged, candidate)
		}
	}
	return merged
}

// sortCandidatesByDistance orders ascending by distance with the external id
// as a deterministic tie-break.
func sortCandidatesByDistance(candidates []domain.BusinessCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceMeters != candidates[j].DistanceMeters {
			return candidates[i].DistanceMeters < candidates[j].DistanceMeters
		}
		return candidates[i].ID < candidates[j].ID
	})
}
