package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

const placeKeyPrefix = "place:"

// batchFetchConcurrency bounds parallel detail fetches for cache misses.
const batchFetchConcurrency = 4

// PlaceDetailCache is the two-tier place metadata cache: an in-process map in
// front of the durable key-value store, with lazy 24h expiry on read. A
// durable hit is promoted into the map; Set writes both tiers, last write
// wins.
type PlaceDetailCache struct {
	kv        ports.KeyValueStore
	directory ports.DirectorySearch

	mu  sync.RWMutex
	mem map[string]domain.PlaceDetail

	now func() time.Time
}

func NewPlaceDetailCache(kv ports.KeyValueStore, directory ports.DirectorySearch) *PlaceDetailCache {
	return &PlaceDetailCache{
		kv:        kv,
		directory: directory,
		mem:       make(map[string]domain.PlaceDetail),
		now:       time.Now,
	}
}

// Get returns the cached detail for id, or (nil, nil) on a miss. An expired
// entry is a miss. Only storage I/O faults produce an error.
func (c *PlaceDetailCache) Get(ctx context.Context, id string) (*domain.PlaceDetail, error) {
	now := c.now()

	c.mu.RLock()
	detail, ok := c.mem[id]
	c.mu.RUnlock()
	if ok && !detail.Expired(now) {
		return &detail, nil
	}

	raw, err := c.kv.Get(ctx, placeKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("place cache read %s: %w", id, err)
	}
	if raw == nil {
		return nil, nil
	}

	var stored domain.PlaceDetail
	if err := json.Unmarshal(raw, &stored); err != nil {
		slog.Warn("place_cache_corrupt_entry", "place_id", id, "error", err)
		return nil, nil
	}
	if stored.Expired(now) {
		return nil, nil
	}

	c.mu.Lock()
	c.mem[id] = stored
	c.mu.Unlock()
	return &stored, nil
}

// Set writes the entry to both tiers unconditionally.
func (c *PlaceDetailCache) Set(ctx context.Context, detail domain.PlaceDetail) error {
	if detail.CachedAt.IsZero() {
		detail.CachedAt = c.now()
	}

	c.mu.Lock()
	c.mem[detail.ID] = detail
	c.mu.Unlock()

	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("place cache encode %s: %w", detail.ID, err)
	}
	if err := c.kv.Set(ctx, placeKeyPrefix+detail.ID, raw, domain.PlaceDetailTTL); err != nil {
		return fmt.Errorf("place cache write %s: %w", detail.ID, err)
	}
	return nil
}

// Invalidate evicts an entry from both tiers, forcing the next Resolve to
// refetch. Invalidating an absent id is a no-op.
func (c *PlaceDetailCache) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return domain.WrapError(domain.ErrInvalidInput, "invalidate place", fmt.Errorf("empty id"))
	}

	c.mu.Lock()
	delete(c.mem, id)
	c.mu.Unlock()

	if err := c.kv.Delete(ctx, placeKeyPrefix+id); err != nil {
		return fmt.Errorf("place cache delete %s: %w", id, err)
	}
	return nil
}

// Resolve returns place metadata for id, fetching from the directory on a
// cache miss and writing the result back.
func (c *PlaceDetailCache) Resolve(ctx context.Context, id string) (*domain.PlaceDetail, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve place", fmt.Errorf("empty id"))
	}

	cached, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	detail, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, *detail); err != nil {
		slog.Warn("place_cache_writeback_failed", "place_id", id, "error", err)
	}
	return detail, nil
}

// ResolveBatch returns all currently-valid cached entries for free and
// fetches only the misses, concurrently. An id whose individual fetch fails
// is omitted from the result; the batch itself never fails wholesale.
func (c *PlaceDetailCache) ResolveBatch(ctx context.Context, ids []string) (map[string]domain.PlaceDetail, error) {
	result := make(map[string]domain.PlaceDetail, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var misses []string

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cached, err := c.Get(ctx, id)
		if err != nil {
			slog.Warn("place_cache_batch_read_failed", "place_id", id, "error", err)
			misses = append(misses, id)
			continue
		}
		if cached != nil {
			result[id] = *cached
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(batchFetchConcurrency)

	for _, id := range misses {
		id := id
		group.Go(func() error {
			detail, err := c.fetch(groupCtx, id)
			if err != nil {
				slog.Warn("place_cache_batch_fetch_failed", "place_id", id, "error", err)
				return nil
			}
			if err := c.Set(groupCtx, *detail); err != nil {
				slog.Warn("place_cache_writeback_failed", "place_id", id, "error", err)
			}
			mu.Lock()
			result[id] = *detail
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return result, nil
}

func (c *PlaceDetailCache) fetch(ctx context.Context, id string) (*domain.PlaceDetail, error) {
	candidate, err := c.directory.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, domain.WrapError(domain.ErrPlaceNotFound, "fetch place details", fmt.Errorf("id %s", id))
	}
	return &domain.PlaceDetail{
		ID:         candidate.ID,
		Name:       candidate.Name,
		Coordinate: candidate.Coordinate,
		Address:    candidate.Address,
		CachedAt:   c.now(),
	}, nil
}
