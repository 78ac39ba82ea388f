package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldsight/location-engine/internal/core/domain"
	"github.com/fieldsight/location-engine/internal/core/ports"
)

const fingerprintIndexKey = "fingerprint_index"

// FingerprintCache maps local-network fingerprints to the last resolved
// business. The whole index is persisted as one durable value; exactly one
// entry exists per fingerprint. Advisory only: the orchestrator always
// re-aggregates live data.
type FingerprintCache struct {
	kv ports.KeyValueStore

	mu      sync.Mutex
	entries map[string]domain.FingerprintEntry

	now func() time.Time
}

func NewFingerprintCache(kv ports.KeyValueStore) *FingerprintCache {
	return &FingerprintCache{
		kv:      kv,
		entries: make(map[string]domain.FingerprintEntry),
		now:     time.Now,
	}
}

// Load reads the persisted index, drops entries unused for more than 30
// days, and persists the pruned set immediately.
func (c *FingerprintCache) Load(ctx context.Context) error {
	raw, err := c.kv.Get(ctx, fingerprintIndexKey)
	if err != nil {
		return fmt.Errorf("fingerprint cache load: %w", err)
	}

	entries := make(map[string]domain.FingerprintEntry)
	if raw != nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			slog.Warn("fingerprint_cache_corrupt_index", "error", err)
			entries = make(map[string]domain.FingerprintEntry)
		}
	}

	now := c.now()
	pruned := 0
	for fingerprint, entry := range entries {
		if entry.Expired(now) {
			delete(entries, fingerprint)
			pruned++
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	if pruned > 0 {
		slog.Info("fingerprint_cache_pruned", "dropped", pruned, "kept", len(entries))
	}
	return c.persist(ctx)
}

// Lookup returns the entry for fingerprint, or (nil, nil) when absent or
// expired.
func (c *FingerprintCache) Lookup(ctx context.Context, fingerprint string) (*domain.FingerprintEntry, error) {
	if fingerprint == "" {
		return nil, nil
	}

	c.mu.Lock()
	entry, ok := c.entries[fingerprint]
	c.mu.Unlock()

	if !ok || entry.Expired(c.now()) {
		return nil, nil
	}
	return &entry, nil
}

// Store replaces any prior entry for fingerprint entirely. A fresh entry
// starts at use-count 1; nothing is merged across the replace.
func (c *FingerprintCache) Store(ctx context.Context, fingerprint string, business domain.BusinessCandidate, confidence float64) error {
	if fingerprint == "" {
		return nil
	}

	entry := domain.FingerprintEntry{
		Fingerprint:  fingerprint,
		BusinessID:   business.ID,
		BusinessName: business.Name,
		BusinessType: business.BusinessType,
		Confidence:   confidence,
		LastUsed:     c.now(),
		UseCount:     1,
	}

	c.mu.Lock()
	c.entries[fingerprint] = entry
	c.mu.Unlock()

	return c.persist(ctx)
}

// Touch increments the use-count and refreshes last-used without changing
// the stored business. Touching an absent fingerprint is a no-op.
func (c *FingerprintCache) Touch(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	entry, ok := c.entries[fingerprint]
	if ok {
		entry.UseCount++
		entry.LastUsed = c.now()
		c.entries[fingerprint] = entry
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return c.persist(ctx)
}

func (c *FingerprintCache) persist(ctx context.Context) error {
	c.mu.Lock()
	raw, err := json.Marshal(c.entries)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("fingerprint cache encode: %w", err)
	}
	if err := c.kv.Set(ctx, fingerprintIndexKey, raw, 0); err != nil {
		return fmt.Errorf("fingerprint cache persist: %w", err)
	}
	return nil
}
