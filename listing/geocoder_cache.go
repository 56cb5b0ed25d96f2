// Copyright 2025 The Karobar Authors
// SPDX-License-Identifier: Apache-2.0

package listing

import (
	"log"
	"sync"
	"time"
)

const (
	// GeoCacheTTL is how long a resolved address stays valid.
	GeoCacheTTL = 24 * time.Hour

	// GeoCacheCapacity bounds the number of cached addresses.
	GeoCacheCapacity = 500
)

type geoCacheEntry struct {
	result   GeocodingResult
	cachedAt time.Time
}

// Geocoder resolves free-text addresses to coordinates through an ordered
// list of providers, with a bounded TTL cache in front. It owns all of its
// mutable state and is safe for concurrent use; construct one per process
// and inject it where needed.
//
// Resolve never fails: any provider error degrades to a nil result, because
// geocoding is an enrichment, not a precondition for a submission.
type Geocoder struct {
	providers []GeocodingProvider

	mu       sync.Mutex
	cache    map[string]*geoCacheEntry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewGeocoder creates a geocoder that tries providers in order, stopping at
// the first success.
func NewGeocoder(providers ...GeocodingProvider) *Geocoder {
	return &Geocoder{
		providers: providers,
		cache:     make(map[string]*geoCacheEntry),
		ttl:       GeoCacheTTL,
		capacity:  GeoCacheCapacity,
		now:       time.Now,
	}
}

// Resolve geocodes the address. It returns nil when the query is empty,
// when every provider fails, or when no provider is configured.
func (g *Geocoder) Resolve(addr Address) *GeocodingResult {
	query := addr.Query()
	if query == "" {
		return nil
	}

	key := addr.CacheKey()
	if cached := g.lookup(key); cached != nil {
		return cached
	}

	for _, provider := range g.providers {
		result, err := provider.Geocode(query)
		if err != nil {
			if IsRateLimitError(err) || IsTimeoutError(err) {
				log.Printf("Geocoding via %s degraded: %v", provider.Name(), err)
			} else {
				log.Printf("Geocoding via %s failed for %q: %v", provider.Name(), query, err)
			}

			continue
		}

		g.store(key, result)

		return result
	}

	return nil
}

func (g *Geocoder) lookup(key string) *GeocodingResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.cache[key]
	if !ok {
		return nil
	}

	if g.now().Sub(entry.cachedAt) > g.ttl {
		delete(g.cache, key)

		return nil
	}

	result := entry.result

	return &result
}

func (g *Geocoder) store(key string, result *GeocodingResult) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Evict the single oldest entry when full. Hit locality is high
	// (repeated addresses in the same city), so this approximates LRU
	// well enough to bound memory.
	if len(g.cache) >= g.capacity {
		var oldestKey string

		var oldest time.Time

		for k, e := range g.cache {
			if oldestKey == "" || e.cachedAt.Before(oldest) {
				oldestKey = k
				oldest = e.cachedAt
			}
		}

		if oldestKey != "" {
			delete(g.cache, oldestKey)
		}
	}

	g.cache[key] = &geoCacheEntry{
		result:   *result,
		cachedAt: g.now(),
	}
}
