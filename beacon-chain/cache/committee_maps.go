// Package cache contains the caches shared by the forks of the beacon chain.
package cache

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNilCommitteeMaps is returned when a builder or caller hands in nil maps.
	ErrNilCommitteeMaps = errors.New("committee maps are nil")

	// Metrics.
	committeeMapsCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "committee_maps_cache_miss",
		Help: "The number of committee map requests that aren't present in the cache.",
	})
	committeeMapsCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "committee_maps_cache_hit",
		Help: "The number of committee map requests that are present in the cache.",
	})
	committeeMapsCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "committee_maps_cache_size",
		Help: "The number of distinct crystallized states with cached committee maps.",
	})
)

type committeeEntry struct {
	maps *types.CommitteeMaps
	refs int
}

// CommitteeMapCache holds the attester and proposer maps of every live
// crystallized state, keyed by the state's hash. Entries are immutable and
// shared by pointer between all forks referencing the same state.
type CommitteeMapCache struct {
	lock    sync.RWMutex
	entries map[common.Hash]*committeeEntry
	group   singleflight.Group
}

// NewCommitteeMapCache creates an empty committee map cache.
func NewCommitteeMapCache() *CommitteeMapCache {
	return &CommitteeMapCache{
		entries: make(map[common.Hash]*committeeEntry),
	}
}

// CommitteeMaps returns the maps cached under key.
func (c *CommitteeMapCache) CommitteeMaps(key common.Hash) (*types.CommitteeMaps, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.maps, true
}

// GetOrBuild returns the maps cached under key, calling build on a miss.
// Concurrent misses for the same key wait for a single build and receive
// the same maps. A failed build leaves the cache untouched.
func (c *CommitteeMapCache) GetOrBuild(key common.Hash, build func() (*types.CommitteeMaps, error)) (*types.CommitteeMaps, error) {
	if maps, ok := c.CommitteeMaps(key); ok {
		committeeMapsCacheHit.Inc()
		return maps, nil
	}
	committeeMapsCacheMiss.Inc()

	v, err, _ := c.group.Do(key.Hex(), func() (interface{}, error) {
		// A build for the key may have finished between the lookup and the flight.
		if maps, ok := c.CommitteeMaps(key); ok {
			return maps, nil
		}
		maps, err := build()
		if err != nil {
			return nil, err
		}
		if maps == nil {
			return nil, ErrNilCommitteeMaps
		}
		c.lock.Lock()
		defer c.lock.Unlock()
		if entry, ok := c.entries[key]; ok {
			return entry.maps, nil
		}
		c.entries[key] = &committeeEntry{maps: maps}
		committeeMapsCacheSize.Set(float64(len(c.entries)))
		return maps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.CommitteeMaps), nil
}

// Acquire records one more fork referencing key and returns the maps cached
// under it. If the key is not cached, maps is inserted.
func (c *CommitteeMapCache) Acquire(key common.Hash, maps *types.CommitteeMaps) (*types.CommitteeMaps, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		if maps == nil {
			return nil, ErrNilCommitteeMaps
		}
		entry = &committeeEntry{maps: maps}
		c.entries[key] = entry
		committeeMapsCacheSize.Set(float64(len(c.entries)))
	}
	entry.refs++
	return entry.maps, nil
}

// Release drops one fork reference to key. The entry is removed once no
// fork references it. It returns true if the entry was removed.
func (c *CommitteeMapCache) Release(key common.Hash) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	entry.refs--
	if entry.refs > 0 {
		return false
	}
	delete(c.entries, key)
	committeeMapsCacheSize.Set(float64(len(c.entries)))
	return true
}

// References returns the number of forks referencing key.
func (c *CommitteeMapCache) References(key common.Hash) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return 0
	}
	return entry.refs
}

// DropUnreferenced removes the entries built for blocks that were never
// committed. It returns the number of removed entries.
func (c *CommitteeMapCache) DropUnreferenced() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	var dropped int
	for key, entry := range c.entries {
		if entry.refs <= 0 {
			delete(c.entries, key)
			dropped++
		}
	}
	committeeMapsCacheSize.Set(float64(len(c.entries)))
	return dropped
}

// Len returns the number of cached entries.
func (c *CommitteeMapCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}
