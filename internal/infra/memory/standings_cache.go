package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/scoring"
)

// StandingsCache is an in-process implementation of app.StandingsCache.
type StandingsCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	entries  map[int64]cachedStandings
	versions map[int64]int64
}

type cachedStandings struct {
	entries   []scoring.TournamentEntry
	expiresAt time.Time
}

// NewStandingsCache keeps standings for ttl; a zero ttl keeps them until invalidated.
func NewStandingsCache(ttl time.Duration) *StandingsCache {
	return &StandingsCache{
		ttl:      ttl,
		clock:    time.Now,
		entries:  make(map[int64]cachedStandings),
		versions: make(map[int64]int64),
	}
}

func (c *StandingsCache) Get(_ context.Context, tournamentID int64) ([]scoring.TournamentEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tournamentID]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(c.clock()) {
		return nil, false
	}
	return slices.Clone(e.entries), true
}

func (c *StandingsCache) Version(_ context.Context, tournamentID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[tournamentID], true
}

// Set stores entries unless the tournament was invalidated after version was read.
func (c *StandingsCache) Set(_ context.Context, tournamentID, version int64, entries []scoring.TournamentEntry) {
	e := cachedStandings{entries: slices.Clone(entries)}
	if c.ttl > 0 {
		e.expiresAt = c.clock().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[tournamentID] != version {
		return
	}
	c.entries[tournamentID] = e
}

func (c *StandingsCache) Invalidate(_ context.Context, tournamentID int64) {
	c.mu.Lock()
	c.versions[tournamentID]++
	delete(c.entries, tournamentID)
	c.mu.Unlock()
}
