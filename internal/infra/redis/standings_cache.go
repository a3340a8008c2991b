package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/scoring"
	"github.com/redis/go-redis/v9"
)

var errStaleStandings = errors.New("standings invalidated while computing")

// StandingsCache stores computed tournament standings under tournament:{id}:standings.
// Every invalidation increments tournament:{id}:standings:v, and a write only lands
// while that counter still matches the version the reader started from.
// It is shared between instances, so an invalidation on one is seen by all.
type StandingsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewStandingsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StandingsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandingsCache{client: client, ttl: ttl, logger: logger}
}

func (c *StandingsCache) Get(ctx context.Context, tournamentID int64) ([]scoring.TournamentEntry, bool) {
	raw, err := c.client.Get(ctx, standingsKey(tournamentID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "standings cache read failed", "tournament_id", tournamentID, "error", err)
		}
		return nil, false
	}
	var entries []scoring.TournamentEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *StandingsCache) Version(ctx context.Context, tournamentID int64) (int64, bool) {
	v, err := c.client.Get(ctx, versionKey(tournamentID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		c.logger.WarnContext(ctx, "standings version read failed", "tournament_id", tournamentID, "error", err)
		return 0, false
	}
	return v, true
}

// Set writes entries inside a WATCH on the version key, so an invalidation that lands
// between the version check and the write aborts it.
func (c *StandingsCache) Set(ctx context.Context, tournamentID, version int64, entries []scoring.TournamentEntry) {
	if entries == nil {
		entries = []scoring.TournamentEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	vkey := versionKey(tournamentID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleStandings
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, standingsKey(tournamentID), raw, c.ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleStandings), errors.Is(err, redis.TxFailedErr):
		c.logger.DebugContext(ctx, "stale standings not cached", "tournament_id", tournamentID)
	default:
		c.logger.WarnContext(ctx, "standings cache write failed", "tournament_id", tournamentID, "error", err)
	}
}

func (c *StandingsCache) Invalidate(ctx context.Context, tournamentID int64) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(tournamentID))
		pipe.Del(ctx, standingsKey(tournamentID))
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "standings cache invalidation failed", "tournament_id", tournamentID, "error", err)
	}
}

func standingsKey(tournamentID int64) string {
	return "tournament:" + strconv.FormatInt(tournamentID, 10) + ":standings"
}

func versionKey(tournamentID int64) string {
	return standingsKey(tournamentID) + ":v"
}
