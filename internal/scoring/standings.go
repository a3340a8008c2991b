package scoring

import (
	"cmp"
	"slices"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// RoundEntry is one participant's line in a round's standings.
type RoundEntry struct {
	UserID         int64    `json:"user_id"`
	Username       string   `json:"user"`
	Result         int      `json:"result"`
	ElapsedSeconds *float64 `json:"time"`
	Score          float64  `json:"score"`
	Points         int      `json:"points"`
}

type rankedPlay struct {
	play  domain.Play
	score float64
}

// RoundStandings ranks submitted plays by score. Unsubmitted plays are ignored.
// Equal scores fall back to the earlier finish time, then the lower play id.
// With N participants the winner earns N points and the last place earns 1.
func RoundStandings(plays []domain.Play, usernames map[int64]string) []RoundEntry {
	ranked := make([]rankedPlay, 0, len(plays))
	for _, p := range plays {
		if !p.IsSubmitted {
			continue
		}
		ranked = append(ranked, rankedPlay{play: p, score: PlayScore(p)})
	}

	slices.SortStableFunc(ranked, func(a, b rankedPlay) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := compareFinish(a.play.FinishTime, b.play.FinishTime); c != 0 {
			return c
		}
		return cmp.Compare(a.play.ID, b.play.ID)
	})

	entries := make([]RoundEntry, len(ranked))
	for i, r := range ranked {
		entry := RoundEntry{
			UserID:   r.play.UserID,
			Username: usernames[r.play.UserID],
			Score:    r.score,
			Points:   len(ranked) - i,
		}
		if r.play.Result != nil {
			entry.Result = *r.play.Result
		}
		if elapsed, ok := r.play.ServerElapsed(); ok {
			entry.ElapsedSeconds = &elapsed
		}
		entries[i] = entry
	}
	return entries
}

func compareFinish(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

// RoundOutcome is everything the tournament roll-up needs from one round.
type RoundOutcome struct {
	RoundID        int64
	AuthorID       int64
	AuthorUsername string
	// PlayCount counts every play row of the round, submitted or not.
	PlayCount int
	Standings []RoundEntry
}

// TournamentEntry is one user's combined line in a tournament.
type TournamentEntry struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"user"`
	Points         int    `json:"points"`
	Rounds         int    `json:"rounds"`
	PointsPlayed   int    `json:"points_played"`
	PointsAuthored int    `json:"points_authored"`
	RoundsPlayed   int    `json:"rounds_played"`
	RoundsAuthored int    `json:"rounds_authored"`
}

// TournamentStandings sums round points earned by playing with the popularity reward
// earned by authoring (one point per play of the authored round).
// Sorted by total points, ties by lower user id.
func TournamentStandings(outcomes []RoundOutcome) []TournamentEntry {
	byUser := make(map[int64]*TournamentEntry)
	get := func(userID int64, username string) *TournamentEntry {
		e, ok := byUser[userID]
		if !ok {
			e = &TournamentEntry{UserID: userID}
			byUser[userID] = e
		}
		if e.Username == "" {
			e.Username = username
		}
		return e
	}

	for _, o := range outcomes {
		for _, s := range o.Standings {
			e := get(s.UserID, s.Username)
			e.PointsPlayed += s.Points
			e.RoundsPlayed++
		}
		if o.AuthorID != 0 {
			e := get(o.AuthorID, o.AuthorUsername)
			e.PointsAuthored += o.PlayCount
			e.RoundsAuthored++
		}
	}

	out := make([]TournamentEntry, 0, len(byUser))
	for _, e := range byUser {
		e.Points = e.PointsPlayed + e.PointsAuthored
		e.Rounds = e.RoundsPlayed + e.RoundsAuthored
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b TournamentEntry) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}
