package app

import (
	"context"
	"sync"
)

// StandingsFeed fans tournament standings snapshots out to live subscribers.
type StandingsFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan StandingsUpdate]struct{}
}

func NewStandingsFeed() *StandingsFeed {
	return &StandingsFeed{subscribers: make(map[int64]map[chan StandingsUpdate]struct{})}
}

// Subscribe registers a channel for one tournament and queues initial on it.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *StandingsFeed) Subscribe(tournamentID int64, initial StandingsUpdate) (<-chan StandingsUpdate, func()) {
	ch := make(chan StandingsUpdate, 4)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.subscribers[tournamentID]
	if !ok {
		subs = make(map[chan StandingsUpdate]struct{})
		f.subscribers[tournamentID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[tournamentID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(f.subscribers, tournamentID)
		}
	}
	return ch, cancel
}

// HasSubscribers reports whether anyone listens to the tournament.
func (f *StandingsFeed) HasSubscribers(tournamentID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[tournamentID]) > 0
}

// Publish delivers update to every subscriber of its tournament without blocking.
// A subscriber that has fallen behind loses its oldest pending snapshot.
func (f *StandingsFeed) Publish(update StandingsUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[update.TournamentID] {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

// Close ends every subscription of the tournament by closing its channels.
func (f *StandingsFeed) Close(tournamentID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[tournamentID] {
		close(ch)
	}
	delete(f.subscribers, tournamentID)
}

// SubscribeStandings streams tournament standings, starting with the current snapshot.
func (s *Service) SubscribeStandings(ctx context.Context, tournamentID int64) (<-chan StandingsUpdate, func(), error) {
	entries, err := s.TournamentStandings(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(tournamentID, StandingsUpdate{
		TournamentID: tournamentID,
		Entries:      entries,
		UpdatedAt:    s.now(),
	})
	return ch, cancel, nil
}

// standingsChanged drops the cached standings and pushes a fresh snapshot to live
// subscribers. Failures here never undo the write that triggered them.
func (s *Service) standingsChanged(ctx context.Context, tournamentID int64) {
	s.standings.Invalidate(ctx, tournamentID)
	if !s.feed.HasSubscribers(tournamentID) {
		return
	}
	entries, err := s.TournamentStandings(ctx, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "standings refresh failed", "tournament_id", tournamentID, "error", err)
		return
	}
	s.feed.Publish(StandingsUpdate{TournamentID: tournamentID, Entries: entries, UpdatedAt: s.now()})
}
