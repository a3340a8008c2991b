package app

import (
	"context"
	"fmt"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/scoring"
	"go.opentelemetry.io/otel/attribute"
)

// RoundStandings ranks the submitted plays of one round.
func (s *Service) RoundStandings(ctx context.Context, roundID int64) ([]scoring.RoundEntry, error) {
	var out []scoring.RoundEntry
	fields := []attribute.KeyValue{attribute.Int64("round_id", roundID)}
	err := s.observe(ctx, "RoundStandings", fields, func(ctx context.Context) error {
		if _, err := s.rounds.GetRound(ctx, roundID); err != nil {
			return err
		}
		plays, err := s.plays.ListPlays(ctx, roundID)
		if err != nil {
			return err
		}
		names, err := s.usernames(ctx, playerIDs(plays))
		if err != nil {
			return err
		}
		out = scoring.RoundStandings(plays, names)
		return nil
	})
	return out, err
}

// TournamentStandings combines every round of the tournament. Results are cached
// until a play, submission or round change in the tournament invalidates them.
func (s *Service) TournamentStandings(ctx context.Context, tournamentID int64) ([]scoring.TournamentEntry, error) {
	var out []scoring.TournamentEntry
	fields := []attribute.KeyValue{attribute.Int64("tournament_id", tournamentID)}
	err := s.observe(ctx, "TournamentStandings", fields, func(ctx context.Context) error {
		if cached, ok := s.standings.Get(ctx, tournamentID); ok {
			out = cached
			return nil
		}
		version, cacheable := s.standings.Version(ctx, tournamentID)
		if _, err := s.rounds.GetTournament(ctx, tournamentID); err != nil {
			return err
		}
		rounds, err := s.rounds.ListRounds(ctx, tournamentID)
		if err != nil {
			return err
		}

		type roundData struct {
			round    domain.Round
			authorID int64
			plays    []domain.Play
		}
		data := make([]roundData, 0, len(rounds))
		ids := make(map[int64]struct{})
		for _, r := range rounds {
			quiz, err := s.quizzes.GetQuiz(ctx, r.QuizID)
			if err != nil {
				return fmt.Errorf("round %d: %w", r.ID, err)
			}
			plays, err := s.plays.ListPlays(ctx, r.ID)
			if err != nil {
				return err
			}
			for _, p := range plays {
				ids[p.UserID] = struct{}{}
			}
			if quiz.AuthorID != 0 {
				ids[quiz.AuthorID] = struct{}{}
			}
			data = append(data, roundData{round: r, authorID: quiz.AuthorID, plays: plays})
		}

		userIDs := make([]int64, 0, len(ids))
		for id := range ids {
			userIDs = append(userIDs, id)
		}
		names, err := s.usernames(ctx, userIDs)
		if err != nil {
			return err
		}

		outcomes := make([]scoring.RoundOutcome, 0, len(data))
		for _, d := range data {
			outcomes = append(outcomes, scoring.RoundOutcome{
				RoundID:        d.round.ID,
				AuthorID:       d.authorID,
				AuthorUsername: names[d.authorID],
				PlayCount:      len(d.plays),
				Standings:      scoring.RoundStandings(d.plays, names),
			})
		}
		out = scoring.TournamentStandings(outcomes)
		if cacheable {
			s.standings.Set(ctx, tournamentID, version, out)
		}
		return nil
	})
	return out, err
}

func (s *Service) usernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}
	users, err := s.users.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for id, u := range users {
		names[id] = u.Username
	}
	return names, nil
}

func playerIDs(plays []domain.Play) []int64 {
	ids := make([]int64, 0, len(plays))
	for _, p := range plays {
		ids = append(ids, p.UserID)
	}
	return ids
}
