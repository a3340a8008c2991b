package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

var errNoCatalog = errors.New("quiz catalog not configured")

// CreateTournament opens a new tournament in a community.
func (s *Service) CreateTournament(ctx context.Context, communityID int64, name string, isActive bool) (domain.Tournament, error) {
	var out domain.Tournament
	fields := []attribute.KeyValue{attribute.Int64("community_id", communityID)}
	err := s.observe(ctx, "CreateTournament", fields, func(ctx context.Context) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return domain.ErrInvalidTournament
		}
		t := domain.Tournament{
			CommunityID: communityID,
			Name:        name,
			IsActive:    isActive,
			TimeCreated: s.now(),
		}
		if err := s.rounds.CreateTournament(ctx, &t); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "tournament created", "tournament_id", t.ID, "community_id", communityID)
		out = t
		return nil
	})
	return out, err
}

func (s *Service) GetTournament(ctx context.Context, tournamentID int64) (domain.Tournament, error) {
	return s.rounds.GetTournament(ctx, tournamentID)
}

func (s *Service) ListTournaments(ctx context.Context, communityID int64) ([]domain.Tournament, error) {
	return s.rounds.ListTournaments(ctx, communityID)
}

// UpdateTournament renames a tournament and sets whether it is active.
func (s *Service) UpdateTournament(ctx context.Context, tournamentID int64, name string, isActive bool) (domain.Tournament, error) {
	var out domain.Tournament
	fields := []attribute.KeyValue{attribute.Int64("tournament_id", tournamentID)}
	err := s.observe(ctx, "UpdateTournament", fields, func(ctx context.Context) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return domain.ErrInvalidTournament
		}
		t, err := s.rounds.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		t.Name, t.IsActive = name, isActive
		if err := s.rounds.UpdateTournament(ctx, t); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "tournament updated", "tournament_id", t.ID, "is_active", isActive)
		out = t
		return nil
	})
	return out, err
}

// DeleteTournament removes a tournament with all of its rounds and plays.
// Live standings subscribers of the tournament are disconnected.
func (s *Service) DeleteTournament(ctx context.Context, tournamentID int64) error {
	fields := []attribute.KeyValue{attribute.Int64("tournament_id", tournamentID)}
	err := s.observe(ctx, "DeleteTournament", fields, func(ctx context.Context) error {
		if err := s.rounds.DeleteTournament(ctx, tournamentID); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "tournament deleted", "tournament_id", tournamentID)
		return nil
	})
	if err != nil {
		return err
	}
	s.standings.Invalidate(ctx, tournamentID)
	s.feed.Close(tournamentID)
	return nil
}

// CreateRound schedules a finalized quiz of the tournament's community.
// A quiz backs at most one round, and a tournament holds a bounded number of rounds.
func (s *Service) CreateRound(ctx context.Context, tournamentID, quizID int64, start, finish time.Time) (domain.Round, error) {
	var out domain.Round
	fields := []attribute.KeyValue{
		attribute.Int64("tournament_id", tournamentID),
		attribute.Int64("quiz_id", quizID),
	}
	err := s.observe(ctx, "CreateRound", fields, func(ctx context.Context) error {
		r := domain.Round{TournamentID: tournamentID, QuizID: quizID, StartTime: start, FinishTime: finish}
		if err := s.checkRound(ctx, r); err != nil {
			return err
		}
		n, err := s.rounds.CountRounds(ctx, tournamentID)
		if err != nil {
			return err
		}
		if n >= s.roundsLimit {
			return domain.ErrTooManyRounds
		}
		if err := s.rounds.CreateRound(ctx, &r); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "round created", "round_id", r.ID, "tournament_id", tournamentID, "quiz_id", quizID)
		out = r
		return nil
	})
	if err != nil {
		return domain.Round{}, err
	}
	s.standingsChanged(ctx, tournamentID)
	return out, nil
}

// UpdateRound replaces the quiz and window of a round, with the same checks as CreateRound.
func (s *Service) UpdateRound(ctx context.Context, roundID, quizID int64, start, finish time.Time) (domain.Round, error) {
	var out domain.Round
	fields := []attribute.KeyValue{
		attribute.Int64("round_id", roundID),
		attribute.Int64("quiz_id", quizID),
	}
	err := s.observe(ctx, "UpdateRound", fields, func(ctx context.Context) error {
		current, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		r := domain.Round{ID: roundID, TournamentID: current.TournamentID, QuizID: quizID, StartTime: start, FinishTime: finish}
		if err := s.checkRound(ctx, r); err != nil {
			return err
		}
		if err := s.rounds.UpdateRound(ctx, r); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "round updated", "round_id", roundID, "tournament_id", r.TournamentID, "quiz_id", quizID)
		out = r
		return nil
	})
	if err != nil {
		return domain.Round{}, err
	}
	s.standingsChanged(ctx, out.TournamentID)
	return out, nil
}

// checkRound validates a round against its tournament and quiz.
func (s *Service) checkRound(ctx context.Context, r domain.Round) error {
	t, err := s.rounds.GetTournament(ctx, r.TournamentID)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, r.QuizID)
	if err != nil {
		return err
	}
	if quiz.CommunityID != t.CommunityID {
		return domain.ErrQuizOtherCommunity
	}
	if !quiz.IsFinalized {
		return domain.ErrQuizNotFinalized
	}
	if err := quiz.Validate(); err != nil {
		return fmt.Errorf("quiz %d: %w", r.QuizID, err)
	}
	return nil
}

// ListRounds lists a tournament's rounds as seen by userID.
func (s *Service) ListRounds(ctx context.Context, userID, tournamentID int64) ([]RoundListing, error) {
	var out []RoundListing
	fields := []attribute.KeyValue{
		attribute.Int64("user_id", userID),
		attribute.Int64("tournament_id", tournamentID),
	}
	err := s.observe(ctx, "ListRounds", fields, func(ctx context.Context) error {
		if _, err := s.rounds.GetTournament(ctx, tournamentID); err != nil {
			return err
		}
		rounds, err := s.rounds.ListRounds(ctx, tournamentID)
		if err != nil {
			return err
		}
		userPlays, err := s.plays.ListUserPlays(ctx, userID, tournamentID)
		if err != nil {
			return err
		}
		out, err = s.roundListings(ctx, userID, rounds, userPlays)
		return err
	})
	return out, err
}

// GetRound returns one round as seen by userID.
func (s *Service) GetRound(ctx context.Context, userID, roundID int64) (RoundListing, error) {
	var out RoundListing
	err := s.observe(ctx, "GetRound", roundFields(userID, roundID), func(ctx context.Context) error {
		r, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		var userPlays []domain.Play
		switch p, err := s.plays.GetPlay(ctx, userID, roundID); {
		case err == nil:
			userPlays = append(userPlays, p)
		case !errors.Is(err, domain.ErrPlayNotFound):
			return err
		}
		listings, err := s.roundListings(ctx, userID, []domain.Round{r}, userPlays)
		if err != nil {
			return err
		}
		out = listings[0]
		return nil
	})
	return out, err
}

func (s *Service) roundListings(ctx context.Context, userID int64, rounds []domain.Round, userPlays []domain.Play) ([]RoundListing, error) {
	playByRound := make(map[int64]domain.Play, len(userPlays))
	for _, p := range userPlays {
		playByRound[p.RoundID] = p
	}

	quizzes := make([]domain.Quiz, len(rounds))
	authorIDs := make([]int64, 0, len(rounds))
	for i, r := range rounds {
		q, err := s.quizzes.GetQuiz(ctx, r.QuizID)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", r.ID, err)
		}
		quizzes[i] = q
		authorIDs = append(authorIDs, q.AuthorID)
	}
	names, err := s.usernames(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]RoundListing, 0, len(rounds))
	for i, r := range rounds {
		q := quizzes[i]
		listing := RoundListing{
			Round:    r,
			Status:   r.Status(now),
			TimeLeft: domain.RemainingTime(now, r.FinishTime),
			Quiz:     newQuizSummary(q, names),
			IsAuthor: q.IsAuthoredBy(userID),
		}
		if p, ok := playByRound[r.ID]; ok {
			id, submitted := p.ID, p.IsSubmitted
			listing.UserPlayID = &id
			listing.UserPlayIsSubmitted = &submitted
		}
		out = append(out, listing)
	}
	return out, nil
}

// ListQuizPool lists the community's finalized quizzes that no round uses yet, newest first.
func (s *Service) ListQuizPool(ctx context.Context, communityID int64) ([]QuizSummary, error) {
	var out []QuizSummary
	fields := []attribute.KeyValue{attribute.Int64("community_id", communityID)}
	err := s.observe(ctx, "ListQuizPool", fields, func(ctx context.Context) error {
		if s.catalog == nil {
			return errNoCatalog
		}
		quizzes, err := s.catalog.ListFinalizedQuizzes(ctx, communityID)
		if err != nil {
			return err
		}
		ids := make([]int64, len(quizzes))
		authorIDs := make([]int64, 0, len(quizzes))
		for i, q := range quizzes {
			ids[i] = q.ID
			authorIDs = append(authorIDs, q.AuthorID)
		}
		scheduled, err := s.rounds.ScheduledQuizIDs(ctx, ids)
		if err != nil {
			return err
		}
		names, err := s.usernames(ctx, authorIDs)
		if err != nil {
			return err
		}
		out = make([]QuizSummary, 0, len(quizzes))
		for _, q := range quizzes {
			if scheduled[q.ID] {
				continue
			}
			out = append(out, newQuizSummary(q, names))
		}
		return nil
	})
	return out, err
}

// DeleteRound removes a round with all of its plays and answers.
func (s *Service) DeleteRound(ctx context.Context, roundID int64) error {
	var tournamentID int64
	fields := []attribute.KeyValue{attribute.Int64("round_id", roundID)}
	err := s.observe(ctx, "DeleteRound", fields, func(ctx context.Context) error {
		r, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if err := s.rounds.DeleteRound(ctx, roundID); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "round deleted", "round_id", roundID, "tournament_id", r.TournamentID)
		tournamentID = r.TournamentID
		return nil
	})
	if err != nil {
		return err
	}
	s.standingsChanged(ctx, tournamentID)
	return nil
}
