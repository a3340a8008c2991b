package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// StartRound returns the quiz to play, creating the user's play on the first call.
// Repeated calls return the same play until it is submitted.
func (s *Service) StartRound(ctx context.Context, userID, roundID int64) (PlayQuiz, error) {
	var out PlayQuiz
	var created bool
	var tournamentID int64
	err := s.observe(ctx, "StartRound", roundFields(userID, roundID), func(ctx context.Context) error {
		now := s.now()

		round, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		quiz, err := s.quizzes.GetQuiz(ctx, round.QuizID)
		if err != nil {
			return fmt.Errorf("round %d: %w", roundID, err)
		}
		// Authors are refused whatever the window, so this check comes first.
		if quiz.IsAuthoredBy(userID) {
			return domain.ErrSelfPlay
		}
		if !round.IsActive(now) {
			return domain.ErrRoundNotActive
		}

		play, isNew, err := s.getOrCreatePlay(ctx, userID, roundID, now)
		if err != nil {
			return err
		}
		created, tournamentID = isNew, round.TournamentID
		if play.IsSubmitted {
			return domain.ErrAlreadyPlayed
		}

		s.metrics.PlayStarted(created)
		if created {
			s.logger.InfoContext(ctx, "play started", "user_id", userID, "round_id", roundID, "play_id", play.ID)
		}
		out = newPlayQuiz(play.ID, quiz)
		return nil
	})
	if err != nil {
		return PlayQuiz{}, err
	}
	// Every new play is worth a point to the quiz author.
	if created {
		s.standingsChanged(ctx, tournamentID)
	}
	return out, nil
}

// getOrCreatePlay relies on the (user, round) unique constraint: a lost insert race
// is resolved by reading the winner's row. Only users known to the directory get a play.
func (s *Service) getOrCreatePlay(ctx context.Context, userID, roundID int64, now time.Time) (domain.Play, bool, error) {
	play, err := s.plays.GetPlay(ctx, userID, roundID)
	if err == nil {
		return play, false, nil
	}
	if !errors.Is(err, domain.ErrPlayNotFound) {
		return domain.Play{}, false, err
	}

	users, err := s.users.GetUsers(ctx, []int64{userID})
	if err != nil {
		return domain.Play{}, false, err
	}
	if _, ok := users[userID]; !ok {
		return domain.Play{}, false, domain.ErrUserNotFound
	}

	play = domain.Play{UserID: userID, RoundID: roundID, StartTime: now}
	err = s.plays.CreatePlay(ctx, &play)
	if errors.Is(err, domain.ErrPlayExists) {
		play, err = s.plays.GetPlay(ctx, userID, roundID)
		return play, false, err
	}
	if err != nil {
		return domain.Play{}, false, err
	}
	return play, true, nil
}

// SubmitRound grades the submission and freezes the play. Answers and result are
// written atomically; any failure leaves the play unsubmitted.
func (s *Service) SubmitRound(ctx context.Context, userID, roundID int64, sub domain.Submission) (PlaySummary, error) {
	var out PlaySummary
	var tournamentID int64
	err := s.observe(ctx, "SubmitRound", roundFields(userID, roundID), func(ctx context.Context) error {
		now := s.now()

		round, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if !round.IsActive(now) {
			return domain.ErrRoundNotActive
		}
		play, err := s.plays.GetPlay(ctx, userID, roundID)
		if err != nil {
			return err
		}
		if play.IsSubmitted {
			return domain.ErrAlreadyPlayed
		}
		if sub.Answers == nil {
			return domain.ErrAnswersMissing
		}

		quiz, err := s.quizzes.GetQuiz(ctx, round.QuizID)
		if err != nil {
			return fmt.Errorf("round %d: %w", roundID, err)
		}
		if err := quiz.Validate(); err != nil {
			return fmt.Errorf("quiz %d: %w", quiz.ID, err)
		}

		answers, result, err := Grade(quiz, sub.Answers)
		if err != nil {
			return err
		}

		play.IsSubmitted = true
		play.Result = &result
		play.FinishTime = &now
		play.ClientStartTime = sub.ClientStartTime
		play.ClientFinishTime = sub.ClientFinishTime

		stored, err := s.plays.SubmitPlay(ctx, play, answers)
		if err != nil {
			return err
		}

		s.metrics.PlaySubmitted(result)
		s.logger.InfoContext(ctx, "play submitted",
			"user_id", userID,
			"round_id", roundID,
			"play_id", play.ID,
			"result", result,
		)
		tournamentID = round.TournamentID
		out = newPlaySummary(play, stored)
		return nil
	})
	if err != nil {
		return PlaySummary{}, err
	}

	s.standingsChanged(ctx, tournamentID)
	return out, nil
}
