package app

import (
	"context"
	"fmt"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/scoring"
	"golang.org/x/sync/errgroup"
)

// ReviewRound assembles the post-play view of a round. The quiz author may review
// at any time without a play; everyone else needs a submitted play.
func (s *Service) ReviewRound(ctx context.Context, userID, roundID int64) (Review, error) {
	var out Review
	err := s.observe(ctx, "ReviewRound", roundFields(userID, roundID), func(ctx context.Context) error {
		round, err := s.rounds.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		quiz, err := s.quizzes.GetQuiz(ctx, round.QuizID)
		if err != nil {
			return fmt.Errorf("round %d: %w", roundID, err)
		}

		var play *domain.Play
		if !quiz.IsAuthoredBy(userID) {
			p, err := s.plays.GetPlay(ctx, userID, roundID)
			if err != nil {
				return err
			}
			if !p.IsSubmitted {
				return domain.ErrNotFinished
			}
			play = &p
		}

		var (
			playAnswers  []domain.PlayAnswer
			roundAnswers []domain.PlayAnswer
			playCount    int
			author       domain.User
		)
		g, gctx := errgroup.WithContext(ctx)
		if play != nil {
			g.Go(func() error {
				var err error
				playAnswers, err = s.plays.ListPlayAnswers(gctx, play.ID)
				return err
			})
		}
		g.Go(func() error {
			var err error
			roundAnswers, err = s.plays.ListRoundAnswers(gctx, roundID)
			return err
		})
		g.Go(func() error {
			var err error
			playCount, err = s.plays.CountPlays(gctx, roundID)
			return err
		})
		g.Go(func() error {
			var err error
			author, err = s.lookupUser(gctx, quiz.AuthorID)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		out = Review{
			PlayAnswers:         playAnswers,
			Quiz:                quiz,
			Author:              author,
			PlayCount:           playCount,
			ChoicesByQuestionID: scoring.ChoiceDistribution(quiz, roundAnswers),
		}
		if play != nil {
			summary := newPlaySummary(*play, nil)
			out.Play = &summary
		}
		return nil
	})
	return out, err
}

// lookupUser resolves one user; an unknown id yields a user with an empty name.
func (s *Service) lookupUser(ctx context.Context, userID int64) (domain.User, error) {
	users, err := s.users.GetUsers(ctx, []int64{userID})
	if err != nil {
		return domain.User{}, err
	}
	if u, ok := users[userID]; ok {
		return u, nil
	}
	return domain.User{ID: userID}, nil
}
