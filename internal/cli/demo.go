package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/infra/memory"
)

// seedDemo fills an in-memory store with one community tournament and a running round,
// so the API is usable without Postgres. Users are identified by X-User-ID 1..3.
func seedDemo(ctx context.Context, store *memory.Store, now time.Time, logger *slog.Logger) *memory.StaticQuizLoader {
	for _, u := range []domain.User{{ID: 1, Username: "ann"}, {ID: 2, Username: "ben"}, {ID: 3, Username: "cid"}} {
		store.PutUser(u)
	}

	quizzes := []domain.Quiz{
		{
			ID:           1,
			Name:         "Warm-up",
			Description:  "Two easy questions",
			Introduction: "Answer fast: time counts.",
			IsFinalized:  true,
			AuthorID:     1,
			CommunityID:  1,
			TimeCreated:  now.Add(-48 * time.Hour),
			Questions: []domain.Question{
				{
					ID:          1,
					Text:        "What is 2 + 2?",
					Explanation: "Basic addition.",
					Options: []domain.Option{
						{ID: 1, Text: "3"},
						{ID: 2, Text: "4", IsCorrect: true},
						{ID: 3, Text: "5"},
					},
				},
				{
					ID:          2,
					Text:        "Which planet is closest to the sun?",
					Explanation: "Mercury orbits at about 0.39 AU.",
					Options: []domain.Option{
						{ID: 4, Text: "Venus"},
						{ID: 5, Text: "Mercury", IsCorrect: true},
					},
				},
			},
		},
		{
			ID:          2,
			Name:        "Capitals",
			Description: "Waiting in the pool for a round",
			IsFinalized: true,
			AuthorID:    2,
			CommunityID: 1,
			TimeCreated: now.Add(-24 * time.Hour),
			Questions: []domain.Question{
				{
					ID:   3,
					Text: "Capital of Italy?",
					Options: []domain.Option{
						{ID: 6, Text: "Milan"},
						{ID: 7, Text: "Rome", IsCorrect: true},
					},
				},
			},
		},
	}

	tour := domain.Tournament{CommunityID: 1, Name: "Demo cup", IsActive: true, TimeCreated: now}
	if err := store.CreateTournament(ctx, &tour); err != nil {
		logger.Warn("demo seed failed", "error", err)
		return memory.NewStaticQuizLoader(quizzes...)
	}
	round := domain.Round{TournamentID: tour.ID, QuizID: 1, StartTime: now.Add(-time.Hour), FinishTime: now.Add(7 * 24 * time.Hour)}
	if err := store.CreateRound(ctx, &round); err != nil {
		logger.Warn("demo seed failed", "error", err)
	}
	logger.Info("running on in-memory demo data", "tournament_id", tour.ID, "round_id", round.ID)
	return memory.NewStaticQuizLoader(quizzes...)
}
