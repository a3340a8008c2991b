package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/app"
	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/infra/memory"
)

func TestUpdateTournament(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.svc.UpdateTournament(ctx, h.tour.ID, "   ", true); !errors.Is(err, domain.ErrInvalidTournament) {
		t.Fatalf("expected ErrInvalidTournament, got %v", err)
	}
	if _, err := h.svc.UpdateTournament(ctx, 999, "Autumn cup", true); !errors.Is(err, domain.ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}

	got, err := h.svc.UpdateTournament(ctx, h.tour.ID, " Summer cup ", false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Summer cup" || got.IsActive || got.CommunityID != h.tour.CommunityID {
		t.Fatalf("unexpected tournament %+v", got)
	}
	stored, _ := h.svc.GetTournament(ctx, h.tour.ID)
	if stored.Name != "Summer cup" || stored.IsActive {
		t.Fatalf("update not stored: %+v", stored)
	}
}

func TestDeleteTournamentCascades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, makeQuiz(1, 10), makeQuiz(2, 10))
	r1 := h.makeRound(t, 1)
	r2 := h.makeRound(t, 2)
	h.makeSubmittedPlay(t, 20, r1, time.Second)
	h.makeSubmittedPlay(t, 30, r2, time.Second)
	if _, err := h.svc.TournamentStandings(ctx, h.tour.ID); err != nil {
		t.Fatalf("standings: %v", err)
	}

	if err := h.svc.DeleteTournament(ctx, h.tour.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, r := range []domain.Round{r1, r2} {
		if _, err := h.svc.GetRound(ctx, 20, r.ID); !errors.Is(err, domain.ErrRoundNotFound) {
			t.Fatalf("round %d: expected ErrRoundNotFound, got %v", r.ID, err)
		}
		if n, _ := h.store.CountPlays(ctx, r.ID); n != 0 {
			t.Fatalf("round %d: expected plays removed, got %d", r.ID, n)
		}
	}
	if _, err := h.svc.TournamentStandings(ctx, h.tour.ID); !errors.Is(err, domain.ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound from standings, got %v", err)
	}
	if err := h.svc.DeleteTournament(ctx, h.tour.ID); !errors.Is(err, domain.ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound on second delete, got %v", err)
	}

	// The quizzes are free to be scheduled again.
	other, err := h.svc.CreateTournament(ctx, 1, "Rematch", true)
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if _, err := h.svc.CreateRound(ctx, other.ID, 1, base, base.Add(time.Hour)); err != nil {
		t.Fatalf("reschedule quiz: %v", err)
	}
}

func TestDeleteTournamentClosesSubscriptions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ch, cancel, err := h.svc.SubscribeStandings(ctx, h.tour.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch

	if err := h.svc.DeleteTournament(ctx, h.tour.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected subscription to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription still open after delete")
	}
}

func TestGetRoundShowsCallerState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, makeQuiz(1, 10))
	r := h.makeRound(t, 1)

	before, err := h.svc.GetRound(ctx, 20, r.ID)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if before.UserPlayID != nil || before.Status != domain.RoundCurrent || before.Quiz.Author.Username != "ann" {
		t.Fatalf("unexpected listing before play %+v", before)
	}

	h.makeSubmittedPlay(t, 20, r, time.Second)
	after, err := h.svc.GetRound(ctx, 20, r.ID)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if after.UserPlayID == nil || after.UserPlayIsSubmitted == nil || !*after.UserPlayIsSubmitted {
		t.Fatalf("expected submitted play in listing, got %+v", after)
	}

	author, _ := h.svc.GetRound(ctx, 10, r.ID)
	if !author.IsAuthor {
		t.Fatalf("expected ann to see herself as author")
	}
	if _, err := h.svc.GetRound(ctx, 20, 999); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}

func TestUpdateRound(t *testing.T) {
	ctx := context.Background()
	draft := makeQuiz(3, 10)
	draft.IsFinalized = false
	foreign := makeQuiz(4, 10)
	foreign.CommunityID = 2
	h := newHarness(t, makeQuiz(1, 10), makeQuiz(2, 30), draft, foreign, makeQuiz(5, 10))
	r := h.makeRound(t, 1)
	h.makeRound(t, 5)

	cases := []struct {
		name   string
		quizID int64
		start  time.Time
		finish time.Time
		want   error
	}{
		{"inverted window", 1, base, base.Add(-time.Minute), domain.ErrInvalidRoundWindow},
		{"draft quiz", 3, base, base.Add(time.Hour), domain.ErrQuizNotFinalized},
		{"other community", 4, base, base.Add(time.Hour), domain.ErrQuizOtherCommunity},
		{"quiz of another round", 5, base, base.Add(time.Hour), domain.ErrQuizAlreadyScheduled},
		{"unknown quiz", 99, base, base.Add(time.Hour), domain.ErrQuizNotFound},
	}
	for _, tc := range cases {
		if _, err := h.svc.UpdateRound(ctx, r.ID, tc.quizID, tc.start, tc.finish); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if _, err := h.svc.UpdateRound(ctx, 999, 2, base, base.Add(time.Hour)); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}

	// Keeping the same quiz only moves the window.
	moved, err := h.svc.UpdateRound(ctx, r.ID, 1, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("move window: %v", err)
	}
	if !moved.FinishTime.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected finish %v", moved.FinishTime)
	}

	swapped, err := h.svc.UpdateRound(ctx, r.ID, 2, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("swap quiz: %v", err)
	}
	if swapped.QuizID != 2 || swapped.TournamentID != h.tour.ID {
		t.Fatalf("unexpected round %+v", swapped)
	}
	listing, _ := h.svc.GetRound(ctx, 10, r.ID)
	if listing.IsAuthor || listing.Quiz.Author.Username != "cid" {
		t.Fatalf("listing still shows the old quiz: %+v", listing)
	}
}

func TestUpdateRoundRefreshesStandings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, makeQuiz(1, 10), makeQuiz(2, 30))
	r := h.makeRound(t, 1)
	h.makeSubmittedPlay(t, 20, r, time.Second)

	before, err := h.svc.TournamentStandings(ctx, h.tour.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if before[0].UserID != 10 && before[1].UserID != 10 {
		t.Fatalf("expected ann to earn the authoring point, got %+v", before)
	}

	if _, err := h.svc.UpdateRound(ctx, r.ID, 2, base, base.Add(time.Hour)); err != nil {
		t.Fatalf("update round: %v", err)
	}
	after, err := h.svc.TournamentStandings(ctx, h.tour.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	for _, e := range after {
		if e.UserID == 10 {
			t.Fatalf("authoring point must follow the new quiz, got %+v", after)
		}
	}
}

func TestListQuizPool(t *testing.T) {
	ctx := context.Background()
	older := makeQuiz(1, 10)
	older.TimeCreated = base.Add(-2 * time.Hour)
	newer := makeQuiz(2, 30)
	newer.TimeCreated = base.Add(-time.Hour)
	scheduled := makeQuiz(3, 10)
	draft := makeQuiz(4, 10)
	draft.IsFinalized = false
	foreign := makeQuiz(5, 10)
	foreign.CommunityID = 2
	h := newHarness(t, older, newer, scheduled, draft, foreign)
	h.makeRound(t, 3)

	pool, err := h.svc.ListQuizPool(ctx, 1)
	if err != nil {
		t.Fatalf("quiz pool: %v", err)
	}
	if len(pool) != 2 || pool[0].ID != 2 || pool[1].ID != 1 {
		t.Fatalf("expected quizzes 2 then 1, got %+v", pool)
	}
	if pool[0].Author.Username != "cid" || pool[1].Author.Username != "ann" {
		t.Fatalf("unexpected authors %+v", pool)
	}
}

func TestListQuizPoolWithoutCatalog(t *testing.T) {
	store := memory.NewStore()
	svc := app.NewService(store, store, memory.NewQuizRepository(memory.NewStaticQuizLoader(), time.Minute), store)
	if _, err := svc.ListQuizPool(context.Background(), 1); err == nil {
		t.Fatalf("expected an error without a catalog")
	}
}

func TestStartRoundUnknownUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, makeQuiz(1, 10))
	r := h.makeRound(t, 1)

	if _, err := h.svc.StartRound(ctx, 99, r.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n, _ := h.store.CountPlays(ctx, r.ID); n != 0 {
		t.Fatalf("unknown user must not get a play, got %d", n)
	}
}

// editableLoader serves a quiz whose content can change between loads.
type editableLoader struct {
	mu   sync.Mutex
	quiz domain.Quiz
}

func (l *editableLoader) finalize() {
	l.mu.Lock()
	l.quiz.IsFinalized = true
	l.mu.Unlock()
}

func (l *editableLoader) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quizID != l.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return l.quiz, nil
}

func TestCreateRoundSeesQuizFinalizedLater(t *testing.T) {
	ctx := context.Background()
	draft := makeQuiz(1, 10)
	draft.IsFinalized = false
	loader := &editableLoader{quiz: draft}
	store := memory.NewStore()
	svc := app.NewService(store, store, memory.NewQuizRepository(loader, time.Hour), store)

	tour, err := svc.CreateTournament(ctx, 1, "Cup", true)
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	if _, err := svc.CreateRound(ctx, tour.ID, 1, base, base.Add(time.Hour)); !errors.Is(err, domain.ErrQuizNotFinalized) {
		t.Fatalf("expected ErrQuizNotFinalized, got %v", err)
	}
	loader.finalize()
	if _, err := svc.CreateRound(ctx, tour.ID, 1, base, base.Add(time.Hour)); err != nil {
		t.Fatalf("create round after finalizing: %v", err)
	}
}

// interleavingPlays runs during once, right after a ListPlays result is taken.
type interleavingPlays struct {
	*memory.Store
	armed  atomic.Bool
	during func()
}

func (p *interleavingPlays) ListPlays(ctx context.Context, roundID int64) ([]domain.Play, error) {
	plays, err := p.Store.ListPlays(ctx, roundID)
	if p.armed.CompareAndSwap(true, false) {
		p.during()
	}
	return plays, err
}

func TestTournamentStandingsNotCachedAcrossSubmit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, u := range []domain.User{{ID: 10, Username: "ann"}, {ID: 20, Username: "ben"}, {ID: 30, Username: "cid"}} {
		store.PutUser(u)
	}
	now := base.Add(10 * time.Minute)
	plays := &interleavingPlays{Store: store}
	svc := app.NewService(store, plays, memory.NewQuizRepository(memory.NewStaticQuizLoader(makeQuiz(1, 10)), time.Minute), store,
		app.WithClock(func() time.Time { return now }),
		app.WithStandingsCache(memory.NewStandingsCache(0)),
	)

	tour, err := svc.CreateTournament(ctx, 1, "Cup", true)
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	r, err := svc.CreateRound(ctx, tour.ID, 1, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("create round: %v", err)
	}
	if _, err := svc.StartRound(ctx, 20, r.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// ben submits while the standings are being computed from the older play list.
	plays.during = func() {
		if _, err := svc.SubmitRound(ctx, 20, r.ID, domain.Submission{Answers: []domain.AnswerSubmission{
			{QuestionID: 11, OptionID: correctOption(1, 1)},
		}}); err != nil {
			t.Errorf("submit: %v", err)
		}
	}
	plays.armed.Store(true)
	if _, err := svc.TournamentStandings(ctx, tour.ID); err != nil {
		t.Fatalf("standings: %v", err)
	}

	got, err := svc.TournamentStandings(ctx, tour.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	for _, e := range got {
		if e.UserID == 20 {
			if e.PointsPlayed != 1 {
				t.Fatalf("expected ben's submitted point, got %+v", e)
			}
			return
		}
	}
	t.Fatalf("ben missing from standings %+v", got)
}
