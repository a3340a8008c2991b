package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/metrics"
	"github.com/pyvlad/quizzz-spa/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRoundsPerTournament caps how many rounds one tournament may hold.
const DefaultRoundsPerTournament = 100

// QuizRepository loads finalized quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizCatalog lists the quizzes a community could schedule.
type QuizCatalog interface {
	// ListFinalizedQuizzes returns the community's finalized quizzes, newest first.
	// Questions are not loaded.
	ListFinalizedQuizzes(ctx context.Context, communityID int64) ([]domain.Quiz, error)
}

// RoundRepository stores tournaments and their rounds.
type RoundRepository interface {
	CreateTournament(ctx context.Context, t *domain.Tournament) error
	GetTournament(ctx context.Context, tournamentID int64) (domain.Tournament, error)
	ListTournaments(ctx context.Context, communityID int64) ([]domain.Tournament, error)
	UpdateTournament(ctx context.Context, t domain.Tournament) error
	// DeleteTournament removes the tournament with its rounds, plays and answers.
	DeleteTournament(ctx context.Context, tournamentID int64) error

	// CreateRound fails with domain.ErrQuizAlreadyScheduled when the quiz backs another round.
	CreateRound(ctx context.Context, r *domain.Round) error
	// UpdateRound replaces the quiz and window of an existing round.
	UpdateRound(ctx context.Context, r domain.Round) error
	GetRound(ctx context.Context, roundID int64) (domain.Round, error)
	ListRounds(ctx context.Context, tournamentID int64) ([]domain.Round, error)
	CountRounds(ctx context.Context, tournamentID int64) (int, error)
	// ScheduledQuizIDs reports which of quizIDs already back a round.
	ScheduledQuizIDs(ctx context.Context, quizIDs []int64) (map[int64]bool, error)
	// DeleteRound removes the round together with its plays and answers.
	DeleteRound(ctx context.Context, roundID int64) error
}

// PlayRepository stores plays and their answers.
type PlayRepository interface {
	GetPlay(ctx context.Context, userID, roundID int64) (domain.Play, error)
	// CreatePlay inserts a new play and fills its ID. It returns domain.ErrPlayExists
	// when the (user, round) uniqueness constraint rejects the row.
	CreatePlay(ctx context.Context, p *domain.Play) error
	// SubmitPlay writes the answers and the submitted play in one transaction.
	// It returns domain.ErrAlreadyPlayed if the play was submitted concurrently.
	SubmitPlay(ctx context.Context, p domain.Play, answers []domain.PlayAnswer) ([]domain.PlayAnswer, error)
	ListPlays(ctx context.Context, roundID int64) ([]domain.Play, error)
	ListUserPlays(ctx context.Context, userID, tournamentID int64) ([]domain.Play, error)
	ListPlayAnswers(ctx context.Context, playID int64) ([]domain.PlayAnswer, error)
	ListRoundAnswers(ctx context.Context, roundID int64) ([]domain.PlayAnswer, error)
	CountPlays(ctx context.Context, roundID int64) (int, error)
}

// UserDirectory resolves user ids to display names. Unknown ids are left out of the result.
type UserDirectory interface {
	GetUsers(ctx context.Context, userIDs []int64) (map[int64]domain.User, error)
}

// StandingsCache keeps computed tournament standings. Implementations are best-effort.
//
// Every Invalidate bumps the tournament's version. A reader takes the Version before
// loading and passes it to Set, which drops the entries if the version has moved:
// standings computed from data older than the last invalidation are never stored.
type StandingsCache interface {
	Get(ctx context.Context, tournamentID int64) ([]scoring.TournamentEntry, bool)
	// Version returns false when the version cannot be read; nothing should be cached then.
	Version(ctx context.Context, tournamentID int64) (int64, bool)
	Set(ctx context.Context, tournamentID, version int64, entries []scoring.TournamentEntry)
	Invalidate(ctx context.Context, tournamentID int64)
}

// Service contains the round lifecycle, play and scoring use cases.
type Service struct {
	rounds    RoundRepository
	plays     PlayRepository
	quizzes   QuizRepository
	catalog   QuizCatalog
	users     UserDirectory
	standings StandingsCache
	feed      *StandingsFeed

	logger      *slog.Logger
	metrics     *metrics.Recorder
	tracer      trace.Tracer
	now         func() time.Time
	roundsLimit int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now; tests use it for deterministic windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStandingsCache(c StandingsCache) Option {
	return func(s *Service) { s.standings = c }
}

// WithQuizCatalog enables ListQuizPool.
func WithQuizCatalog(c QuizCatalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithFeed shares a standings feed between services.
func WithFeed(f *StandingsFeed) Option {
	return func(s *Service) {
		if f != nil {
			s.feed = f
		}
	}
}

func WithRoundsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.roundsLimit = n
		}
	}
}

func NewService(rounds RoundRepository, plays PlayRepository, quizzes QuizRepository, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		rounds:      rounds,
		plays:       plays,
		quizzes:     quizzes,
		users:       users,
		standings:   noopStandingsCache{},
		feed:        NewStandingsFeed(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/pyvlad/quizzz-spa/internal/app"),
		now:         time.Now,
		roundsLimit: DefaultRoundsPerTournament,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe wraps an operation with a span, a latency sample and a log line on failure.
func (s *Service) observe(ctx context.Context, op string, fields []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(fields...))
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	s.metrics.ObserveOperation(op, time.Since(started))
	if err == nil {
		return nil
	}

	args := make([]any, 0, 2*len(fields)+4)
	for _, f := range fields {
		args = append(args, string(f.Key), f.Value.AsInterface())
	}
	code, kind := domain.Classify(err)
	args = append(args, "code", code, "error", err)
	if kind == domain.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, op+" failed", args...)
	} else {
		s.logger.WarnContext(ctx, op+" rejected", args...)
	}
	s.metrics.OperationFailed(op, code)
	return err
}

func roundFields(userID, roundID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("user_id", userID),
		attribute.Int64("round_id", roundID),
	}
}

type noopStandingsCache struct{}

func (noopStandingsCache) Get(context.Context, int64) ([]scoring.TournamentEntry, bool) {
	return nil, false
}
func (noopStandingsCache) Version(context.Context, int64) (int64, bool) { return 0, false }
func (noopStandingsCache) Set(context.Context, int64, int64, []scoring.TournamentEntry) {}
func (noopStandingsCache) Invalidate(context.Context, int64)                            {}
