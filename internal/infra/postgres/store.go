package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateCheckViolation      = "23514"
	sqlStateForeignKeyViolation = "23503"

	playsRoundForeignKey = "plays_round_id_fkey"
)

// Store persists tournaments, rounds, plays and answers with bun.
// Uniqueness of (user, round) plays and of quiz-per-round is left to the schema.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func sqlState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func constraintName(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('n')
	}
	return ""
}

// notFound maps sql.ErrNoRows to the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func (s *Store) GetUsers(ctx context.Context, ids []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []userModel
	if err := s.db.NewSelect().Model(&models).Where("u.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	for _, m := range models {
		out[m.ID] = domain.User{ID: m.ID, Username: m.Username}
	}
	return out, nil
}

func (s *Store) CreateTournament(ctx context.Context, t *domain.Tournament) error {
	m := &tournamentModel{
		CommunityID: t.CommunityID,
		Name:        t.Name,
		IsActive:    t.IsActive,
		TimeCreated: t.TimeCreated,
	}
	if _, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert tournament: %w", err)
	}
	t.ID = m.ID
	return nil
}

func (s *Store) GetTournament(ctx context.Context, tournamentID int64) (domain.Tournament, error) {
	var m tournamentModel
	err := s.db.NewSelect().Model(&m).Where("t.id = ?", tournamentID).Scan(ctx)
	if err != nil {
		return domain.Tournament{}, notFound(err, domain.ErrTournamentNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) ListTournaments(ctx context.Context, communityID int64) ([]domain.Tournament, error) {
	var models []tournamentModel
	err := s.db.NewSelect().Model(&models).
		Where("t.community_id = ?", communityID).
		OrderExpr("t.time_created DESC, t.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select tournaments: %w", err)
	}
	out := make([]domain.Tournament, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) UpdateTournament(ctx context.Context, t domain.Tournament) error {
	res, err := s.db.NewUpdate().Model(&tournamentModel{ID: t.ID, Name: t.Name, IsActive: t.IsActive}).
		Column("name", "is_active").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tournament: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

// DeleteTournament relies on ON DELETE CASCADE for rounds, plays and answers.
func (s *Store) DeleteTournament(ctx context.Context, tournamentID int64) error {
	res, err := s.db.NewDelete().Model((*tournamentModel)(nil)).Where("id = ?", tournamentID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete tournament: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTournamentNotFound
	}
	return nil
}

func (s *Store) CreateRound(ctx context.Context, r *domain.Round) error {
	m := &roundModel{
		TournamentID: r.TournamentID,
		QuizID:       r.QuizID,
		StartTime:    r.StartTime,
		FinishTime:   r.FinishTime,
	}
	_, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx)
	switch sqlState(err) {
	case "":
	case sqlStateUniqueViolation:
		return domain.ErrQuizAlreadyScheduled
	case sqlStateCheckViolation:
		return domain.ErrInvalidRoundWindow
	}
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	r.ID = m.ID
	return nil
}

func (s *Store) UpdateRound(ctx context.Context, r domain.Round) error {
	res, err := s.db.NewUpdate().
		Model(&roundModel{ID: r.ID, QuizID: r.QuizID, StartTime: r.StartTime, FinishTime: r.FinishTime}).
		Column("quiz_id", "start_time", "finish_time").
		WherePK().
		Exec(ctx)
	switch sqlState(err) {
	case "":
	case sqlStateUniqueViolation:
		return domain.ErrQuizAlreadyScheduled
	case sqlStateCheckViolation:
		return domain.ErrInvalidRoundWindow
	}
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRoundNotFound
	}
	return nil
}

func (s *Store) GetRound(ctx context.Context, roundID int64) (domain.Round, error) {
	var m roundModel
	if err := s.db.NewSelect().Model(&m).Where("r.id = ?", roundID).Scan(ctx); err != nil {
		return domain.Round{}, notFound(err, domain.ErrRoundNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) ListRounds(ctx context.Context, tournamentID int64) ([]domain.Round, error) {
	var models []roundModel
	err := s.db.NewSelect().Model(&models).
		Where("r.tournament_id = ?", tournamentID).
		OrderExpr("r.start_time, r.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}
	out := make([]domain.Round, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) CountRounds(ctx context.Context, tournamentID int64) (int, error) {
	return s.db.NewSelect().Model((*roundModel)(nil)).Where("r.tournament_id = ?", tournamentID).Count(ctx)
}

func (s *Store) ScheduledQuizIDs(ctx context.Context, quizIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}
	var ids []int64
	err := s.db.NewSelect().Model((*roundModel)(nil)).
		Column("quiz_id").
		Where("r.quiz_id IN (?)", bun.In(quizIDs)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select scheduled quizzes: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// DeleteRound relies on ON DELETE CASCADE for plays and answers.
func (s *Store) DeleteRound(ctx context.Context, roundID int64) error {
	res, err := s.db.NewDelete().Model((*roundModel)(nil)).Where("id = ?", roundID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete round: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRoundNotFound
	}
	return nil
}

func (s *Store) GetPlay(ctx context.Context, userID, roundID int64) (domain.Play, error) {
	var m playModel
	err := s.db.NewSelect().Model(&m).
		Where("p.user_id = ?", userID).
		Where("p.round_id = ?", roundID).
		Scan(ctx)
	if err != nil {
		return domain.Play{}, notFound(err, domain.ErrPlayNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) CreatePlay(ctx context.Context, p *domain.Play) error {
	m := newPlayModel(*p)
	_, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx)
	switch sqlState(err) {
	case "":
	case sqlStateUniqueViolation:
		return domain.ErrPlayExists
	case sqlStateForeignKeyViolation:
		if constraintName(err) == playsRoundForeignKey {
			return domain.ErrRoundNotFound
		}
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert play: %w", err)
	}
	p.ID = m.ID
	return nil
}

// SubmitPlay flips the play to submitted and inserts its answers in one transaction.
// The update only matches an unsubmitted row, so a concurrent submit loses cleanly.
func (s *Store) SubmitPlay(ctx context.Context, p domain.Play, answers []domain.PlayAnswer) ([]domain.PlayAnswer, error) {
	models := make([]playAnswerModel, len(answers))
	for i, a := range answers {
		models[i] = playAnswerModel{PlayID: p.ID, QuestionID: a.QuestionID, OptionID: a.OptionID}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(newPlayModel(p)).
			Column("is_submitted", "result", "finish_time", "client_start_time", "client_finish_time").
			Where("p.id = ?", p.ID).
			Where("p.is_submitted = FALSE").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update play: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrAlreadyPlayed
		}
		if len(models) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&models).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return answersToDomain(models), nil
}

func (s *Store) ListPlays(ctx context.Context, roundID int64) ([]domain.Play, error) {
	var models []playModel
	err := s.db.NewSelect().Model(&models).Where("p.round_id = ?", roundID).OrderExpr("p.id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select plays: %w", err)
	}
	return playsToDomain(models), nil
}

func (s *Store) ListUserPlays(ctx context.Context, userID, tournamentID int64) ([]domain.Play, error) {
	var models []playModel
	err := s.db.NewSelect().Model(&models).
		Join("JOIN rounds AS r ON r.id = p.round_id").
		Where("p.user_id = ?", userID).
		Where("r.tournament_id = ?", tournamentID).
		OrderExpr("p.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select user plays: %w", err)
	}
	return playsToDomain(models), nil
}

func (s *Store) ListPlayAnswers(ctx context.Context, playID int64) ([]domain.PlayAnswer, error) {
	var models []playAnswerModel
	err := s.db.NewSelect().Model(&models).Where("pa.play_id = ?", playID).OrderExpr("pa.id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select play answers: %w", err)
	}
	return answersToDomain(models), nil
}

func (s *Store) ListRoundAnswers(ctx context.Context, roundID int64) ([]domain.PlayAnswer, error) {
	var models []playAnswerModel
	err := s.db.NewSelect().Model(&models).
		Join("JOIN plays AS p ON p.id = pa.play_id").
		Where("p.round_id = ?", roundID).
		OrderExpr("pa.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select round answers: %w", err)
	}
	return answersToDomain(models), nil
}

func (s *Store) CountPlays(ctx context.Context, roundID int64) (int, error) {
	return s.db.NewSelect().Model((*playModel)(nil)).Where("p.round_id = ?", roundID).Count(ctx)
}
