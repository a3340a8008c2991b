package postgres

import (
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull"`
}

type tournamentModel struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID          int64     `bun:"id,pk,autoincrement"`
	CommunityID int64     `bun:"community_id,notnull"`
	Name        string    `bun:"name,notnull"`
	IsActive    bool      `bun:"is_active,notnull"`
	TimeCreated time.Time `bun:"time_created,notnull"`
}

func (m tournamentModel) toDomain() domain.Tournament {
	return domain.Tournament{
		ID:          m.ID,
		CommunityID: m.CommunityID,
		Name:        m.Name,
		IsActive:    m.IsActive,
		TimeCreated: m.TimeCreated,
	}
}

type roundModel struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	TournamentID int64     `bun:"tournament_id,notnull"`
	QuizID       int64     `bun:"quiz_id,notnull"`
	StartTime    time.Time `bun:"start_time,notnull"`
	FinishTime   time.Time `bun:"finish_time,notnull"`
}

func (m roundModel) toDomain() domain.Round {
	return domain.Round{
		ID:           m.ID,
		TournamentID: m.TournamentID,
		QuizID:       m.QuizID,
		StartTime:    m.StartTime,
		FinishTime:   m.FinishTime,
	}
}

type playModel struct {
	bun.BaseModel `bun:"table:plays,alias:p"`

	ID               int64      `bun:"id,pk,autoincrement"`
	UserID           int64      `bun:"user_id,notnull"`
	RoundID          int64      `bun:"round_id,notnull"`
	IsSubmitted      bool       `bun:"is_submitted,notnull"`
	Result           *int       `bun:"result"`
	StartTime        time.Time  `bun:"start_time,notnull"`
	FinishTime       *time.Time `bun:"finish_time"`
	ClientStartTime  *time.Time `bun:"client_start_time"`
	ClientFinishTime *time.Time `bun:"client_finish_time"`
}

func newPlayModel(p domain.Play) *playModel {
	return &playModel{
		ID:               p.ID,
		UserID:           p.UserID,
		RoundID:          p.RoundID,
		IsSubmitted:      p.IsSubmitted,
		Result:           p.Result,
		StartTime:        p.StartTime,
		FinishTime:       p.FinishTime,
		ClientStartTime:  p.ClientStartTime,
		ClientFinishTime: p.ClientFinishTime,
	}
}

func (m playModel) toDomain() domain.Play {
	return domain.Play{
		ID:               m.ID,
		UserID:           m.UserID,
		RoundID:          m.RoundID,
		IsSubmitted:      m.IsSubmitted,
		Result:           m.Result,
		StartTime:        m.StartTime,
		FinishTime:       m.FinishTime,
		ClientStartTime:  m.ClientStartTime,
		ClientFinishTime: m.ClientFinishTime,
	}
}

type playAnswerModel struct {
	bun.BaseModel `bun:"table:play_answers,alias:pa"`

	ID         int64  `bun:"id,pk,autoincrement"`
	PlayID     int64  `bun:"play_id,notnull"`
	QuestionID int64  `bun:"question_id,notnull"`
	OptionID   *int64 `bun:"option_id"`
}

func (m playAnswerModel) toDomain() domain.PlayAnswer {
	return domain.PlayAnswer{ID: m.ID, PlayID: m.PlayID, QuestionID: m.QuestionID, OptionID: m.OptionID}
}

func playsToDomain(models []playModel) []domain.Play {
	out := make([]domain.Play, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out
}

func answersToDomain(models []playAnswerModel) []domain.PlayAnswer {
	out := make([]domain.PlayAnswer, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out
}
