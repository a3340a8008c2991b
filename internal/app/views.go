package app

import (
	"encoding/json"
	"time"

	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/scoring"
)

// PlayOption is an option as shown to a player: correctness withheld.
type PlayOption struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type PlayQuestion struct {
	ID      int64        `json:"id"`
	Text    string       `json:"text"`
	Options []PlayOption `json:"options"`
}

// PlayQuiz is the quiz snapshot returned by StartRound.
type PlayQuiz struct {
	PlayID       int64          `json:"-"`
	Name         string         `json:"name"`
	Introduction string         `json:"introduction"`
	Questions    []PlayQuestion `json:"questions"`
}

func newPlayQuiz(playID int64, quiz domain.Quiz) PlayQuiz {
	out := PlayQuiz{
		PlayID:       playID,
		Name:         quiz.Name,
		Introduction: quiz.Introduction,
		Questions:    make([]PlayQuestion, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		pq := PlayQuestion{ID: q.ID, Text: q.Text, Options: make([]PlayOption, 0, len(q.Options))}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, PlayOption{ID: o.ID, Text: o.Text})
		}
		out.Questions = append(out.Questions, pq)
	}
	return out
}

// PlaySummary describes a play together with its derived timings and score.
type PlaySummary struct {
	ID                   int64               `json:"id"`
	RoundID              int64               `json:"round"`
	IsSubmitted          bool                `json:"is_submitted"`
	Result               *int                `json:"result"`
	StartTime            time.Time           `json:"start_time"`
	FinishTime           *time.Time          `json:"finish_time"`
	ClientStartTime      *time.Time          `json:"client_start_time"`
	ClientFinishTime     *time.Time          `json:"client_finish_time"`
	ServerElapsedSeconds *float64            `json:"server_time"`
	ClientElapsedSeconds *float64            `json:"client_time"`
	Score                float64             `json:"score"`
	Answers              []domain.PlayAnswer `json:"answers,omitempty"`
}

func newPlaySummary(p domain.Play, answers []domain.PlayAnswer) PlaySummary {
	s := PlaySummary{
		ID:               p.ID,
		RoundID:          p.RoundID,
		IsSubmitted:      p.IsSubmitted,
		Result:           p.Result,
		StartTime:        p.StartTime,
		FinishTime:       p.FinishTime,
		ClientStartTime:  p.ClientStartTime,
		ClientFinishTime: p.ClientFinishTime,
		Score:            scoring.PlayScore(p),
		Answers:          answers,
	}
	if v, ok := p.ServerElapsed(); ok {
		s.ServerElapsedSeconds = &v
	}
	if v, ok := p.ClientElapsed(); ok {
		s.ClientElapsedSeconds = &v
	}
	return s
}

// Review is everything shown after a round has been played (or to its author).
type Review struct {
	Play                *PlaySummary         `json:"play"`
	PlayAnswers         []domain.PlayAnswer  `json:"play_answers"`
	Quiz                domain.Quiz          `json:"quiz"`
	Author              domain.User          `json:"author"`
	PlayCount           int                  `json:"play_count"`
	ChoicesByQuestionID scoring.ChoiceCounts `json:"choices_by_question_id"`
}

// MarshalJSON renders a missing play as an empty object.
func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	var play any = struct{}{}
	if r.Play != nil {
		play = r.Play
	}
	answers := r.PlayAnswers
	if answers == nil {
		answers = []domain.PlayAnswer{}
	}
	return json.Marshal(struct {
		alias
		Play        any                 `json:"play"`
		PlayAnswers []domain.PlayAnswer `json:"play_answers"`
	}{alias: alias(r), Play: play, PlayAnswers: answers})
}

// QuizSummary is the catalog information listed next to a round and in the quiz pool.
type QuizSummary struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Author      domain.User `json:"user"`
	TimeCreated time.Time   `json:"time_created"`
}

func newQuizSummary(q domain.Quiz, names map[int64]string) QuizSummary {
	return QuizSummary{
		ID:          q.ID,
		Name:        q.Name,
		Description: q.Description,
		Author:      domain.User{ID: q.AuthorID, Username: names[q.AuthorID]},
		TimeCreated: q.TimeCreated,
	}
}

// RoundListing is a round as seen by one user.
type RoundListing struct {
	domain.Round
	Status              domain.RoundStatus `json:"status"`
	TimeLeft            domain.TimeLeft    `json:"time_left"`
	Quiz                QuizSummary        `json:"quiz"`
	IsAuthor            bool               `json:"is_author"`
	UserPlayID          *int64             `json:"user_play_id"`
	UserPlayIsSubmitted *bool              `json:"user_play_is_submitted"`
}

// StandingsUpdate is one snapshot pushed to live standings subscribers.
type StandingsUpdate struct {
	TournamentID int64                     `json:"tournament_id"`
	Entries      []scoring.TournamentEntry `json:"entries"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}
