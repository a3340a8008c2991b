package domain

import "time"

// User is the minimal identity the scoring core needs (the directory itself is external).
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Option is a possible answer for a question.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is an ordered multiple-choice question.
type Question struct {
	ID          int64    `json:"id"`
	Text        string   `json:"text"`
	Explanation string   `json:"explanation"`
	Options     []Option `json:"options"`
}

// Quiz is a read-only snapshot of a catalog quiz.
type Quiz struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Introduction string     `json:"introduction"`
	IsFinalized  bool       `json:"is_finalized"`
	AuthorID     int64      `json:"author_id"`
	CommunityID  int64      `json:"community_id"`
	TimeCreated  time.Time  `json:"time_created"`
	Questions    []Question `json:"questions"`
}

// Tournament groups rounds inside a community.
type Tournament struct {
	ID          int64     `json:"id"`
	CommunityID int64     `json:"community_id"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	TimeCreated time.Time `json:"time_created"`
}

// Round pairs one finalized quiz with an attempt window.
type Round struct {
	ID           int64     `json:"id"`
	TournamentID int64     `json:"tournament_id"`
	QuizID       int64     `json:"quiz_id"`
	StartTime    time.Time `json:"start_time"`
	FinishTime   time.Time `json:"finish_time"`
}

// Play is one user's single attempt at a round.
type Play struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	RoundID          int64      `json:"round_id"`
	IsSubmitted      bool       `json:"is_submitted"`
	Result           *int       `json:"result"`
	StartTime        time.Time  `json:"start_time"`
	FinishTime       *time.Time `json:"finish_time"`
	ClientStartTime  *time.Time `json:"client_start_time"`
	ClientFinishTime *time.Time `json:"client_finish_time"`
}

// ServerElapsed returns finish-start in seconds, or false when the play has no finish time.
func (p Play) ServerElapsed() (float64, bool) {
	if p.FinishTime == nil || p.StartTime.IsZero() {
		return 0, false
	}
	return p.FinishTime.Sub(p.StartTime).Seconds(), true
}

// ClientElapsed is the client-reported duration; informational only.
func (p Play) ClientElapsed() (float64, bool) {
	if p.ClientStartTime == nil || p.ClientFinishTime == nil {
		return 0, false
	}
	return p.ClientFinishTime.Sub(*p.ClientStartTime).Seconds(), true
}

// PlayAnswer records the selected option for one question; a nil OptionID means skipped.
type PlayAnswer struct {
	ID         int64  `json:"id"`
	PlayID     int64  `json:"play_id"`
	QuestionID int64  `json:"question_id"`
	OptionID   *int64 `json:"option_id"`
}

// AnswerSubmission is one entry of a submitted answer list.
type AnswerSubmission struct {
	QuestionID int64  `json:"question_id"`
	OptionID   *int64 `json:"option_id"`
}

// Submission is the full payload of a SubmitRound call.
type Submission struct {
	Answers          []AnswerSubmission
	ClientStartTime  *time.Time
	ClientFinishTime *time.Time
}
