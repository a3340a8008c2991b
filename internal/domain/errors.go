package domain

import "errors"

// Lookup failures.
var (
	// ErrRoundNotFound is returned when a round id does not exist.
	ErrRoundNotFound = errors.New("round not found")
	// ErrPlayNotFound is returned when the user never started the round.
	ErrPlayNotFound = errors.New("play not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrTournamentNotFound is returned for unknown tournament ids.
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")
)

// User-correctable rejections.
var (
	ErrRoundNotActive = errors.New("this round is not available (already finished or not started yet)")
	ErrSelfPlay       = errors.New("you cannot play your own quiz")
	ErrAlreadyPlayed  = errors.New("you have already played this round")
	// ErrOptionMismatch means a submitted option does not belong to its question.
	ErrOptionMismatch = errors.New("option ids do not match")
	ErrNotFinished    = errors.New("you have not finished this round yet")
	ErrAnswersMissing = errors.New("answers field is required")

	ErrInvalidRoundWindow   = errors.New("finish time must be after start time")
	ErrQuizNotFinalized     = errors.New("quiz has not been finalized")
	ErrQuizOtherCommunity   = errors.New("quiz does not belong to this community")
	ErrQuizAlreadyScheduled = errors.New("quiz is already used by another round")
	ErrTooManyRounds        = errors.New("too many rounds, please start a new tournament")
	ErrInvalidTournament    = errors.New("tournament name is required")
)

// ErrPlayExists reports a lost get-or-create race on (user, round). It never leaves the core.
var ErrPlayExists = errors.New("play already exists")

// ErrInvalidQuiz means a finalized quiz breaks the one-correct-option rule.
// It is an internal fault, never user input.
var ErrInvalidQuiz = errors.New("quiz must have exactly one correct option per question")
