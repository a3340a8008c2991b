package domain

import "errors"

// Kind groups errors by how the boundary should answer them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindForbidden
)

type classification struct {
	err  error
	code string
	kind Kind
}

var classifications = []classification{
	{ErrRoundNotFound, "round_not_found", KindNotFound},
	{ErrPlayNotFound, "play_not_found", KindNotFound},
	{ErrQuizNotFound, "quiz_not_found", KindNotFound},
	{ErrTournamentNotFound, "tournament_not_found", KindNotFound},
	{ErrUserNotFound, "user_not_found", KindNotFound},

	{ErrRoundNotActive, "round_not_active", KindValidation},
	{ErrSelfPlay, "self_play", KindValidation},
	{ErrAlreadyPlayed, "already_played", KindValidation},
	{ErrOptionMismatch, "option_mismatch", KindValidation},
	{ErrAnswersMissing, "answers_missing", KindValidation},
	{ErrInvalidRoundWindow, "invalid_round_window", KindValidation},
	{ErrQuizNotFinalized, "quiz_not_finalized", KindValidation},
	{ErrQuizOtherCommunity, "quiz_other_community", KindValidation},
	{ErrQuizAlreadyScheduled, "quiz_already_scheduled", KindValidation},
	{ErrTooManyRounds, "too_many_rounds", KindValidation},
	{ErrInvalidTournament, "invalid_tournament", KindValidation},

	{ErrNotFinished, "not_finished", KindForbidden},
}

// Classify returns the stable code and kind for err. Unknown errors are internal.
func Classify(err error) (string, Kind) {
	for _, c := range classifications {
		if errors.Is(err, c.err) {
			return c.code, c.kind
		}
	}
	return "internal_error", KindInternal
}
