package domain

// Validate checks that every question of a finalized quiz has exactly one correct option.
func (q Quiz) Validate() error {
	for _, question := range q.Questions {
		correct := 0
		for _, opt := range question.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return ErrInvalidQuiz
		}
	}
	return nil
}

// IsAuthoredBy reports whether userID wrote the quiz.
func (q Quiz) IsAuthoredBy(userID int64) bool {
	return q.AuthorID == userID
}

// OptionsByID indexes a question's options.
func (q Question) OptionsByID() map[int64]Option {
	out := make(map[int64]Option, len(q.Options))
	for _, opt := range q.Options {
		out[opt.ID] = opt
	}
	return out
}
