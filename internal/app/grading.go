package app

import (
	"fmt"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// Grade builds one PlayAnswer per quiz question and counts the correct ones.
//
// Submitted answers are keyed by question id; a later entry for the same question
// overwrites an earlier one. Questions without an entry are recorded as skipped.
// Entries for questions outside the quiz are ignored.
func Grade(quiz domain.Quiz, submitted []domain.AnswerSubmission) ([]domain.PlayAnswer, int, error) {
	selected := make(map[int64]*int64, len(submitted))
	for _, a := range submitted {
		selected[a.QuestionID] = a.OptionID
	}

	answers := make([]domain.PlayAnswer, 0, len(quiz.Questions))
	correct := 0
	for _, q := range quiz.Questions {
		optionID := selected[q.ID]
		if optionID != nil {
			opt, ok := q.OptionsByID()[*optionID]
			if !ok {
				return nil, 0, fmt.Errorf("question %d, option %d: %w", q.ID, *optionID, domain.ErrOptionMismatch)
			}
			if opt.IsCorrect {
				correct++
			}
		}
		answers = append(answers, domain.PlayAnswer{QuestionID: q.ID, OptionID: optionID})
	}
	return answers, correct, nil
}
