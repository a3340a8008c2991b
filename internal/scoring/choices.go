package scoring

import (
	"strconv"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// SkippedOptionKey stands for "no option selected" in a choice distribution.
const SkippedOptionKey = "null"

// ChoiceCounts maps question id -> option key -> number of plays that picked it.
type ChoiceCounts map[int64]map[string]int

// OptionKey renders an option id the way it appears in ChoiceCounts.
func OptionKey(optionID *int64) string {
	if optionID == nil {
		return SkippedOptionKey
	}
	return strconv.FormatInt(*optionID, 10)
}

// ChoiceDistribution tallies every play answer of a round. Each quiz question
// gets an entry even when nobody answered it.
func ChoiceDistribution(quiz domain.Quiz, answers []domain.PlayAnswer) ChoiceCounts {
	counts := make(ChoiceCounts, len(quiz.Questions))
	for _, q := range quiz.Questions {
		counts[q.ID] = make(map[string]int)
	}
	for _, a := range answers {
		byOption, ok := counts[a.QuestionID]
		if !ok {
			byOption = make(map[string]int)
			counts[a.QuestionID] = byOption
		}
		byOption[OptionKey(a.OptionID)]++
	}
	return counts
}
