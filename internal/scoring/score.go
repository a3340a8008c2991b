// Package scoring turns submitted plays into scores, points and standings.
// Everything here is pure: callers load the rows and pass them in.
package scoring

import (
	"math"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// PointsPerCorrectAnswer is the weight of one correct answer against one second of play time.
const PointsPerCorrectAnswer = 100

// PlayScore is max(0, 100*result - server elapsed seconds).
// Plays without a result, or without a positive elapsed time, score zero.
func PlayScore(p domain.Play) float64 {
	if p.Result == nil || *p.Result == 0 {
		return 0
	}
	elapsed, ok := p.ServerElapsed()
	if !ok || elapsed <= 0 {
		return 0
	}
	return math.Max(0, float64(PointsPerCorrectAnswer**p.Result)-elapsed)
}
