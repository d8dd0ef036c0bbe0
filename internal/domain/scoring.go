package domain

import "sort"

// Point constants for the fixed-reward rounds.
const (
	WarmUpCorrectPoints  = 10
	ObstacleRowPoints    = 10
	FinishStarMultiplier = 2
)

// AccelerationRankPoints maps submission rank (1st..4th) to points. Ranks
// beyond the table score zero.
var AccelerationRankPoints = [AccelerationQuestions]int{40, 30, 20, 10}

// ObstacleKeywordPoints returns the reward for a correct keyword guess given
// how many corner pieces were already revealed. Fewer hints used means a
// bigger reward.
func ObstacleKeywordPoints(cornersRevealed int) int {
	switch cornersRevealed {
	case 0:
		return 80
	case 1:
		return 60
	case 2:
		return 40
	default:
		return 20
	}
}

// ScoreDelta is one pending adjustment against the player directory.
type ScoreDelta struct {
	PlayerID string
	Delta    int
}

// RecomputeAccelerationPoints recomputes points for every answer from the
// full, currently-judged answer set: judged-correct answers are ranked by
// submission time (earliest first, submission order breaking ties) and paid
// from the rank table; everything else is forced to zero. It returns the new
// points slice, index-aligned with answers, plus the deltas against the
// points the answers currently carry. Grading order never affects the
// converged result.
func RecomputeAccelerationPoints(answers []AccelerationAnswer) ([]int, []ScoreDelta) {
	points := make([]int, len(answers))

	correct := make([]int, 0, len(answers))
	for i := range answers {
		if answers[i].Correct != nil && *answers[i].Correct {
			correct = append(correct, i)
		}
	}
	sort.SliceStable(correct, func(a, b int) bool {
		return answers[correct[a]].SubmittedAt < answers[correct[b]].SubmittedAt
	})
	for rank, idx := range correct {
		if rank < len(AccelerationRankPoints) {
			points[idx] = AccelerationRankPoints[rank]
		}
	}

	var deltas []ScoreDelta
	for i := range answers {
		if d := points[i] - answers[i].Points; d != 0 {
			deltas = append(deltas, ScoreDelta{PlayerID: answers[i].PlayerID, Delta: d})
		}
	}
	return points, deltas
}

// FinishPenalty returns the deduction applied for a wrong owner answer or a
// failed steal, tiered by the question's point value.
func FinishPenalty(value int) int {
	switch value {
	case 40:
		return 5
	case 60:
		return 10
	case 80:
		return 15
	default:
		return 5
	}
}

// FinishOwnerPoints computes the owner's delta for a judged answer: the base
// value, doubled when the star is active, on correct; the tier penalty on
// wrong. The star never scales the penalty.
func FinishOwnerPoints(value int, starActivated, correct bool) int {
	if correct {
		if starActivated {
			return value * FinishStarMultiplier
		}
		return value
	}
	return -FinishPenalty(value)
}

// FinishStealDeltas computes the stealer's and owner's deltas for a judged
// steal attempt. The owner is never affected by the steal outcome beyond
// their own wrong-answer penalty.
func FinishStealDeltas(value int, correct bool) (stealer, owner int) {
	if correct {
		return value, 0
	}
	return -FinishPenalty(value), 0
}
