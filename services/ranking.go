package services

import (
	"math"
	"time"
)

// rankingEpoch anchors hot scores (Unix seconds). Changing it shifts every
// score by a constant and would invalidate stored rankings.
const rankingEpoch int64 = 1134028003

// hotDecaySeconds is the age that weighs as much as a 10x vote margin.
const hotDecaySeconds = 45000

// HotScore ranks by net votes on a log scale plus recency.
//
// Newer content wins for equal votes, and for equal age a larger positive
// margin wins. The result is rounded to 7 decimals so equal inputs always
// compare equal after a storage round trip.
func HotScore(upvotes, downvotes int, createdAt time.Time) float64 {
	score := upvotes - downvotes
	order := math.Log10(math.Max(math.Abs(float64(score)), 1))

	var sign float64
	switch {
	case score > 0:
		sign = 1
	case score < 0:
		sign = -1
	}

	seconds := float64(createdAt.Unix() - rankingEpoch)
	return round7(sign*order + seconds/hotDecaySeconds)
}

// ControversialScore favors heavy engagement with an even split. It is
// zero when either side has no votes.
func ControversialScore(upvotes, downvotes int) float64 {
	if upvotes <= 0 || downvotes <= 0 {
		return 0
	}
	total := float64(upvotes + downvotes)
	lo, hi := float64(min(upvotes, downvotes)), float64(max(upvotes, downvotes))
	return total * lo / hi
}

// TopScore is the plain net score.
func TopScore(upvotes, downvotes int) float64 {
	return float64(upvotes - downvotes)
}

func round7(x float64) float64 {
	return math.Round(x*1e7) / 1e7
}
