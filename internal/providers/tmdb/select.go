package tmdb

import "math"

const (
	maxCandidates      = 8
	defaultYearPenalty = 4
	maxYearPenalty     = 10
)

// SelectBest picks the most plausible match among the leading search
// results. requestedYear is 0 when the caller has no year hint. Ties keep
// the earlier candidate.
func SelectBest(candidates []SearchResult, requestedYear int) (SearchResult, bool) {
	if len(candidates) == 0 {
		return SearchResult{}, false
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	best := 0
	bestScore := candidateScore(candidates[0], requestedYear)
	for i := 1; i < len(candidates); i++ {
		if score := candidateScore(candidates[i], requestedYear); score > bestScore {
			best, bestScore = i, score
		}
	}
	return candidates[best], true
}

func candidateScore(c SearchResult, requestedYear int) float64 {
	votes := math.Max(float64(c.VoteCount), 0)
	popularity := math.Max(c.Popularity, 0)
	return c.VoteAverage*0.9 +
		math.Log10(votes+1)*1.8 +
		math.Log10(popularity+1)*2.1 -
		yearPenalty(requestedYear, c.Year())*0.6
}

func yearPenalty(requested, candidate int) float64 {
	if requested <= 0 || candidate <= 0 {
		return defaultYearPenalty
	}
	diff := requested - candidate
	if diff < 0 {
		diff = -diff
	}
	return float64(min(diff, maxYearPenalty))
}
