package enrich

import (
	"math"
	"time"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/normalize"
)

const (
	unknownAge        = 35
	recencyWindow     = 30
	consensusSpread   = 5
	singleConsensus   = 0.62
	noSourceConsensus = 0.45
	sourceCount       = 3
)

// Blend weights for the final score; they sum to 1.
const (
	weightRating     = 0.34
	weightVotes      = 0.24
	weightPopularity = 0.2
	weightRecency    = 0.1
	weightConsensus  = 0.08
	weightCoverage   = 0.04
)

type ratingSource struct {
	rating float64
	weight float64
}

// ComputeSmartScore blends the local rating with whatever the providers
// returned. tmdb and omdb are nil when that provider had no data.
func ComputeSmartScore(contentType domain.ContentType, item domain.EnrichmentItem, tmdb, omdb *domain.ProviderRecord, now time.Time) domain.SmartScore {
	localRating := normalize.Clamp(item.LocalRating, 0, 10)
	localVotes := max(item.LocalVotes, 0)

	var tmdbRating, omdbRating, popularity float64
	var tmdbVotes, omdbVotes int64
	if tmdb != nil {
		tmdbRating = normalize.Clamp(tmdb.Rating10, 0, 10)
		tmdbVotes = max(tmdb.Votes, 0)
		popularity = tmdb.Popularity
	}
	if omdb != nil {
		omdbRating = normalize.Clamp(omdb.Rating10, 0, 10)
		omdbVotes = max(omdb.Votes, 0)
	}

	sources := make([]ratingSource, 0, sourceCount)
	if localRating > 0 {
		c := normalize.Votes(float64(localVotes))
		sources = append(sources, ratingSource{rating: localRating, weight: 1.05 + c*0.75})
	}
	if tmdbRating > 0 {
		c := normalize.Votes(float64(tmdbVotes))
		sources = append(sources, ratingSource{rating: tmdbRating, weight: 1.2 + c*1.1})
	}
	if omdbRating > 0 {
		c := normalize.Votes(float64(omdbVotes))
		sources = append(sources, ratingSource{rating: omdbRating, weight: 1.25 + c*1.15})
	}

	rating10 := weightedRating(sources)
	ratingNorm := normalize.Clamp(rating10/10, 0, 1)
	ratingPercent := int(normalize.Clamp(math.Round(rating10*10), 0, 100))

	votes := localVotes + tmdbVotes + omdbVotes
	votesNorm := normalize.Votes(float64(votes))
	popularityNorm := normalize.Popularity(popularity)

	year := firstYear(tmdb, omdb, item.Year)
	age := float64(unknownAge)
	if year > 0 {
		age = float64(now.Year() - year)
	}
	recencyNorm := normalize.Clamp(1-age/recencyWindow, 0, 1)

	consensusNorm := consensus(sources)

	// Local counts as covered with votes alone, even though it only joins
	// the consensus when it has a rating.
	hasLocal := localRating > 0 || localVotes > 0
	covered := 0
	for _, present := range []bool{hasLocal, tmdb != nil, omdb != nil} {
		if present {
			covered++
		}
	}
	coverageNorm := float64(covered) / sourceCount

	score := ratingNorm*weightRating +
		votesNorm*weightVotes +
		popularityNorm*weightPopularity +
		recencyNorm*weightRecency +
		consensusNorm*weightConsensus +
		coverageNorm*weightCoverage

	return domain.SmartScore{
		ContentType:   contentType,
		Score:         normalize.Round(normalize.Clamp(score, 0, 1), 6),
		Rating10:      normalize.Round(normalize.Clamp(rating10, 0, 10), 2),
		RatingPercent: ratingPercent,
		Votes:         votes,
		Year:          year,
		RatingSources: domain.RatingSources{
			Local: localRating,
			TMDB:  tmdbRating,
			OMDb:  omdbRating,
		},
		Providers: domain.ProviderCoverage{
			Local: hasLocal,
			TMDB:  tmdb != nil,
			OMDb:  omdb != nil,
		},
	}
}

func weightedRating(sources []ratingSource) float64 {
	var sum, weights float64
	for _, s := range sources {
		sum += s.rating * s.weight
		weights += s.weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func consensus(sources []ratingSource) float64 {
	switch len(sources) {
	case 0:
		return noSourceConsensus
	case 1:
		return singleConsensus
	}
	lo, hi := sources[0].rating, sources[0].rating
	for _, s := range sources[1:] {
		lo = math.Min(lo, s.rating)
		hi = math.Max(hi, s.rating)
	}
	return math.Max(0, 1-(hi-lo)/consensusSpread)
}

func firstYear(tmdb, omdb *domain.ProviderRecord, itemYear int) int {
	if tmdb != nil && tmdb.Year > 0 {
		return tmdb.Year
	}
	if omdb != nil && omdb.Year > 0 {
		return omdb.Year
	}
	return normalize.Year(itemYear)
}

// MergeDetails picks display fields: TMDB for plot and artwork, OMDb for
// credits, with OMDb as the fallback for plot and poster.
func MergeDetails(tmdb, omdb *domain.ProviderRecord) domain.MergedDetails {
	var merged domain.MergedDetails
	if tmdb != nil {
		merged.Plot = tmdb.Overview
		merged.Poster = tmdb.Poster
		merged.Backdrop = tmdb.Backdrop
	}
	if omdb != nil {
		if merged.Plot == "" {
			merged.Plot = omdb.Overview
		}
		if merged.Poster == "" {
			merged.Poster = omdb.Poster
		}
		merged.Genre = omdb.Genre
		merged.Director = omdb.Director
		merged.Cast = omdb.Cast
		merged.Runtime = omdb.Runtime
	}
	return merged
}

// BuildResult assembles the cacheable result for one item.
func BuildResult(contentType domain.ContentType, item domain.EnrichmentItem, tmdb, omdb *domain.ProviderRecord, now time.Time) domain.EnrichmentResult {
	return domain.EnrichmentResult{
		Smart:  ComputeSmartScore(contentType, item, tmdb, omdb, now),
		TMDB:   tmdb,
		OMDb:   omdb,
		Merged: MergeDetails(tmdb, omdb),
	}
}
