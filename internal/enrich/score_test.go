package enrich

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"iptvstream/ratingservice/internal/domain"
)

var scoreNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func TestSmartScoreInceptionExample(t *testing.T) {
	item := domain.EnrichmentItem{ID: "1", Title: "Inception", Year: 2010, LocalRating: 8.8, LocalVotes: 50000}
	tmdb := &domain.ProviderRecord{Rating10: 8.4, Votes: 32000, Year: 2010}

	smart := ComputeSmartScore(domain.ContentTypeMovie, item, tmdb, nil, scoreNow)

	want := domain.ProviderCoverage{Local: true, TMDB: true, OMDb: false}
	if smart.Providers != want {
		t.Fatalf("providers = %+v, want %+v", smart.Providers, want)
	}
	if smart.Rating10 <= 8.4 || smart.Rating10 >= 8.8 {
		t.Fatalf("rating10 = %v, want strictly between 8.4 and 8.8", smart.Rating10)
	}
	if smart.Votes != 82000 || smart.Year != 2010 {
		t.Fatalf("votes/year = %d/%d", smart.Votes, smart.Year)
	}
	if smart.RatingSources.Local != 8.8 || smart.RatingSources.TMDB != 8.4 || smart.RatingSources.OMDb != 0 {
		t.Fatalf("unexpected sources %+v", smart.RatingSources)
	}
	if smart.RatingPercent != int(math.Round(smart.Rating10*10)) {
		t.Fatalf("ratingPercent %d does not match rating10 %v", smart.RatingPercent, smart.Rating10)
	}
}

func TestSmartScoreNoSourcesUsesDefaults(t *testing.T) {
	smart := ComputeSmartScore(domain.ContentTypeSeries, domain.EnrichmentItem{ID: "x"}, nil, nil, scoreNow)
	if smart.Rating10 != 0 || smart.RatingPercent != 0 || smart.Votes != 0 || smart.Year != 0 {
		t.Fatalf("expected zero rating fields, got %+v", smart)
	}
	if smart.Providers != (domain.ProviderCoverage{}) {
		t.Fatalf("expected no coverage, got %+v", smart.Providers)
	}
	// Only the no-source consensus default contributes.
	if want := noSourceConsensus * weightConsensus; math.Abs(smart.Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", smart.Score, want)
	}
	if smart.ContentType != domain.ContentTypeSeries {
		t.Fatalf("content type = %q", smart.ContentType)
	}
}

func TestSmartScoreMonotonicInCoverage(t *testing.T) {
	item := domain.EnrichmentItem{ID: "1", Title: "Film", Year: 2024}
	tmdb := &domain.ProviderRecord{Rating10: 8.5, Votes: 100000, Popularity: 100, Year: 2024}
	single := ComputeSmartScore(domain.ContentTypeMovie, item, tmdb, nil, scoreNow)

	item.LocalRating, item.LocalVotes = 8.5, 100000
	omdb := &domain.ProviderRecord{Rating10: 8.5, Votes: 100000, Year: 2024}
	all := ComputeSmartScore(domain.ContentTypeMovie, item, tmdb, omdb, scoreNow)

	if all.Score < single.Score {
		t.Fatalf("all sources score %v < single source score %v", all.Score, single.Score)
	}
}

func TestSmartScoreLocalVotesCountForCoverageOnly(t *testing.T) {
	withVotes := ComputeSmartScore(domain.ContentTypeMovie, domain.EnrichmentItem{LocalVotes: 10}, nil, nil, scoreNow)
	if !withVotes.Providers.Local {
		t.Fatal("local votes without a rating should still count as local coverage")
	}
	if withVotes.Rating10 != 0 {
		t.Fatalf("rating10 = %v, want 0", withVotes.Rating10)
	}
}

func TestSmartScoreConsensusDropsWithSpread(t *testing.T) {
	agree := consensus([]ratingSource{{rating: 8}, {rating: 8}})
	split := consensus([]ratingSource{{rating: 9}, {rating: 3}})
	if agree != 1 || split != 0 {
		t.Fatalf("consensus agree=%v split=%v", agree, split)
	}
	if got := consensus([]ratingSource{{rating: 7}}); got != singleConsensus {
		t.Fatalf("single consensus = %v", got)
	}
}

func TestSmartScoreYearPrefersProviders(t *testing.T) {
	item := domain.EnrichmentItem{Year: 1999}
	omdb := &domain.ProviderRecord{Year: 2001}
	if got := ComputeSmartScore(domain.ContentTypeMovie, item, nil, omdb, scoreNow).Year; got != 2001 {
		t.Fatalf("year = %d, want omdb year", got)
	}
	tmdb := &domain.ProviderRecord{Year: 2000}
	if got := ComputeSmartScore(domain.ContentTypeMovie, item, tmdb, omdb, scoreNow).Year; got != 2000 {
		t.Fatalf("year = %d, want tmdb year", got)
	}
	if got := ComputeSmartScore(domain.ContentTypeMovie, item, nil, nil, scoreNow).Year; got != 1999 {
		t.Fatalf("year = %d, want item year", got)
	}
}

func TestSmartScoreStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	randomRecord := func() *domain.ProviderRecord {
		if rng.IntN(3) == 0 {
			return nil
		}
		return &domain.ProviderRecord{
			Rating10:   rng.Float64()*14 - 2,
			Votes:      rng.Int64N(5_000_000) - 1000,
			Popularity: rng.Float64() * 5000,
			Year:       1850 + rng.IntN(300),
		}
	}
	for i := 0; i < 5000; i++ {
		item := domain.EnrichmentItem{
			ID:          "x",
			Title:       "t",
			Year:        rng.IntN(2200),
			LocalRating: rng.Float64()*14 - 2,
			LocalVotes:  rng.Int64N(2_000_000) - 1000,
		}
		smart := ComputeSmartScore(domain.ContentTypeMovie, item, randomRecord(), randomRecord(), scoreNow)
		if smart.Score < 0 || smart.Score > 1 || math.IsNaN(smart.Score) {
			t.Fatalf("score out of range: %+v", smart)
		}
		if smart.RatingPercent < 0 || smart.RatingPercent > 100 {
			t.Fatalf("ratingPercent out of range: %+v", smart)
		}
		if smart.Rating10 < 0 || smart.Rating10 > 10 {
			t.Fatalf("rating10 out of range: %+v", smart)
		}
	}
}

func TestMergeDetailsFallsBackToOMDb(t *testing.T) {
	tmdb := &domain.ProviderRecord{Overview: "", Poster: "", Backdrop: "https://image.tmdb.org/t/p/w1280/b.jpg"}
	omdb := &domain.ProviderRecord{Overview: "Plot.", Poster: "https://omdb/p.jpg", Genre: "Drama", Director: "D", Cast: "A, B", Runtime: "100 min"}
	merged := MergeDetails(tmdb, omdb)
	want := domain.MergedDetails{
		Plot:     "Plot.",
		Poster:   "https://omdb/p.jpg",
		Backdrop: "https://image.tmdb.org/t/p/w1280/b.jpg",
		Genre:    "Drama",
		Director: "D",
		Cast:     "A, B",
		Runtime:  "100 min",
	}
	if merged != want {
		t.Fatalf("merged = %+v, want %+v", merged, want)
	}
	if MergeDetails(nil, nil) != (domain.MergedDetails{}) {
		t.Fatal("expected empty details without providers")
	}
}
