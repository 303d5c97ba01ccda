package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidContentType = errors.New("contentType must be movie or series")

type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// ParseContentType accepts the canonical names plus the aliases the
// front-end sends (movies, film, tv, show).
func ParseContentType(raw string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film":
		return ContentTypeMovie, nil
	case "series", "tv", "show":
		return ContentTypeSeries, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidContentType, raw)
	}
}

func (c ContentType) Valid() bool {
	return c == ContentTypeMovie || c == ContentTypeSeries
}

type EnrichmentItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	LocalRating float64 `json:"localRating,omitempty"`
	LocalVotes  int64   `json:"localVotes,omitempty"`
}

// ProviderRecord is the common shape every provider client maps into.
// Fields a provider does not supply stay at their zero value.
type ProviderRecord struct {
	Provider   string  `json:"provider"`
	ProviderID string  `json:"providerId"`
	Title      string  `json:"title"`
	Rating10   float64 `json:"rating10"`
	Votes      int64   `json:"votes"`
	Popularity float64 `json:"popularity"`
	Year       int     `json:"year"`
	Overview   string  `json:"overview"`
	Poster     string  `json:"poster"`
	Backdrop   string  `json:"backdrop"`
	Genre      string  `json:"genre"`
	Director   string  `json:"director"`
	Cast       string  `json:"cast"`
	Runtime    string  `json:"runtime"`
	IMDbID     string  `json:"imdbId"`
	Metascore  int     `json:"metascore"`
	Rated      string  `json:"rated"`
}

type RatingSources struct {
	Local float64 `json:"local"`
	TMDB  float64 `json:"tmdb"`
	OMDb  float64 `json:"omdb"`
}

type ProviderCoverage struct {
	Local bool `json:"local"`
	TMDB  bool `json:"tmdb"`
	OMDb  bool `json:"omdb"`
}

type SmartScore struct {
	ContentType   ContentType      `json:"contentType"`
	Score         float64          `json:"score"`
	Rating10      float64          `json:"rating10"`
	RatingPercent int              `json:"ratingPercent"`
	Votes         int64            `json:"votes"`
	Year          int              `json:"year"`
	RatingSources RatingSources    `json:"ratingSources"`
	Providers     ProviderCoverage `json:"providers"`
}

type MergedDetails struct {
	Plot     string `json:"plot"`
	Poster   string `json:"poster"`
	Backdrop string `json:"backdrop"`
	Genre    string `json:"genre"`
	Director string `json:"director"`
	Cast     string `json:"cast"`
	Runtime  string `json:"runtime"`
}

// EnrichmentResult is treated as immutable once it has been cached; the
// record pointers are shared between readers and must not be mutated.
type EnrichmentResult struct {
	Smart  SmartScore      `json:"smart"`
	TMDB   *ProviderRecord `json:"tmdb"`
	OMDb   *ProviderRecord `json:"omdb"`
	Merged MergedDetails   `json:"merged"`
}

type ProviderStatus struct {
	TMDBEnabled bool `json:"tmdbEnabled"`
	OMDbEnabled bool `json:"omdbEnabled"`
}

type EnrichResponse struct {
	ProviderStatus ProviderStatus              `json:"providerStatus"`
	Items          map[string]EnrichmentResult `json:"items"`
}

type ProviderDiagnostics struct {
	Name          string     `json:"name"`
	Enabled       bool       `json:"enabled"`
	TotalRequests int64      `json:"totalRequests"`
	Found         int64      `json:"found"`
	NotFound      int64      `json:"notFound"`
	Failures      int64      `json:"failures"`
	Timeouts      int64      `json:"timeouts"`
	LastReason    string     `json:"lastReason,omitempty"`
	LastLatencyMS int64      `json:"lastLatencyMs"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
}
