package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/normalize"
	"iptvstream/ratingservice/internal/providers/common"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	imageBaseURL    = "https://image.tmdb.org/t/p"
	defaultLanguage = "en-US"
	providerName    = "tmdb"
)

type Client struct {
	apiKey   string
	baseURL  string
	language string
	fetcher  *common.Fetcher
}

type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	Client    *http.Client
	Limiter   *rate.Limiter
	Timeout   time.Duration
	UserAgent string
}

// SearchResult is one entry of a /search/movie or /search/tv response.
// Movies carry title/release_date, series carry name/first_air_date.
type SearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	VoteCount    int64   `json:"vote_count,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
}

func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r SearchResult) Year() int {
	if r.ReleaseDate != "" {
		return normalize.Year(r.ReleaseDate)
	}
	return normalize.Year(r.FirstAirDate)
}

func imageURL(size, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return imageBaseURL + "/" + size + path
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = common.NewHTTPClient()
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		fetcher: &common.Fetcher{
			Client:    httpClient,
			Limiter:   cfg.Limiter,
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		},
	}
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Lookup searches TMDB for title and returns the best candidate. It never
// returns an error; transport and decode problems become a Failed outcome.
func (c *Client) Lookup(ctx context.Context, contentType domain.ContentType, title string, year int) domain.ProviderOutcome {
	if !c.Enabled() {
		return domain.NotFound("provider disabled")
	}
	query := strings.TrimSpace(title)
	if query == "" {
		return domain.NotFound("empty title")
	}

	var response searchResponse
	if err := c.fetcher.GetJSON(ctx, c.searchURL(contentType, query, year), &response); err != nil {
		return domain.Failed(fmt.Sprintf("tmdb search: %v", err), common.IsTimeout(err))
	}

	best, ok := SelectBest(response.Results, year)
	if !ok {
		return domain.NotFound("no results")
	}
	return domain.Found(c.toRecord(best))
}

func (c *Client) searchURL(contentType domain.ContentType, query string, year int) string {
	params := url.Values{
		"api_key":       {c.apiKey},
		"query":         {query},
		"language":      {c.language},
		"include_adult": {"false"},
	}
	path := "/search/movie"
	yearParam := "primary_release_year"
	if contentType == domain.ContentTypeSeries {
		path = "/search/tv"
		yearParam = "first_air_date_year"
	}
	if year > 0 {
		params.Set(yearParam, strconv.Itoa(year))
	}
	return c.baseURL + path + "?" + params.Encode()
}

func (c *Client) toRecord(r SearchResult) domain.ProviderRecord {
	var providerID string
	if r.ID > 0 {
		providerID = strconv.Itoa(r.ID)
	}
	return domain.ProviderRecord{
		Provider:   providerName,
		ProviderID: providerID,
		Title:      strings.TrimSpace(r.DisplayTitle()),
		Rating10:   normalize.Clamp(r.VoteAverage, 0, 10),
		Votes:      max(r.VoteCount, 0),
		Popularity: max(r.Popularity, 0),
		Year:       r.Year(),
		Overview:   common.CleanText(r.Overview),
		Poster:     imageURL("w500", r.PosterPath),
		Backdrop:   imageURL("w1280", r.BackdropPath),
	}
}
