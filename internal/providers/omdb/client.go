// Package omdb looks up a single title on the OMDb API.
package omdb

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
	defaultBaseURL = "https://www.omdbapi.com"
	providerName   = "omdb"
)

type Client struct {
	apiKey  string
	baseURL string
	fetcher *common.Fetcher
}

type Config struct {
	APIKey    string
	BaseURL   string
	Client    *http.Client
	Limiter   *rate.Limiter
	Timeout   time.Duration
	UserAgent string
}

// titleResponse mirrors the OMDb "t=" payload. Missing values arrive as
// "N/A" strings, numbers arrive as strings with thousands separators.
type titleResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	Metascore  string `json:"Metascore"`
	IMDbRating string `json:"imdbRating"`
	IMDbVotes  string `json:"imdbVotes"`
	IMDbID     string `json:"imdbID"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = common.NewHTTPClient()
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
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

func (c *Client) Lookup(ctx context.Context, contentType domain.ContentType, title string, year int) domain.ProviderOutcome {
	if !c.Enabled() {
		return domain.NotFound("provider disabled")
	}
	query := strings.TrimSpace(title)
	if query == "" {
		return domain.NotFound("empty title")
	}

	var response titleResponse
	if err := c.fetcher.GetJSON(ctx, c.titleURL(contentType, query, year), &response); err != nil {
		return domain.Failed(fmt.Sprintf("omdb lookup: %v", err), common.IsTimeout(err))
	}

	if !strings.EqualFold(strings.TrimSpace(response.Response), "true") {
		reason := strings.TrimSpace(response.Error)
		if strings.Contains(strings.ToLower(reason), "not found") {
			return domain.NotFound(reason)
		}
		if reason == "" {
			reason = "unexpected response"
		}
		return domain.Failed("omdb lookup: "+reason, false)
	}
	return domain.Found(toRecord(response))
}

func (c *Client) titleURL(contentType domain.ContentType, query string, year int) string {
	kind := "movie"
	if contentType == domain.ContentTypeSeries {
		kind = "series"
	}
	params := url.Values{
		"apikey": {c.apiKey},
		"t":      {query},
		"type":   {kind},
		"plot":   {"short"},
	}
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}
	return c.baseURL + "/?" + params.Encode()
}

func toRecord(r titleResponse) domain.ProviderRecord {
	votes := int64(normalize.NumberOrZero(common.OptionalText(r.IMDbVotes)))
	return domain.ProviderRecord{
		Provider:   providerName,
		ProviderID: common.OptionalText(r.IMDbID),
		Title:      common.OptionalText(r.Title),
		Rating10:   normalize.Clamp(normalize.NumberOrZero(common.OptionalText(r.IMDbRating)), 0, 10),
		Votes:      max(votes, 0),
		Year:       normalize.Year(r.Year),
		Overview:   common.CleanText(common.OptionalText(r.Plot)),
		Poster:     common.OptionalText(r.Poster),
		Genre:      common.OptionalText(r.Genre),
		Director:   common.OptionalText(r.Director),
		Cast:       common.OptionalText(r.Actors),
		Runtime:    common.OptionalText(r.Runtime),
		IMDbID:     common.OptionalText(r.IMDbID),
		Metascore:  int(normalize.NumberOrZero(common.OptionalText(r.Metascore))),
		Rated:      common.OptionalText(r.Rated),
	}
}
