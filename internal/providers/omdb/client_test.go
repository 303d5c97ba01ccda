package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/providers/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "key", BaseURL: srv.URL, Client: srv.Client()})
}

func TestLookupMapsTitlePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "key" || q.Get("t") != "Sherlock" || q.Get("type") != "series" || q.Get("y") != "2010" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"Response":"True","Title":"Sherlock","Year":"2010–2017","Rated":"TV-14",
			"Runtime":"88 min","Genre":"Crime, Drama","Director":"N/A","Actors":"Benedict Cumberbatch, Martin Freeman",
			"Plot":"A modern update.","Poster":"https://m.media-amazon.com/p.jpg","Metascore":"N/A",
			"imdbRating":"9.1","imdbVotes":"1,012,345","imdbID":"tt1475582"
		}`))
	})

	outcome := client.Lookup(context.Background(), domain.ContentTypeSeries, "Sherlock", 2010)
	record := outcome.Record()
	if record == nil {
		t.Fatalf("expected found, got %+v", outcome)
	}
	if record.Rating10 != 9.1 || record.Votes != 1012345 || record.Year != 2010 {
		t.Fatalf("unexpected numbers %+v", record)
	}
	if record.Director != "" || record.Metascore != 0 {
		t.Fatalf("N/A fields must be empty: %+v", record)
	}
	if record.Cast != "Benedict Cumberbatch, Martin Freeman" || record.IMDbID != "tt1475582" || record.ProviderID != "tt1475582" {
		t.Fatalf("unexpected text fields %+v", record)
	}
	if record.Popularity != 0 {
		t.Fatalf("omdb has no popularity, got %v", record.Popularity)
	}
}

func TestLookupNAValuesBecomeZero(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("y") != "" {
			t.Errorf("year hint should be omitted")
		}
		_, _ = w.Write([]byte(`{"Response":"True","Title":"Obscure","Year":"N/A","Poster":"N/A","imdbRating":"N/A","imdbVotes":"N/A"}`))
	})

	record := client.Lookup(context.Background(), domain.ContentTypeMovie, "Obscure", 0).Record()
	if record == nil {
		t.Fatal("expected found")
	}
	if record.Rating10 != 0 || record.Votes != 0 || record.Year != 0 || record.Poster != "" {
		t.Fatalf("expected zero values, got %+v", record)
	}
}

func TestLookupNotFoundSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	outcome := client.Lookup(context.Background(), domain.ContentTypeMovie, "Nope", 0)
	if outcome.Status != domain.OutcomeNotFound || outcome.Record() != nil {
		t.Fatalf("expected not found, got %+v", outcome)
	}
}

func TestLookupProviderErrorIsFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Request limit reached!"}`))
	})

	outcome := client.Lookup(context.Background(), domain.ContentTypeMovie, "Inception", 2010)
	if outcome.Status != domain.OutcomeFailed || outcome.Reason != "omdb lookup: Request limit reached!" {
		t.Fatalf("expected failed, got %+v", outcome)
	}
}

func TestLookupHTTPErrorIsFailed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	outcome := client.Lookup(context.Background(), domain.ContentTypeMovie, "Inception", 2010)
	if outcome.Status != domain.OutcomeFailed || outcome.Timeout {
		t.Fatalf("expected non-timeout failure, got %+v", outcome)
	}
}

func TestDisabledWithoutKey(t *testing.T) {
	client := NewClient(Config{})
	if client.Enabled() {
		t.Fatal("expected disabled client")
	}
	if outcome := client.Lookup(context.Background(), domain.ContentTypeMovie, "x", 0); outcome.Status != domain.OutcomeNotFound {
		t.Fatalf("expected not found, got %+v", outcome)
	}
}

func TestLookupFullBatchUnderDefaultLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("drains a 10 rps limiter for ~11s")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Response":"True","Title":"Heat","Year":"1995","imdbRating":"8.3","imdbVotes":"700,000"}`))
	}))
	defer srv.Close()
	client := NewClient(Config{
		APIKey:  "key",
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Limiter: common.NewLimiter(10),
		Timeout: common.DefaultTimeout,
	})

	var wg sync.WaitGroup
	var found atomic.Int32
	for i := 0; i < 120; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if client.Lookup(context.Background(), domain.ContentTypeMovie, "Heat", 1995).Status == domain.OutcomeFound {
				found.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := found.Load(); n != 120 {
		t.Fatalf("found %d of 120 lookups", n)
	}
}
