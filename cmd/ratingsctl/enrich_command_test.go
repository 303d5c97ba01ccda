package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"iptvstream/ratingservice/internal/domain"
)

var ctlEnvKeys = []string{
	"RATINGS_CONFIG_FILE", "TMDB_API_KEY", "TMDB_BASE_URL", "OMDB_API_KEY", "OMDB_BASE_URL",
	"ENRICH_CACHE_DISABLED", "REDIS_URL", "LOG_FORMAT", "LOG_FILE", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range ctlEnvKeys {
		t.Setenv(key, "")
	}
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fakeProviders(t *testing.T) {
	t.Helper()
	tmdbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"id":27205,"title":"Inception","vote_average":8.4,"vote_count":32000,"popularity":90,"release_date":"2010-07-15","poster_path":"/p.jpg"}]}`))
	}))
	t.Cleanup(tmdbSrv.Close)
	omdbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Response":"True","Title":"Inception","Year":"2010","imdbRating":"8.8","imdbVotes":"2,400,000","imdbID":"tt1375666","Genre":"Action, Sci-Fi","Director":"Christopher Nolan"}`))
	}))
	t.Cleanup(omdbSrv.Close)

	t.Setenv("TMDB_API_KEY", "tmdb-key")
	t.Setenv("TMDB_BASE_URL", tmdbSrv.URL)
	t.Setenv("OMDB_API_KEY", "omdb-key")
	t.Setenv("OMDB_BASE_URL", omdbSrv.URL)
}

func TestEnrichCommandJSONOutput(t *testing.T) {
	isolateEnv(t)
	fakeProviders(t)

	out, err := runCommand(t, "enrich", "--type", "movie", "--title", "Inception", "--year", "2010", "--json", "--no-cache")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	var response domain.EnrichResponse
	if err := json.Unmarshal([]byte(out), &response); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !response.ProviderStatus.TMDBEnabled || !response.ProviderStatus.OMDbEnabled {
		t.Fatalf("unexpected provider status %+v", response.ProviderStatus)
	}
	result, ok := response.Items["Inception"]
	if !ok {
		t.Fatalf("missing item, got %v", response.Items)
	}
	if !result.Smart.Providers.TMDB || !result.Smart.Providers.OMDb {
		t.Fatalf("expected both providers, got %+v", result.Smart.Providers)
	}
	if result.Merged.Director != "Christopher Nolan" || result.Merged.Poster != "https://image.tmdb.org/t/p/w500/p.jpg" {
		t.Fatalf("unexpected merged details %+v", result.Merged)
	}
}

func TestEnrichCommandTableLocalOnly(t *testing.T) {
	isolateEnv(t)

	out, err := runCommand(t, "enrich", "--title", "Brother", "--year", "1997", "--rating", "8", "--votes", "500")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	for _, want := range []string{"Brother", "1997", "local", "tmdb=disabled", "omdb=disabled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEnrichCommandFromFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "items.json")
	content := `[{"id":"a","title":"First","year":2001},{"title":"Second"},{"id":"a","title":"Duplicate"}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write items: %v", err)
	}

	out, err := runCommand(t, "enrich", "--type", "series", "--file", path, "--json")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	var response domain.EnrichResponse
	if err := json.Unmarshal([]byte(out), &response); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(response.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(response.Items))
	}
	if _, ok := response.Items["Second"]; !ok {
		t.Fatal("item without id should be keyed by title")
	}
	if response.Items["a"].Smart.ContentType != domain.ContentTypeSeries {
		t.Fatalf("unexpected content type %q", response.Items["a"].Smart.ContentType)
	}
}

func TestEnrichCommandRejectsBadInput(t *testing.T) {
	isolateEnv(t)

	if _, err := runCommand(t, "enrich"); err == nil || !strings.Contains(err.Error(), "--title") {
		t.Fatalf("expected missing title error, got %v", err)
	}
	if _, err := runCommand(t, "enrich", "--type", "cartoon", "--title", "x"); err == nil {
		t.Fatal("expected content type error")
	}
	if _, err := runCommand(t, "enrich", "--title", "x", "--file", "items.json"); err == nil {
		t.Fatal("expected mutually exclusive flag error")
	}
}

func TestProvidersCommandReportsConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OMDB_API_KEY", "omdb-key")

	out, err := runCommand(t, "providers", "--json")
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	var rows []struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "tmdb" || rows[0].Enabled || rows[1].Name != "omdb" || !rows[1].Enabled {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestConfigFlagOverridesEnvFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "ratings.toml")
	if err := os.WriteFile(path, []byte("[tmdb]\napi_key = \"file-key\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCommand(t, "--config", path, "providers", "--json")
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	if !strings.Contains(out, `"name": "tmdb",
    "enabled": true`) {
		t.Fatalf("expected tmdb enabled from file:\n%s", out)
	}

	if _, err := runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "providers"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
