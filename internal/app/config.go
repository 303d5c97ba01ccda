package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const ConfigFileEnv = "RATINGS_CONFIG_FILE"

type Config struct {
	HTTPAddr           string
	HTTPRateLimitRPS   float64
	HTTPRateLimitBurst int
	ArtworkHosts       []string
	LogLevel           string
	LogFormat          string
	LogFile            string
	UserAgent          string
	ProviderTimeout    time.Duration
	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheDisabled      bool
	MaxBatch           int
	TMDBAPIKey         string
	TMDBBaseURL        string
	TMDBLanguage       string
	TMDBRPS            float64
	OMDbAPIKey         string
	OMDbBaseURL        string
	OMDbRPS            float64
	RedisURL           string
	OTLPEndpoint       string
	TraceSampleRatio   float64
}

// fileConfig is the optional TOML overlay. Zero values leave the built-in
// default in place; environment variables win over both.
type fileConfig struct {
	HTTP struct {
		Addr           string   `toml:"addr"`
		RateLimitRPS   float64  `toml:"rate_limit_rps"`
		RateLimitBurst int      `toml:"rate_limit_burst"`
		ArtworkHosts   []string `toml:"artwork_hosts"`
	} `toml:"http"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`
	Enrich struct {
		CacheTTLMS      int   `toml:"cache_ttl_ms"`
		CacheMaxEntries int   `toml:"cache_max_entries"`
		CacheDisabled   *bool `toml:"cache_disabled"`
		MaxBatch        int   `toml:"max_batch"`
	} `toml:"enrich"`
	Providers struct {
		TimeoutMS int    `toml:"timeout_ms"`
		UserAgent string `toml:"user_agent"`
	} `toml:"providers"`
	TMDB struct {
		APIKey   string  `toml:"api_key"`
		BaseURL  string  `toml:"base_url"`
		Language string  `toml:"language"`
		RPS      float64 `toml:"rps"`
	} `toml:"tmdb"`
	OMDb struct {
		APIKey  string  `toml:"api_key"`
		BaseURL string  `toml:"base_url"`
		RPS     float64 `toml:"rps"`
	} `toml:"omdb"`
	Redis struct {
		URL string `toml:"url"`
	} `toml:"redis"`
	Telemetry struct {
		OTLPEndpoint string   `toml:"otlp_endpoint"`
		SampleRatio  *float64 `toml:"sample_ratio"`
	} `toml:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:           ":8095",
		HTTPRateLimitRPS:   20,
		HTTPRateLimitBurst: 40,
		ArtworkHosts:       []string{"image.tmdb.org", "m.media-amazon.com", "ia.media-imdb.com"},
		LogLevel:           "info",
		LogFormat:          "text",
		UserAgent:          "rating-enrich/1.0",
		ProviderTimeout:    6500 * time.Millisecond,
		CacheTTL:           21600000 * time.Millisecond,
		CacheMaxEntries:    5000,
		MaxBatch:           120,
		TMDBBaseURL:        "https://api.themoviedb.org/3",
		TMDBLanguage:       "en-US",
		TMDBRPS:            35,
		OMDbBaseURL:        "https://www.omdbapi.com",
		OMDbRPS:            10,
		TraceSampleRatio:   1,
	}
}

// LoadConfig builds the configuration from defaults, the TOML file named by
// RATINGS_CONFIG_FILE (if any) and then the environment.
func LoadConfig() (Config, error) {
	return LoadConfigFile(strings.TrimSpace(os.Getenv(ConfigFileEnv)))
}

func LoadConfigFile(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, fc.HTTP.Addr)
	setFloat(&cfg.HTTPRateLimitRPS, fc.HTTP.RateLimitRPS)
	setInt(&cfg.HTTPRateLimitBurst, fc.HTTP.RateLimitBurst)
	if len(fc.HTTP.ArtworkHosts) > 0 {
		cfg.ArtworkHosts = fc.HTTP.ArtworkHosts
	}
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)
	setString(&cfg.LogFile, fc.Log.File)
	if fc.Enrich.CacheTTLMS > 0 {
		cfg.CacheTTL = time.Duration(fc.Enrich.CacheTTLMS) * time.Millisecond
	}
	setInt(&cfg.CacheMaxEntries, fc.Enrich.CacheMaxEntries)
	if fc.Enrich.CacheDisabled != nil {
		cfg.CacheDisabled = *fc.Enrich.CacheDisabled
	}
	setInt(&cfg.MaxBatch, fc.Enrich.MaxBatch)
	if fc.Providers.TimeoutMS > 0 {
		cfg.ProviderTimeout = time.Duration(fc.Providers.TimeoutMS) * time.Millisecond
	}
	setString(&cfg.UserAgent, fc.Providers.UserAgent)
	setString(&cfg.TMDBAPIKey, fc.TMDB.APIKey)
	setString(&cfg.TMDBBaseURL, fc.TMDB.BaseURL)
	setString(&cfg.TMDBLanguage, fc.TMDB.Language)
	setFloat(&cfg.TMDBRPS, fc.TMDB.RPS)
	setString(&cfg.OMDbAPIKey, fc.OMDb.APIKey)
	setString(&cfg.OMDbBaseURL, fc.OMDb.BaseURL)
	setFloat(&cfg.OMDbRPS, fc.OMDb.RPS)
	setString(&cfg.RedisURL, fc.Redis.URL)
	setString(&cfg.OTLPEndpoint, fc.Telemetry.OTLPEndpoint)
	if fc.Telemetry.SampleRatio != nil {
		cfg.TraceSampleRatio = *fc.Telemetry.SampleRatio
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.HTTPRateLimitRPS = getEnvFloat("HTTP_RATE_LIMIT_RPS", cfg.HTTPRateLimitRPS)
	cfg.HTTPRateLimitBurst = getEnvInt("HTTP_RATE_LIMIT_BURST", cfg.HTTPRateLimitBurst)
	if hosts := getEnv("ARTWORK_HOSTS", ""); hosts != "" {
		cfg.ArtworkHosts = splitCSV(hosts)
	}
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.UserAgent = getEnv("PROVIDER_USER_AGENT", cfg.UserAgent)
	cfg.ProviderTimeout = time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", int(cfg.ProviderTimeout.Milliseconds()))) * time.Millisecond
	cfg.CacheTTL = time.Duration(getEnvInt("ENRICH_CACHE_TTL_MS", int(cfg.CacheTTL.Milliseconds()))) * time.Millisecond
	cfg.CacheMaxEntries = getEnvInt("ENRICH_CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	cfg.CacheDisabled = getEnvBool("ENRICH_CACHE_DISABLED", cfg.CacheDisabled)
	cfg.MaxBatch = getEnvInt("ENRICH_MAX_BATCH", cfg.MaxBatch)
	cfg.TMDBAPIKey = getEnv("TMDB_API_KEY", cfg.TMDBAPIKey)
	cfg.TMDBBaseURL = getEnv("TMDB_BASE_URL", cfg.TMDBBaseURL)
	cfg.TMDBLanguage = getEnv("TMDB_LANGUAGE", cfg.TMDBLanguage)
	cfg.TMDBRPS = getEnvFloat("TMDB_RPS", cfg.TMDBRPS)
	cfg.OMDbAPIKey = getEnv("OMDB_API_KEY", cfg.OMDbAPIKey)
	cfg.OMDbBaseURL = getEnv("OMDB_BASE_URL", cfg.OMDbBaseURL)
	cfg.OMDbRPS = getEnvFloat("OMDB_RPS", cfg.OMDbRPS)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.TraceSampleRatio = getEnvFloat("OTEL_TRACE_SAMPLE_RATIO", cfg.TraceSampleRatio)
}

func (c Config) Validate() error {
	var errs []error
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	if c.MaxBatch <= 0 {
		errs = append(errs, errors.New("max batch must be positive"))
	}
	if c.CacheMaxEntries <= 0 {
		errs = append(errs, errors.New("cache max entries must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("provider timeout must be positive"))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("trace sample ratio must be within [0,1], got %v", c.TraceSampleRatio))
	}
	return errors.Join(errs...)
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value > 0 {
		*dst = value
	}
}

func setFloat(dst *float64, value float64) {
	if value > 0 {
		*dst = value
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvFloat accepts 0 so a rate limit can be switched off.
func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
