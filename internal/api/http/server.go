package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/enrich"
	"iptvstream/ratingservice/internal/normalize"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type EnrichService interface {
	Enrich(ctx context.Context, contentType domain.ContentType, items []domain.EnrichmentItem) (domain.EnrichResponse, error)
	ProviderStatus() domain.ProviderStatus
	ProviderDiagnostics() []domain.ProviderDiagnostics
	MaxBatch() int
}

type Server struct {
	enrich       EnrichService
	logger       *slog.Logger
	rateRPS      float64
	rateBurst    int
	maxBodyLen   int64
	artworkHosts map[string]struct{}
	imageHTTP    *http.Client
	userAgent    string
	// skipAddressCheck lets tests proxy from loopback servers.
	skipAddressCheck bool
}

const (
	defaultRateRPS   = 20
	defaultRateBurst = 40
	defaultUserAgent = "rating-enrich/1.0"
	maxRequestBody   = 1 << 20
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithUserAgent sets the User-Agent sent when fetching artwork.
func WithUserAgent(userAgent string) ServerOption {
	return func(s *Server) {
		if userAgent = strings.TrimSpace(userAgent); userAgent != "" {
			s.userAgent = userAgent
		}
	}
}

// WithRateLimit sets the global request budget. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

func NewServer(enrichService EnrichService, options ...ServerOption) *Server {
	server := &Server{
		enrich:       enrichService,
		logger:       slog.Default(),
		rateRPS:      defaultRateRPS,
		rateBurst:    defaultRateBurst,
		maxBodyLen:   maxRequestBody,
		artworkHosts: artworkHostSet(defaultArtworkHosts),
		userAgent:    defaultUserAgent,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.imageHTTP = server.newImageClient()
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/enrich/providers", s.handleProviders)
	mux.HandleFunc("/enrich/image", s.handleImageProxy)
	mux.HandleFunc("/enrich", s.handleEnrich)
	traced := otelhttp.NewHandler(mux, "rating-enrich",
		otelhttp.WithFilter(func(r *http.Request) bool {
			_, skip := unmeteredPaths[r.URL.Path]
			return !skip
		}),
	)
	var handler http.Handler = traced
	if s.rateRPS > 0 {
		handler = rateLimitMiddleware(s.rateRPS, s.rateBurst, handler)
	}
	return requestIDMiddleware(recoveryMiddleware(s.logger, observeMiddleware(s.logger, handler)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// enrichRequestItem accepts the loose shapes the front-end sends: ids and
// years may be numbers or strings, ratings may be numeric strings.
type enrichRequestItem struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Year        any    `json:"year"`
	LocalRating any    `json:"localRating"`
	LocalVotes  any    `json:"localVotes"`
}

type enrichRequest struct {
	ContentType string              `json:"contentType"`
	Items       []enrichRequestItem `json:"items"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/enrich" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.enrich == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "enrich service is not configured")
		return
	}

	var request enrichRequest
	if err := decodeJSONBody(r, s.maxBodyLen, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	contentType, err := domain.ParseContentType(request.ContentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	items := toEnrichmentItems(request.Items, s.enrich.MaxBatch())
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", enrich.ErrEmptyBatch.Error())
		return
	}

	response, err := s.enrich.Enrich(r.Context(), contentType, items)
	if err != nil {
		s.logger.Warn("enrich request failed",
			slog.String("contentType", string(contentType)),
			slog.Int("items", len(items)),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, domain.ErrInvalidContentType), errors.Is(err, enrich.ErrEmptyBatch):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "enrichment failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// toEnrichmentItems caps the batch, then drops entries that carry neither
// an id nor a title. An item without an id is keyed by its title.
func toEnrichmentItems(raw []enrichRequestItem, limit int) []domain.EnrichmentItem {
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}
	items := make([]domain.EnrichmentItem, 0, len(raw))
	for _, entry := range raw {
		id := stringID(entry.ID)
		title := strings.TrimSpace(entry.Title)
		if id == "" && title == "" {
			continue
		}
		if id == "" {
			id = title
		}
		items = append(items, domain.EnrichmentItem{
			ID:          id,
			Title:       title,
			Year:        normalize.Year(entry.Year),
			LocalRating: normalize.Clamp(normalize.NumberOrZero(entry.LocalRating), 0, 10),
			LocalVotes:  int64(max(normalize.NumberOrZero(entry.LocalVotes), 0)),
		})
	}
	return items
}

func stringID(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/enrich/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.enrich == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "enrich service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providerStatus": s.enrich.ProviderStatus(),
		"providers":      s.enrich.ProviderDiagnostics(),
	})
}

func decodeJSONBody(r *http.Request, limit int64, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if int64(len(payload)) > limit {
		return errors.New("request body too large")
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
