package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"iptvstream/ratingservice/internal/app"
	"iptvstream/ratingservice/internal/domain"
)

type enrichOptions struct {
	contentType string
	file        string
	title       string
	year        int
	rating      float64
	votes       int64
	jsonOutput  bool
	noCache     bool
	verbose     bool
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	opts := &enrichOptions{}
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich titles with provider ratings and print the smart score",
		Example: `  ratingsctl enrich --type movie --title Inception --year 2010 --rating 8.1 --votes 1200
  ratingsctl enrich --type series --file items.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			contentType, err := domain.ParseContentType(opts.contentType)
			if err != nil {
				return err
			}
			items, err := opts.items()
			if err != nil {
				return err
			}
			if opts.noCache {
				cfg.CacheDisabled = true
			}

			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			service, cleanup := app.BuildEnrichService(cmd.Context(), cfg, logger)
			defer cleanup()

			response, err := service.Enrich(cmd.Context(), contentType, items)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, response)
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), renderEnrichTable(items, response, colorize))
			fmt.Fprintf(cmd.OutOrStdout(), "providers: tmdb=%s omdb=%s\n",
				enabledLabel(response.ProviderStatus.TMDBEnabled),
				enabledLabel(response.ProviderStatus.OMDbEnabled))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.contentType, "type", "t", "movie", "Content type (movie or series)")
	flags.StringVarP(&opts.file, "file", "f", "", "JSON file with an array of items")
	flags.StringVar(&opts.title, "title", "", "Title to enrich")
	flags.IntVar(&opts.year, "year", 0, "Release year")
	flags.Float64Var(&opts.rating, "rating", 0, "Local rating (0-10)")
	flags.Int64Var(&opts.votes, "votes", 0, "Local vote count")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the raw response as JSON")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Skip the result cache")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log provider calls to stderr")
	cmd.MarkFlagsMutuallyExclusive("file", "title")
	return cmd
}

func (o *enrichOptions) items() ([]domain.EnrichmentItem, error) {
	if path := strings.TrimSpace(o.file); path != "" {
		return readItemsFile(path)
	}
	title := strings.TrimSpace(o.title)
	if title == "" {
		return nil, errors.New("either --title or --file is required")
	}
	return []domain.EnrichmentItem{{
		ID:          title,
		Title:       title,
		Year:        o.year,
		LocalRating: o.rating,
		LocalVotes:  o.votes,
	}}, nil
}

func readItemsFile(path string) ([]domain.EnrichmentItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var items []domain.EnrichmentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items %s: %w", path, err)
	}
	for i := range items {
		if strings.TrimSpace(items[i].ID) == "" {
			items[i].ID = strings.TrimSpace(items[i].Title)
		}
	}
	return items, nil
}

// renderEnrichTable prints results in request order; ids the service dropped
// (empty or duplicate) are skipped.
func renderEnrichTable(items []domain.EnrichmentItem, response domain.EnrichResponse, colorize bool) string {
	headers := []string{"ID", "Title", "Year", "Score", "Rating", "%", "Votes", "Sources"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(response.Items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		result, ok := response.Items[item.ID]
		if !ok {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		smart := result.Smart
		percent := strconv.Itoa(smart.RatingPercent)
		if colorize {
			percent = percentColor(smart.RatingPercent).Sprint(percent)
		}
		year := "-"
		if smart.Year > 0 {
			year = strconv.Itoa(smart.Year)
		}
		rows = append(rows, []string{
			item.ID,
			text.Trim(item.Title, 40),
			year,
			strconv.FormatFloat(smart.Score, 'f', 3, 64),
			strconv.FormatFloat(smart.Rating10, 'f', 2, 64),
			percent,
			strconv.FormatInt(smart.Votes, 10),
			sourcesLabel(smart.Providers),
		})
	}
	return renderTable(headers, rows, aligns)
}

func sourcesLabel(coverage domain.ProviderCoverage) string {
	var parts []string
	if coverage.Local {
		parts = append(parts, "local")
	}
	if coverage.TMDB {
		parts = append(parts, "tmdb")
	}
	if coverage.OMDb {
		parts = append(parts, "omdb")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
