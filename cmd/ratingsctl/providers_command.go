package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show which rating providers the current configuration enables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			type providerRow struct {
				Name    string  `json:"name"`
				Enabled bool    `json:"enabled"`
				BaseURL string  `json:"baseUrl"`
				RPS     float64 `json:"rps"`
			}
			rows := []providerRow{
				{Name: "tmdb", Enabled: strings.TrimSpace(cfg.TMDBAPIKey) != "", BaseURL: cfg.TMDBBaseURL, RPS: cfg.TMDBRPS},
				{Name: "omdb", Enabled: strings.TrimSpace(cfg.OMDbAPIKey) != "", BaseURL: cfg.OMDbBaseURL, RPS: cfg.OMDbRPS},
			}
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				tableRows = append(tableRows, []string{row.Name, enabledLabel(row.Enabled), row.BaseURL, fmt.Sprintf("%g", row.RPS)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Provider", "Status", "Base URL", "RPS"},
				tableRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}
