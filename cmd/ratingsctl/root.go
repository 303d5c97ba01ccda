package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"iptvstream/ratingservice/internal/app"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     app.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the config once. --config wins over RATINGS_CONFIG_FILE.
func (c *commandContext) ensureConfig() (app.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			c.config, c.configErr = app.LoadConfig()
			return
		}
		c.config, c.configErr = app.LoadConfigFile(path)
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "ratingsctl",
		Short:         "Query the rating enrichment pipeline from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newProvidersCommand(ctx))
	return rootCmd
}
