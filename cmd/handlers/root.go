package handlers

import (
	"fmt"
	"os"

	"interlink/internal/config"
	"interlink/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "interlink",
		Short: "Suggest, apply and track internal links between articles",
		Long: `Interlink - Internal Linking Engine

Finds related published articles, proposes anchor phrases, validates them
in context, and inserts links into article content while keeping a ledger
of every link an article contains.

Core workflows:
  • Suggest: Article → ranked link targets with anchor phrases
  • Apply: Anchor/URL pairs → links inserted into the first plain match
  • Remove: Strip internal links from one article or the whole catalog

Examples:
  # Suggest targets for a stored article
  interlink suggest 6f1c2a9e-...

  # Preview insertions without saving
  interlink apply 6f1c2a9e-... --link "grip pressure mistakes=/blog/grip-pressure" --dry-run

  # Find articles that need more internal links
  interlink backfill --limit 20`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .interlink.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(NewSuggestCmd())
	rootCmd.AddCommand(NewShowCmd())
	rootCmd.AddCommand(NewApplyCmd())
	rootCmd.AddCommand(NewRemoveCmd())
	rootCmd.AddCommand(NewCleanupCmd())
	rootCmd.AddCommand(NewSyncCmd())
	rootCmd.AddCommand(NewLinksCmd())
	rootCmd.AddCommand(NewBackfillCmd())
	rootCmd.AddCommand(NewValidateURLsCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if cfg.App.Debug {
		level = "debug"
	}
	logger.Configure(level, cfg.Logging.Format)
	return nil
}
