package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nhalm/logos/internal/config"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the logos command tree with serve and merge attached.
// Each call gets its own viper instance, so tests can run commands side by
// side.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "logos",
		Short: "Serve philosophical quotes over HTTP",
		Long: `Logos serves quotes from a static JSON dataset: a random or daily
quote, filtered listings and a small landing page. The merge command folds
new quote files into the dataset without duplicates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./logos.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("dataset", "quotes.json", "path to the quotes dataset")

	a.v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	a.v.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	a.v.BindPFlag("dataset", rootCmd.PersistentFlags().Lookup("dataset"))

	rootCmd.AddCommand(a.newServeCmd())
	rootCmd.AddCommand(a.newMergeCmd())

	return rootCmd
}

// Execute runs the command line and exits with status 1 on failure. Cobra
// has already printed the error by then.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	slog.SetDefault(cfg.Logger(cmd.ErrOrStderr()))
	return nil
}
