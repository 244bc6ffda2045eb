// Package cli implements tickerctl, an offline companion to the ticker
// service: it classifies feeds, previews ticker selections, matches
// watchlist entries, edits stored preferences and fetches quotes.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the tickerctl release, overridden at build time with -ldflags.
var Version = "dev"

// Execute runs tickerctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// env holds the state shared by every subcommand of one root command.
type env struct {
	v       *viper.Viper
	cfgFile string
}

func (e *env) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if e.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCmd builds a fresh command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:   "tickerctl",
		Short: "Inspect crisis feeds, ticker selections and stored preferences",
		Long: `tickerctl runs the ticker service's classification and selection logic
against a feed file or URL, and reads or edits the preference database.

Settings come from (highest to lowest priority): flags, TICKERCTL_*
environment variables, the config file, then defaults.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		// Flags are bound per invocation since subcommands share keys.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return e.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.cfgFile, "config", "", "config file (default: $HOME/.tickerctl.yaml)")
	pf.BoolP("verbose", "v", false, "verbose logging to stderr")
	pf.StringP("output", "o", "table", "output format: table, json or yaml")
	pf.String("db", "crisis-ticker.db", "preference database path")

	root.AddCommand(
		newClassifyCmd(e),
		newTickerCmd(e),
		newWatchlistCmd(e),
		newPrefsCmd(e),
		newQuoteCmd(e),
		newConfigCmd(e),
		newVersionCmd(),
	)
	return root
}

// initConfig reads the config file and TICKERCTL_* environment variables.
func (e *env) initConfig() error {
	e.v.SetEnvPrefix("TICKERCTL")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
		if err := e.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", e.cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	e.v.AddConfigPath(home)
	e.v.SetConfigName(".tickerctl")
	e.v.SetConfigType("yaml")
	if err := e.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config %s: %w", filepath.Join(home, ".tickerctl.yaml"), err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tickerctl %s\n", Version)
		},
	}
}
