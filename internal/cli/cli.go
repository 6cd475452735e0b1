package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phelbig/tcgdata/internal/fetch"
	"github.com/phelbig/tcgdata/internal/logger"
	"github.com/phelbig/tcgdata/internal/state"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitNewData = 2
)

var (
	flagDataDir string
	flagFormat  string
	flagVerbose bool
	flagDelay   float64
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tcgdata",
		Short: "Scrape Pokemon TCG tournament, metagame and card data",
		Long: `A CLI tool that collects Pokemon TCG data from the Limitless sites:
Japanese City League results, metagame statistics, online tournament
decklists, the card catalog and EUR prices. Each run updates flat CSV
and JSON files in the data directory, scraping only what is new.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.LevelInfo
			if flagVerbose {
				level = logger.LevelDebug
			}
			logger.SetDefault(logger.New(level, os.Stderr))
		},
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "~/.local/share/tcgdata", "Data directory for CSV/JSON output and state")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().Float64Var(&flagDelay, "delay", 1.5, "Seconds to wait between requests to the same site")

	cmd.AddCommand(newCityLeagueCmd())
	cmd.AddCommand(newMetaCmd())
	cmd.AddCommand(newLabsCmd())
	cmd.AddCommand(newSetsCmd())
	cmd.AddCommand(newCardsCmd())
	cmd.AddCommand(newPricesCmd())
	cmd.AddCommand(newMergeCmd())

	return cmd
}

// outputFormat validates the --format flag.
func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

// dataDir resolves the --data-dir flag and makes sure it exists.
func dataDir() (string, error) {
	dir, err := state.Dir(flagDataDir)
	if err != nil {
		return "", fmt.Errorf("initializing data directory: %w", err)
	}
	return dir, nil
}

// newClient builds the shared HTTP client with the politeness delay.
func newClient(opts ...fetch.Option) *fetch.Client {
	opts = append([]fetch.Option{
		fetch.WithDelay(time.Duration(flagDelay * float64(time.Second))),
	}, opts...)
	return fetch.New(opts...)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
