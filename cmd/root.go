// =============================================================================
// Pega Tickets - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands are
// attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pega-tickets)
//   ├── generateCmd (pega-tickets generate <file>)
//   ├── inspectCmd  (pega-tickets inspect <file>)
//   └── versionCmd  (pega-tickets version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the configuration file (--config); a missing config.yaml in the
//      working directory is not an error
//   2. Sets up logging (--verbose forces debug level)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pega-tickets/internal/config"
	"github.com/ginjaninja78/pega-tickets/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// appConfig is the loaded configuration, available to every subcommand.
var appConfig *config.MainConfig

// logger is the application logger, available to every subcommand.
var logger = zerolog.Nop()

// closeLog releases the log file, if one was opened.
var closeLog = func() error { return nil }

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pega-tickets",
	Short: "Pega Tickets - Print fuel tickets as paste-up sheets",
	Long: `Pega Tickets reads a spreadsheet of fuel loads and produces one PDF with
a "pega ticket" sheet per vehicle group: a header with the vehicle data of the
group and one column per fuel load, each with room to paste the paper ticket
and a box with its amount, odometer, folio and date.

Example Usage:
  pega-tickets inspect cargas.xlsx             # Show the groups found
  pega-tickets generate cargas.xlsx            # Write ./output/cargas_<time>.pdf
  pega-tickets generate cargas.xlsx -n 3       # Three tickets per page
  pega-tickets generate cargas.csv -o out.pdf  # Write to a fixed path`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initApp loads the configuration and sets up logging.
func initApp(cmd *cobra.Command) error {
	var err error
	if cmd.Flags().Changed("config") {
		appConfig, err = config.LoadMainConfig(cfgFile)
	} else {
		appConfig, err = config.LoadOrDefault(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := appConfig.LogLevel
	if verbose {
		level = "debug"
	}

	logger, closeLog, err = logging.New(logging.Options{
		Level:   level,
		File:    appConfig.LogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	return nil
}
