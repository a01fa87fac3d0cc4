// =============================================================================
// Pega Tickets - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which turns one spreadsheet into
// one merged PDF of ticket sheets.
//
// COMMAND USAGE:
//   pega-tickets generate <file.xlsx|file.csv> [flags]
//
// FLAGS:
//   --tickets-per-page, -n : Tickets per page, 1 to 3
//   --output, -o           : Output directory, or a path ending in .pdf
//   --stdout               : Write the PDF to standard output
//   --sheet                : Worksheet to read
//   --name                 : Output base name
//   --concurrency          : Groups rendered at the same time
//
// EXIT STATUS:
//   0 when the PDF was written or the run was interrupted, 1 otherwise.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pega-tickets/internal/converter"
	"github.com/ginjaninja78/pega-tickets/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	ticketsPerPage int
	outputPath     string
	toStdout       bool
	sheetName      string
	baseName       string
	concurrency    int
)

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate the ticket sheet PDF for a spreadsheet",
	Long: `The generate command reads a fuel ticket spreadsheet (.xlsx or .csv),
groups its rows by the N° column and writes one PDF with a ticket sheet per
group, in the order the groups first appear.

Rows without N° are left out. Missing values print as empty boxes; a summary
of such gaps is logged as warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&ticketsPerPage, "tickets-per-page", "n", 0, "Tickets per page, 1 to 3 (default from config, 2)")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory, or a file path ending in .pdf")
	generateCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the PDF to standard output")
	generateCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet to read (default: first sheet)")
	generateCmd.Flags().StringVar(&baseName, "name", "", "Output base name (default: input file name)")
	generateCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Groups rendered at the same time (default from config, 1)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runGenerate(cmd *cobra.Command, inputPath string) error {
	// =========================================================================
	// STEP 1: APPLY FLAGS
	// =========================================================================

	cfg := *appConfig
	flags := cmd.Flags()
	if flags.Changed("tickets-per-page") {
		cfg.TicketsPerPage = ticketsPerPage
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency = concurrency
	}
	if flags.Changed("sheet") {
		cfg.SheetName = sheetName
	}
	if flags.Changed("name") {
		cfg.OutputBaseName = baseName
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := converter.OptionsFromConfig(&cfg, logger)
	if err != nil {
		return err
	}

	var sink utils.Sink
	switch {
	case toStdout:
		sink = utils.WriterSink{W: cmd.OutOrStdout(), Name: "stdout"}
	case strings.EqualFold(filepath.Ext(outputPath), ".pdf"):
		sink = utils.FileSink{Path: outputPath}
	case outputPath != "":
		sink = utils.FileSink{Dir: outputPath}
	default:
		sink = utils.FileSink{Dir: cfg.OutputDir}
	}

	status := cmd.ErrOrStderr()
	opts.Progress = func(current, total int, key string) {
		fmt.Fprintf(status, "Generando pega ticket %d de %d (N° %s)\n", current, total, key)
	}

	// =========================================================================
	// STEP 2: RUN
	// =========================================================================

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result := converter.New(opts, sink).Run(ctx, inputPath)

	// =========================================================================
	// STEP 3: REPORT
	// =========================================================================

	switch result.Status {
	case converter.StatusSucceeded:
		fmt.Fprintf(status, "%s pega tickets, %s páginas, %s -> %s\n",
			humanize.Comma(int64(result.Stats.Groups)),
			humanize.Comma(int64(result.Stats.Pages)),
			humanize.Bytes(uint64(result.Stats.Bytes)),
			result.OutputFile,
		)
		if result.Stats.RowsSkipped > 0 {
			fmt.Fprintf(status, "%d fila(s) sin N° omitidas\n", result.Stats.RowsSkipped)
		}
		return nil
	case converter.StatusCancelled:
		fmt.Fprintln(status, "Generación cancelada; no se escribió ningún archivo")
		return nil
	default:
		return result.Err
	}
}
