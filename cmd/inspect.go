// =============================================================================
// Pega Tickets - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command. It reads and groups a spreadsheet
// exactly like 'generate' but draws nothing: it lists the ticket sheets that
// would be generated and the data-quality findings, so a bad column header can
// be fixed before printing.
//
// COMMAND USAGE:
//   pega-tickets inspect <file.xlsx|file.csv> [--sheet name] [--all]
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pega-tickets/internal/converter"
	"github.com/ginjaninja78/pega-tickets/internal/layout"
	"github.com/ginjaninja78/pega-tickets/internal/validation"
)

// showAllIssues lists info-level findings too.
var showAllIssues bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the ticket sheets a spreadsheet would produce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet to read (default: first sheet)")
	inspectCmd.Flags().IntVarP(&ticketsPerPage, "tickets-per-page", "n", 0, "Tickets per page used for the page estimate")
	inspectCmd.Flags().BoolVar(&showAllIssues, "all", false, "Also list informational findings")
}

func runInspect(cmd *cobra.Command, inputPath string) error {
	cfg := *appConfig
	if cmd.Flags().Changed("sheet") {
		cfg.SheetName = sheetName
	}
	if cmd.Flags().Changed("tickets-per-page") {
		cfg.TicketsPerPage = ticketsPerPage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, err := converter.OptionsFromConfig(&cfg, logger)
	if err != nil {
		return err
	}
	conv := converter.New(opts, nil)

	sheet, err := conv.Load(inputPath)
	if err != nil {
		return err
	}
	plan := conv.Prepare(sheet)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Hoja %q: %s filas\n", sheet.Name, humanize.Comma(int64(len(plan.Records))))
	fmt.Fprintf(out, "%s pega tickets listos para generar\n\n", humanize.Comma(int64(len(plan.Groups))))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "N°\tTICKETS\tPÁGINAS\tPLACA\tFACTURA")
	for _, g := range plan.Groups {
		first, _ := g.First()
		pages := len(layout.Chunk(g.Records, cfg.TicketsPerPage))
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", g.Key, len(g.Records), pages, first.Plate, first.Folio)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	issues := plan.Report.Warnings()
	if showAllIssues {
		issues = plan.Report.Issues
	}
	fmt.Fprintf(out, "\n%s", validation.FormatIssues(issues))
	if !showAllIssues && plan.Report.InfoCount > 0 {
		fmt.Fprintf(out, "(%d informational finding(s) hidden, use --all)\n", plan.Report.InfoCount)
	}
	return nil
}
