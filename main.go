// =============================================================================
// Pega Tickets - Main Entry Point
// =============================================================================
//
// USAGE:
//   pega-tickets generate <file>  - Generate the ticket sheet PDF
//   pega-tickets inspect <file>   - List the groups without generating
//   pega-tickets version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : reading, normalizing, grouping, layout, rendering, merging
//   - pkg/utils/ : output naming and delivery
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/pega-tickets/cmd"
)

func main() {
	cmd.Execute()
}
