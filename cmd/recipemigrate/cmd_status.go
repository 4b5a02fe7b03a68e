package main

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"recipemigrate/internal/ledger"
)

var statusFlags struct {
	stateFolder string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the ledgers of a state folder",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.stateFolder, "state-folder", "", "State folder to summarize (required)")
	_ = statusCmd.MarkFlagRequired("state-folder")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	stateFolder := statusFlags.stateFolder
	out := cmd.OutOrStdout()

	stage1, err := ledger.LoadStage1(stage1LedgerPath(stateFolder))
	if err != nil {
		return fmt.Errorf("load stage-1 ledger: %w", err)
	}
	stage2, err := ledger.LoadStage2(stage2LedgerPath(stateFolder))
	if err != nil {
		return fmt.Errorf("load stage-2 ledger: %w", err)
	}
	if stage1 == nil && stage2 == nil {
		fmt.Fprintf(out, "No ledgers found in %s\n", stateFolder)
		fmt.Fprintf(out, "Run 'recipemigrate stage1 --state-folder %s' to start a migration.\n", stateFolder)
		return nil
	}

	latest := ledger.LatestStage1(stage1)
	stage1Counts := make(map[ledger.Stage1Status]int)
	totalCost := 0.0
	for _, o := range latest {
		stage1Counts[o.Status]++
		// Malformed costs load as NaN; keep them out of the aggregate.
		if math.IsNaN(o.Cost) || math.IsInf(o.Cost, 0) {
			continue
		}
		totalCost += o.Cost
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Stage 1: %s", stage1LedgerPath(stateFolder))
	t.AppendHeader(table.Row{"Status", "Recipes"})
	for _, status := range []ledger.Stage1Status{
		ledger.StatusSuccess, ledger.StatusAcceptedByLLM,
		ledger.StatusReviewNeeded, ledger.StatusError,
	} {
		if n := stage1Counts[status]; n > 0 {
			t.AppendRow(table.Row{string(status), n})
		}
	}
	t.AppendFooter(table.Row{"Total", len(latest)})
	t.Render()
	fmt.Fprintf(out, "Total transform cost: $%.4f\n\n", totalCost)

	if stage2 == nil {
		fmt.Fprintln(out, "Stage 2 has not run yet.")
		return nil
	}

	stage2Counts := make(map[ledger.ApplyStatus]int)
	for _, o := range stage2 {
		stage2Counts[o.ApplyStatus]++
	}

	t = table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Stage 2: %s", stage2LedgerPath(stateFolder))
	t.AppendHeader(table.Row{"Apply status", "Recipes"})
	for _, status := range []ledger.ApplyStatus{
		ledger.ApplySuccess, ledger.ApplySourceUpdated, ledger.ApplyError,
	} {
		if n := stage2Counts[status]; n > 0 {
			t.AppendRow(table.Row{string(status), n})
		}
	}
	t.AppendFooter(table.Row{"Total", len(stage2)})
	t.Render()
	return nil
}
