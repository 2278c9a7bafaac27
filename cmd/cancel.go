package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <car-id>",
	Short: "Cancel a timed-out transfer and recover the payment",
	Long: `Cancel a cross-chain transfer that has exceeded its settlement window.

Only transfers the monitor has marked as timed out can be cancelled; the
escrowed payment is released back on the source chain.

Examples:
  hemdealer cancel 7`,
	Args: cobra.ExactArgs(1),
	Run:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) {
	carID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printError(fmt.Errorf("invalid car id %q", args[0]))
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	// One sweep so a transfer that went stale while no process was running
	// is marked before the cancel attempt.
	a.monitor.Sweep()

	ctx := context.Background()

	// The contract keeps its own clock; warn when it disagrees with ours so
	// the revert that follows is not a surprise.
	if rec, err := a.coordinator.Status(carID); err == nil {
		if sess, err := a.session(rec.SourceChainID); err == nil {
			if onChain, err := sess.IsTransferTimedOut(ctx, carID); err == nil && !onChain && !jsonOutput {
				color.Yellow("\nThe bridge contract has not marked this transfer as timed out yet; cancellation may revert.")
			}
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Cancelling transfer..."
		s.Start()
	}

	rec, err := a.coordinator.Cancel(ctx, carID)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	printSuccess(color.GreenString("Transfer cancelled. Escrowed payment released on the source chain."))
	displayRecord(rec)
}
