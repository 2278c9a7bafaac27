package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hemdealer/pkg/transfer"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status [car-id]",
	Short: "Check the status of a transfer",
	Long: `Check the settlement status of a purchase or relocation by car ID.
Without a car ID, every tracked transfer is listed.

Examples:
  hemdealer status
  hemdealer status 7
  hemdealer status 7 --watch
  hemdealer status 7 --watch --interval 10`,
	Args: cobra.MaximumNArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	// Mark anything that went stale while no process was running.
	a.monitor.Sweep()

	if len(args) == 0 {
		listTransfers(a, jsonOutput)
		return
	}

	carID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printError(fmt.Errorf("invalid car id %q", args[0]))
		os.Exit(1)
	}

	if watchStatus {
		watchTransferStatus(a, carID, jsonOutput)
	} else {
		checkTransferStatus(a, carID, jsonOutput)
	}
}

func checkTransferStatus(a *app, carID uint64, jsonOutput bool) {
	rec, err := a.coordinator.Status(carID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayRecord(rec)
	}
}

func watchTransferStatus(a *app, carID uint64, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transfer status (Car ID: %d)\n", carID)
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkTransferStatus(a, carID, false)

	// Then check periodically
	for range ticker.C {
		a.monitor.Sweep()
		checkTransferStatus(a, carID, false)
	}
}

func listTransfers(a *app, jsonOutput bool) {
	active := a.store.Active()
	archived := a.store.Archived()

	if jsonOutput {
		output := map[string]interface{}{
			"active":   active,
			"archived": archived,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(active) == 0 && len(archived) == 0 {
		fmt.Println("\nNo tracked transfers.")
		return
	}

	for _, rec := range active {
		displayRecord(rec)
	}
	for _, rec := range archived {
		displayRecord(rec)
	}
}

func displayRecord(rec *transfer.Record) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       TRANSFER STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transfer ID:     %s\n", color.HiBlackString(rec.ID))
	fmt.Printf("  Car ID:          %d\n", rec.CarID)
	fmt.Printf("  State:           %s\n", coloredState(rec.CurrentState()))
	fmt.Printf("  Route:           %s -> %s\n", chainLabel(rec.SourceChainID), chainLabel(rec.DestinationChainID))
	fmt.Printf("  Buyer:           %s\n", color.CyanString(rec.Buyer.Hex()))
	fmt.Printf("  Price:           %s wei\n", rec.Price.String())

	if rec.RelayerFeePct != nil && rec.RelayerFeePct.Sign() > 0 {
		fmt.Printf("  Relayer Fee:     %s / 10000\n", rec.RelayerFeePct.String())
	}
	if rec.TotalValue != nil {
		fmt.Printf("  Total Value:     %s wei\n", rec.TotalValue.String())
	}
	if rec.SourceTxHash != "" {
		fmt.Printf("  Source Tx:       %s\n", color.HiBlackString(rec.SourceTxHash))
	}
	if rec.DestinationTxHash != "" {
		fmt.Printf("  Destination Tx:  %s\n", color.HiBlackString(rec.DestinationTxHash))
	}

	fmt.Printf("  Submitted:       %s\n", rec.SubmittedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last Updated:    %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	if rec.CompletedAt != nil {
		fmt.Printf("  Ended:           %s\n", rec.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if rec.FailureReason != "" {
		fmt.Printf("  Failure:         %s\n", color.RedString(rec.FailureReason))
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
}

func coloredState(state transfer.State) string {
	label := strings.ToUpper(string(state))

	switch state {
	case transfer.StateCompleted:
		return color.GreenString(label)
	case transfer.StateFailed, transfer.StateCancelled:
		return color.RedString(label)
	case transfer.StateTimedOut:
		return color.MagentaString(label)
	default:
		return color.YellowString(label)
	}
}
