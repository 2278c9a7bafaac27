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

var (
	moveFromChain uint64
	moveToChain   uint64
	moveNoConfirm bool
)

var moveCmd = &cobra.Command{
	Use:   "move <car-id>",
	Short: "Relocate one of your listings to another chain",
	Long: `Move a vehicle you own from one chain's marketplace to another.

The relocation is settled through the Across bridge relay like a cross-chain
purchase: a fee is quoted, the transfer is initiated on the source chain and
the command waits until the listing appears under your account on the
destination chain.

Examples:
  hemdealer move 7 --from 11155111 --to 421614`,
	Args: cobra.ExactArgs(1),
	Run:  runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().Uint64Var(&moveFromChain, "from", 0, "Chain ID the listing lives on (REQUIRED)")
	moveCmd.Flags().Uint64Var(&moveToChain, "to", 0, "Destination chain ID (REQUIRED)")
	moveCmd.Flags().BoolVarP(&moveNoConfirm, "yes", "y", false, "Skip confirmation prompt")
	_ = moveCmd.MarkFlagRequired("from")
	_ = moveCmd.MarkFlagRequired("to")
}

func runMove(cmd *cobra.Command, args []string) {
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

	sess, err := a.session(moveFromChain)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()
	car, err := sess.GetCar(ctx, carID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayCar(car)
		fmt.Printf("\n  Moving from %s to %s\n", chainLabel(moveFromChain), chainLabel(moveToChain))
	}

	if !moveNoConfirm && !jsonOutput {
		if !confirm("Proceed with relocation?") {
			fmt.Println("\nRelocation cancelled.")
			os.Exit(0)
		}
	}

	a.startMonitor()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Relocating listing..."
		s.Start()
	}

	rec, err := a.coordinator.Relocate(ctx, moveFromChain, carID, moveToChain)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		if rec != nil && !jsonOutput {
			displayRecord(rec)
		}
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	printSuccess(color.GreenString("Listing relocated."))
	displayRecord(rec)
}
