package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hemdealer/pkg/chains"
	"hemdealer/pkg/types"
)

var (
	buyChainID uint64
	noConfirm  bool
)

var buyCmd = &cobra.Command{
	Use:   "buy <car-id>",
	Short: "Buy a listed vehicle",
	Long: `Buy a vehicle listed on the HemDealer marketplace.

When the listing's destination chain differs from the chain you pay on, the
payment is routed through the Across bridge relay and the command waits for
ownership to land on the destination chain. Same-chain purchases settle in a
single transaction with no bridging fee.

Examples:
  hemdealer buy 7 --chain 11155111
  hemdealer buy 7 --chain 11155111 --yes`,
	Args: cobra.ExactArgs(1),
	Run:  runBuy,
}

func init() {
	rootCmd.AddCommand(buyCmd)

	buyCmd.Flags().Uint64Var(&buyChainID, "chain", 0, "Chain ID to pay on (REQUIRED)")
	buyCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	_ = buyCmd.MarkFlagRequired("chain")
}

func runBuy(cmd *cobra.Command, args []string) {
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

	sess, err := a.session(buyChainID)
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
		if car.DestinationChainID.Uint64() != buyChainID {
			color.Yellow("  This purchase bridges payment from chain %d to chain %d.\n", buyChainID, car.DestinationChainID.Uint64())
			fmt.Printf("  A relayer fee will be quoted on top of the price.\n")
		}
	}

	if !noConfirm && !jsonOutput {
		if !confirm("Proceed with purchase?") {
			fmt.Println("\nPurchase cancelled.")
			os.Exit(0)
		}
	}

	a.startMonitor()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Settling purchase..."
		s.Start()
	}

	rec, err := a.coordinator.Purchase(ctx, buyChainID, carID)
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

	printSuccess(color.GreenString("Purchase settled."))
	displayRecord(rec)
}

func displayCar(car *types.Car) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                        LISTING")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Car ID:        %d\n", car.ID)
	fmt.Printf("  Vehicle:       %d %s %s\n", car.Year, car.Make, car.Model)
	fmt.Printf("  Price:         %s wei\n", color.YellowString(car.Price.String()))
	fmt.Printf("  Seller:        %s\n", color.CyanString(car.Owner.Hex()))
	fmt.Printf("  Chain:         %s\n", chainLabel(car.DestinationChainID.Uint64()))
	if car.IsNativePayment() {
		fmt.Printf("  Payment:       native token\n")
	} else {
		fmt.Printf("  Payment:       %s\n", car.PaymentToken.Hex())
	}
	if car.Sold {
		color.Red("  Status:        SOLD")
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func chainLabel(chainID uint64) string {
	if chain, err := chains.ByID(chainID); err == nil {
		return fmt.Sprintf("%s (%d)", chain.Name, chainID)
	}
	return strconv.FormatUint(chainID, 10)
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
