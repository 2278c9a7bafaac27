package cmd

import (
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

	"hemdealer/pkg/listing"
	"hemdealer/pkg/types"
)

var (
	listChainID   uint64
	mineChainID   uint64
	salesChainID  uint64
	deleteChainID uint64
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List vehicles for sale on a chain",
	Long: `List every vehicle currently for sale on a chain's marketplace.

Examples:
  hemdealer list --chain 11155111
  hemdealer list --chain 421614 --json`,
	Run: runList,
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your own vehicles on a chain",
	Long: `List the vehicles owned by your account on a chain's marketplace.

Examples:
  hemdealer mine --chain 11155111`,
	Run: runMine,
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "List completed sales on a chain",
	Long: `List every completed sale recorded on a chain's marketplace.

Examples:
  hemdealer sales --chain 11155111`,
	Run: runSales,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <car-id>",
	Short: "Remove one of your listings",
	Long: `Delete a vehicle you own from a chain's marketplace. Sold vehicles
cannot be deleted.

Examples:
  hemdealer delete 7 --chain 11155111`,
	Args: cobra.ExactArgs(1),
	Run:  runDelete,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(salesCmd)
	rootCmd.AddCommand(deleteCmd)

	listCmd.Flags().Uint64Var(&listChainID, "chain", 0, "Chain ID to query (REQUIRED)")
	_ = listCmd.MarkFlagRequired("chain")

	mineCmd.Flags().Uint64Var(&mineChainID, "chain", 0, "Chain ID to query (REQUIRED)")
	_ = mineCmd.MarkFlagRequired("chain")

	salesCmd.Flags().Uint64Var(&salesChainID, "chain", 0, "Chain ID to query (REQUIRED)")
	_ = salesCmd.MarkFlagRequired("chain")

	deleteCmd.Flags().Uint64Var(&deleteChainID, "chain", 0, "Chain ID the listing lives on (REQUIRED)")
	_ = deleteCmd.MarkFlagRequired("chain")
}

func runList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	accessor, a := newAccessor(listChainID)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching listings..."
		s.Start()
	}

	cars, err := accessor.All(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Only live listings are shown.
	var forSale []*types.Car
	for _, car := range cars {
		if !car.Sold && !car.Deleted {
			forSale = append(forSale, car)
		}
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(forSale, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayCars(forSale, fmt.Sprintf("VEHICLES FOR SALE ON %s", strings.ToUpper(chainLabel(listChainID))))
	}
}

func runMine(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	accessor, a := newAccessor(mineChainID)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching your listings..."
		s.Start()
	}

	cars, err := accessor.Mine(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(cars, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayCars(cars, "YOUR VEHICLES")
	}
}

func runSales(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	accessor, a := newAccessor(salesChainID)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching sales..."
		s.Start()
	}

	sales, err := accessor.Sales(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(sales, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(sales) == 0 {
		fmt.Println("\nNo sales recorded.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       COMPLETED SALES")
	fmt.Println(strings.Repeat("=", 70))
	for _, sale := range sales {
		fmt.Printf("\n  Sale #%-5s Car #%-5s %s wei  to %s\n",
			sale.ID.String(),
			sale.NewCarID.String(),
			color.YellowString(sale.Price.String()),
			color.HiBlackString(sale.Owner.Hex()))
	}
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("\nTotal: %d sales\n\n", len(sales))
}

func runDelete(cmd *cobra.Command, args []string) {
	carID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printError(fmt.Errorf("invalid car id %q", args[0]))
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	accessor, a := newAccessor(deleteChainID)
	defer a.close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Deleting listing..."
		s.Start()
	}

	receipt, err := accessor.Delete(context.Background(), carID)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(receipt, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	printSuccess(color.GreenString("Listing %d deleted.", carID))
	fmt.Printf("  Transaction: %s\n\n", color.HiBlackString(receipt.TxHash.Hex()))
}

// newAccessor wires a listing accessor over the session for one chain,
// exiting with a printed error on any wiring failure.
func newAccessor(chainID uint64) (*listing.Accessor, *app) {
	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	sess, err := a.session(chainID)
	if err != nil {
		a.close()
		printError(err)
		os.Exit(1)
	}

	return listing.NewAccessor(sess), a
}

func displayCars(cars []*types.Car, title string) {
	if len(cars) == 0 {
		fmt.Println("\nNo vehicles found.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("          %s", title)
	fmt.Println(strings.Repeat("=", 90))

	for _, car := range cars {
		status := color.GreenString("FOR SALE")
		if car.Sold {
			status = color.RedString("SOLD")
		}

		fmt.Printf("\n  #%-5d %s %s %s  %s\n",
			car.ID,
			car.Year.String(),
			color.YellowString(car.Make),
			color.YellowString(car.Model),
			status)
		fmt.Printf("         Price: %s wei   Owner: %s\n",
			car.Price.String(),
			color.HiBlackString(car.Owner.Hex()))
		if car.Location != "" {
			fmt.Printf("         Location: %s\n", car.Location)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d vehicles\n\n", len(cars))
}
