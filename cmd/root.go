package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hemdealer",
	Short: "A CLI for the HemDealer cross-chain vehicle marketplace",
	Long: `hemdealer is a command-line tool for buying, listing and relocating
vehicles on the HemDealer marketplace contracts. Purchases and relocations
that span chains are settled through the Across bridge relay; the tool
tracks each settlement until ownership lands on the destination chain.

Examples:
  hemdealer list --chain 11155111
  hemdealer buy 7 --chain 11155111
  hemdealer move 7 --from 11155111 --to 421614
  hemdealer status 7
  hemdealer cancel 7`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
