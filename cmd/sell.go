package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hemdealer/pkg/ledger"
	"hemdealer/pkg/listing"
	"hemdealer/pkg/types"
)

var (
	sellChainID      uint64
	sellName         string
	sellMake         string
	sellModel        string
	sellYear         uint64
	sellVin          uint64
	sellMileage      uint64
	sellColor        string
	sellCondition    uint8
	sellTransmission uint8
	sellFuel         uint8
	sellPrice        string
	sellLocation     string
	sellDescription  string
	sellImages       []string
	sellFeatures     []string
	sellSellerName   string
	sellEmail        string
	sellPhone        uint64
	sellPaymentToken string
)

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "List a vehicle for sale",
	Long: `Create a new vehicle listing on a chain's marketplace.

The listing is priced in the chain's native token unless --payment-token
names an allow-listed token contract.

Examples:
  hemdealer sell --chain 11155111 --name "Family SUV" --make Toyota --model RAV4 \
    --year 2021 --vin 12345 --price 1000000000000000000 \
    --seller-name "Ada" --email ada@example.com`,
	Run: runSell,
}

var updateCmd = &cobra.Command{
	Use:   "update <car-id>",
	Short: "Update one of your listings",
	Long: `Replace the details of a vehicle you own. The same flags as sell apply;
the full parameter set is written, not a partial patch.

Examples:
  hemdealer update 7 --chain 11155111 --name "Family SUV" --make Toyota \
    --model RAV4 --year 2021 --vin 12345 --price 900000000000000000 \
    --seller-name "Ada" --email ada@example.com`,
	Args: cobra.ExactArgs(1),
	Run:  runUpdate,
}

func init() {
	rootCmd.AddCommand(sellCmd)
	rootCmd.AddCommand(updateCmd)

	for _, c := range []*cobra.Command{sellCmd, updateCmd} {
		c.Flags().Uint64Var(&sellChainID, "chain", 0, "Chain ID to list on (REQUIRED)")
		c.Flags().StringVar(&sellName, "name", "", "Listing title (REQUIRED)")
		c.Flags().StringVar(&sellMake, "make", "", "Vehicle make (REQUIRED)")
		c.Flags().StringVar(&sellModel, "model", "", "Vehicle model (REQUIRED)")
		c.Flags().Uint64Var(&sellYear, "year", 0, "Model year")
		c.Flags().Uint64Var(&sellVin, "vin", 0, "Vehicle identification number")
		c.Flags().Uint64Var(&sellMileage, "mileage", 0, "Mileage")
		c.Flags().StringVar(&sellColor, "color", "", "Color")
		c.Flags().Uint8Var(&sellCondition, "condition", 1, "Condition: 0=new 1=used 2=certified")
		c.Flags().Uint8Var(&sellTransmission, "transmission", 1, "Transmission: 0=manual 1=automatic")
		c.Flags().Uint8Var(&sellFuel, "fuel", 0, "Fuel: 0=gasoline 1=diesel 2=electric 3=hybrid")
		c.Flags().StringVar(&sellPrice, "price", "", "Price in wei (REQUIRED)")
		c.Flags().StringVar(&sellLocation, "location", "", "Vehicle location")
		c.Flags().StringVar(&sellDescription, "description", "", "Listing description")
		c.Flags().StringSliceVar(&sellImages, "image", nil, "Image URL (repeatable)")
		c.Flags().StringSliceVar(&sellFeatures, "feature", nil, "Feature (repeatable)")
		c.Flags().StringVar(&sellSellerName, "seller-name", "", "Seller display name (REQUIRED)")
		c.Flags().StringVar(&sellEmail, "email", "", "Seller contact email")
		c.Flags().Uint64Var(&sellPhone, "phone", 0, "Seller phone number")
		c.Flags().StringVar(&sellPaymentToken, "payment-token", "", "Payment token contract (default: native)")
		_ = c.MarkFlagRequired("chain")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("make")
		_ = c.MarkFlagRequired("model")
		_ = c.MarkFlagRequired("price")
	}
}

func sellParams(seller common.Address) (*types.CarParams, error) {
	price, ok := new(big.Int).SetString(sellPrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price %q", sellPrice)
	}

	params := &types.CarParams{
		BasicDetails: types.CarBasicDetails{
			Name:        sellName,
			Images:      sellImages,
			Description: sellDescription,
			Make:        sellMake,
			Model:       sellModel,
			Year:        new(big.Int).SetUint64(sellYear),
			Vin:         new(big.Int).SetUint64(sellVin),
		},
		TechnicalDetails: types.CarTechnicalDetails{
			Mileage:      new(big.Int).SetUint64(sellMileage),
			Color:        sellColor,
			Condition:    types.CarCondition(sellCondition),
			Transmission: types.CarTransmission(sellTransmission),
			FuelType:     types.FuelType(sellFuel),
			Price:        price,
		},
		AdditionalInfo: types.CarAdditionalInfo{
			Location: sellLocation,
			Features: sellFeatures,
		},
		SellerDetails: types.SellerDetails{
			Wallet:      seller,
			SellerName:  sellSellerName,
			Email:       sellEmail,
			PhoneNumber: new(big.Int).SetUint64(sellPhone),
		},
		DestinationChainID: new(big.Int).SetUint64(sellChainID),
		PaymentToken:       types.NativeToken,
	}
	if sellPaymentToken != "" {
		params.PaymentToken = common.HexToAddress(sellPaymentToken)
	}
	return params, nil
}

func runSell(cmd *cobra.Command, args []string) {
	submitListing(cmd, func(ctx context.Context, accessor *listing.Accessor, params *types.CarParams) (*ledger.Receipt, error) {
		return accessor.List(ctx, params)
	}, "Submitting listing...", "Vehicle listed for sale.")
}

func runUpdate(cmd *cobra.Command, args []string) {
	carID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printError(fmt.Errorf("invalid car id %q", args[0]))
		os.Exit(1)
	}

	submitListing(cmd, func(ctx context.Context, accessor *listing.Accessor, params *types.CarParams) (*ledger.Receipt, error) {
		return accessor.Update(ctx, carID, params)
	}, "Updating listing...", "Listing updated.")
}

func submitListing(cmd *cobra.Command, submit func(context.Context, *listing.Accessor, *types.CarParams) (*ledger.Receipt, error), suffix, success string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.close()

	sess, err := a.session(sellChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	accessor := listing.NewAccessor(sess)

	params, err := sellParams(sess.Account())
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " " + suffix
		s.Start()
	}

	receipt, err := submit(context.Background(), accessor, params)
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

	printSuccess(color.GreenString(success))
	fmt.Printf("  Transaction: %s\n", color.HiBlackString(receipt.TxHash.Hex()))
	fmt.Printf("  Block:       %d\n", receipt.BlockNumber)
	fmt.Printf("  Chain:       %s\n\n", strings.ToUpper(chainLabel(sellChainID)))
}
