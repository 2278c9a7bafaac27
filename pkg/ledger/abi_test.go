package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hemdealer/pkg/types"
)

func sampleChainCar() chainCar {
	return chainCar{
		Id:          big.NewInt(7),
		Owner:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Name:        "Vintage Coupe",
		Images:      []string{"ipfs://img1"},
		Description: "one careful owner",
		Make:        "Toyota",
		Model:       "Supra",
		Year:        big.NewInt(1998),
		Vin:         big.NewInt(4321),
		Mileage:     big.NewInt(120000),
		Color:       "red",
		Condition:   uint8(types.ConditionUsed),
		Transmission: uint8(types.TransmissionManual),
		FuelType:    uint8(types.FuelGasoline),
		Price:       big.NewInt(1_000_000),
		Location:    "Lagos",
		Features:    []string{"turbo"},
		Seller: chainSeller{
			Wallet:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
			SellerName:  "Ada",
			Email:       "ada@example.com",
			PhoneNumber: big.NewInt(2348000000),
		},
		DestinationChainId: big.NewInt(421614),
		PaymentToken:       common.Address{},
		SourceChainId:      big.NewInt(11155111),
	}
}

// Round-trips a car record through the embedded getCar ABI to pin the binding
// struct layout against the contract tuple.
func TestCarTupleRoundTrip(t *testing.T) {
	in := sampleChainCar()

	packed, err := marketplaceABI.Methods["getCar"].Outputs.Pack(in)
	require.NoError(t, err)

	out, err := marketplaceABI.Unpack("getCar", packed)
	require.NoError(t, err)
	require.Len(t, out, 1)

	decoded := *abi.ConvertType(out[0], new(chainCar)).(*chainCar)
	require.Equal(t, in.Id, decoded.Id)
	require.Equal(t, in.Owner, decoded.Owner)
	require.Equal(t, in.Price, decoded.Price)
	require.Equal(t, in.Seller.Wallet, decoded.Seller.Wallet)
	require.Equal(t, in.DestinationChainId, decoded.DestinationChainId)
	require.Equal(t, in.SourceChainId, decoded.SourceChainId)

	car := decoded.toCar()
	require.Equal(t, uint64(7), car.ID.Uint64())
	require.True(t, car.IsNativePayment())
	require.True(t, car.CrossChain())
	require.NoError(t, car.Validate())
}

func TestBuyCarPack(t *testing.T) {
	data, err := marketplaceABI.Pack("buyCar", big.NewInt(7), big.NewInt(50), big.NewInt(1712000000))
	require.NoError(t, err)
	require.Equal(t, marketplaceABI.Methods["buyCar"].ID, data[:4])
}

func TestBridgeABISurface(t *testing.T) {
	for _, method := range []string{
		"bridgePayment",
		"initiateCrossChainTransfer",
		"cancelTimedOutTransfer",
		"isTransferTimedOut",
		"supportedTokens",
	} {
		_, ok := bridgeABI.Methods[method]
		require.True(t, ok, "missing bridge method %s", method)
	}
}
