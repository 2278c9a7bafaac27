package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func validCar() *Car {
	return &Car{
		ID:                 big.NewInt(1),
		Owner:              common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Name:               "Family SUV",
		Make:               "Toyota",
		Model:              "RAV4",
		Year:               big.NewInt(2021),
		Price:              big.NewInt(1_000_000),
		DestinationChainID: big.NewInt(11155111),
		SourceChainID:      big.NewInt(11155111),
	}
}

func TestCarValidateRejectsSoldAndDeleted(t *testing.T) {
	car := validCar()
	car.Sold = true
	car.Deleted = true
	require.Error(t, car.Validate())

	car.Deleted = false
	require.NoError(t, car.Validate())

	car.Sold = false
	car.Deleted = true
	require.NoError(t, car.Validate())
}

func TestCarValidateRequiresPrice(t *testing.T) {
	car := validCar()
	car.Price = big.NewInt(0)
	require.Error(t, car.Validate())

	car.Price = nil
	require.Error(t, car.Validate())
}

func TestCrossChain(t *testing.T) {
	car := validCar()
	require.False(t, car.CrossChain())

	car.SourceChainID = big.NewInt(421614)
	require.True(t, car.CrossChain())
}

func TestNativePayment(t *testing.T) {
	car := validCar()
	require.True(t, car.IsNativePayment())

	car.PaymentToken = common.HexToAddress("0x2222222222222222222222222222222222222222")
	require.False(t, car.IsNativePayment())
}

func TestCarParamsValidate(t *testing.T) {
	params := &CarParams{
		BasicDetails: CarBasicDetails{
			Name:  "Family SUV",
			Make:  "Toyota",
			Model: "RAV4",
			Year:  big.NewInt(2021),
			Vin:   big.NewInt(12345),
		},
		TechnicalDetails: CarTechnicalDetails{
			Price: big.NewInt(1_000_000),
		},
		SellerDetails: SellerDetails{
			Wallet:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
			SellerName: "Ada",
		},
		DestinationChainID: big.NewInt(11155111),
	}
	require.NoError(t, params.Validate())

	params.TechnicalDetails.Price = big.NewInt(0)
	require.Error(t, params.Validate())

	params.TechnicalDetails.Price = big.NewInt(1)
	params.BasicDetails.Make = ""
	require.Error(t, params.Validate())
}
