package ledger

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"hemdealer/pkg/types"
)

// carTupleJSON is the components list of the on-chain Car struct, shared by
// every marketplace view function.
const carTupleJSON = `[
	{"name":"id","type":"uint256"},
	{"name":"owner","type":"address"},
	{"name":"name","type":"string"},
	{"name":"images","type":"string[]"},
	{"name":"description","type":"string"},
	{"name":"make","type":"string"},
	{"name":"model","type":"string"},
	{"name":"year","type":"uint256"},
	{"name":"vin","type":"uint256"},
	{"name":"mileage","type":"uint256"},
	{"name":"color","type":"string"},
	{"name":"condition","type":"uint8"},
	{"name":"transmission","type":"uint8"},
	{"name":"fuelType","type":"uint8"},
	{"name":"price","type":"uint256"},
	{"name":"location","type":"string"},
	{"name":"features","type":"string[]"},
	{"name":"seller","type":"tuple","components":[
		{"name":"wallet","type":"address"},
		{"name":"sellerName","type":"string"},
		{"name":"email","type":"string"},
		{"name":"phoneNumber","type":"uint256"},
		{"name":"profileImage","type":"string"}
	]},
	{"name":"sold","type":"bool"},
	{"name":"deleted","type":"bool"},
	{"name":"destinationChainId","type":"uint256"},
	{"name":"paymentToken","type":"address"},
	{"name":"sourceChainId","type":"uint256"}
]`

// marketplaceABI is the HemDealer contract surface consumed by this module.
// The ABI is external and fixed.
var marketplaceABI = mustParseABI(`[
	{"name":"getCar","type":"function","stateMutability":"view",
		"inputs":[{"name":"carId","type":"uint256"}],
		"outputs":[{"name":"","type":"tuple","components":` + carTupleJSON + `}]},
	{"name":"getAllCars","type":"function","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"tuple[]","components":` + carTupleJSON + `}]},
	{"name":"getMyCars","type":"function","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"tuple[]","components":` + carTupleJSON + `}]},
	{"name":"getAllSales","type":"function","stateMutability":"view",
		"inputs":[],
		"outputs":[{"name":"","type":"tuple[]","components":[
			{"name":"id","type":"uint256"},
			{"name":"newCarId","type":"uint256"},
			{"name":"price","type":"uint256"},
			{"name":"owner","type":"address"}
		]}]},
	{"name":"listCar","type":"function","stateMutability":"nonpayable",
		"inputs":[
			{"name":"basicDetails","type":"tuple","components":[
				{"name":"name","type":"string"},
				{"name":"images","type":"string[]"},
				{"name":"description","type":"string"},
				{"name":"make","type":"string"},
				{"name":"model","type":"string"},
				{"name":"year","type":"uint256"},
				{"name":"vin","type":"uint256"}
			]},
			{"name":"technicalDetails","type":"tuple","components":[
				{"name":"mileage","type":"uint256"},
				{"name":"color","type":"string"},
				{"name":"condition","type":"uint8"},
				{"name":"transmission","type":"uint8"},
				{"name":"fuelType","type":"uint8"},
				{"name":"price","type":"uint256"}
			]},
			{"name":"additionalInfo","type":"tuple","components":[
				{"name":"location","type":"string"},
				{"name":"carHistory","type":"string"},
				{"name":"features","type":"string[]"}
			]},
			{"name":"sellerDetails","type":"tuple","components":[
				{"name":"wallet","type":"address"},
				{"name":"sellerName","type":"string"},
				{"name":"email","type":"string"},
				{"name":"phoneNumber","type":"uint256"},
				{"name":"profileImage","type":"string"}
			]},
			{"name":"destinationChainId","type":"uint256"},
			{"name":"paymentToken","type":"address"}
		],
		"outputs":[]},
	{"name":"updateCar","type":"function","stateMutability":"nonpayable",
		"inputs":[
			{"name":"carId","type":"uint256"},
			{"name":"basicDetails","type":"tuple","components":[
				{"name":"name","type":"string"},
				{"name":"images","type":"string[]"},
				{"name":"description","type":"string"},
				{"name":"make","type":"string"},
				{"name":"model","type":"string"},
				{"name":"year","type":"uint256"},
				{"name":"vin","type":"uint256"}
			]},
			{"name":"technicalDetails","type":"tuple","components":[
				{"name":"mileage","type":"uint256"},
				{"name":"color","type":"string"},
				{"name":"condition","type":"uint8"},
				{"name":"transmission","type":"uint8"},
				{"name":"fuelType","type":"uint8"},
				{"name":"price","type":"uint256"}
			]},
			{"name":"additionalInfo","type":"tuple","components":[
				{"name":"location","type":"string"},
				{"name":"carHistory","type":"string"},
				{"name":"features","type":"string[]"}
			]},
			{"name":"sellerDetails","type":"tuple","components":[
				{"name":"wallet","type":"address"},
				{"name":"sellerName","type":"string"},
				{"name":"email","type":"string"},
				{"name":"phoneNumber","type":"uint256"},
				{"name":"profileImage","type":"string"}
			]}
		],
		"outputs":[]},
	{"name":"deleteCar","type":"function","stateMutability":"nonpayable",
		"inputs":[{"name":"carId","type":"uint256"}],
		"outputs":[]},
	{"name":"buyCar","type":"function","stateMutability":"payable",
		"inputs":[
			{"name":"carId","type":"uint256"},
			{"name":"relayerFeePct","type":"uint256"},
			{"name":"quoteTimestamp","type":"uint256"}
		],
		"outputs":[]}
]`)

// bridgeABI is the HemDealerCrossChain contract surface.
var bridgeABI = mustParseABI(`[
	{"name":"bridgePayment","type":"function","stateMutability":"payable",
		"inputs":[
			{"name":"token","type":"address"},
			{"name":"amount","type":"uint256"},
			{"name":"recipient","type":"address"},
			{"name":"destinationChainId","type":"uint256"}
		],
		"outputs":[]},
	{"name":"initiateCrossChainTransfer","type":"function","stateMutability":"payable",
		"inputs":[
			{"name":"carId","type":"uint256"},
			{"name":"destinationChainId","type":"uint256"},
			{"name":"relayerFeePct","type":"uint256"},
			{"name":"quoteTimestamp","type":"uint256"}
		],
		"outputs":[]},
	{"name":"cancelTimedOutTransfer","type":"function","stateMutability":"nonpayable",
		"inputs":[{"name":"carId","type":"uint256"}],
		"outputs":[]},
	{"name":"isTransferTimedOut","type":"function","stateMutability":"view",
		"inputs":[{"name":"carId","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]},
	{"name":"supportedTokens","type":"function","stateMutability":"view",
		"inputs":[{"name":"token","type":"address"}],
		"outputs":[{"name":"","type":"bool"}]}
]`)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("ledger: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// Binding structs in the shape the abi package decodes tuples into. Field
// names follow the component names, camel-cased the way abigen does it.

type chainSeller struct {
	Wallet       common.Address
	SellerName   string
	Email        string
	PhoneNumber  *big.Int
	ProfileImage string
}

type chainCar struct {
	Id                 *big.Int
	Owner              common.Address
	Name               string
	Images             []string
	Description        string
	Make               string
	Model              string
	Year               *big.Int
	Vin                *big.Int
	Mileage            *big.Int
	Color              string
	Condition          uint8
	Transmission       uint8
	FuelType           uint8
	Price              *big.Int
	Location           string
	Features           []string
	Seller             chainSeller
	Sold               bool
	Deleted            bool
	DestinationChainId *big.Int
	PaymentToken       common.Address
	SourceChainId      *big.Int
}

type chainSale struct {
	Id       *big.Int
	NewCarId *big.Int
	Price    *big.Int
	Owner    common.Address
}

type chainBasicDetails struct {
	Name        string
	Images      []string
	Description string
	Make        string
	Model       string
	Year        *big.Int
	Vin         *big.Int
}

type chainTechnicalDetails struct {
	Mileage      *big.Int
	Color        string
	Condition    uint8
	Transmission uint8
	FuelType     uint8
	Price        *big.Int
}

type chainAdditionalInfo struct {
	Location   string
	CarHistory string
	Features   []string
}

func (c *chainCar) toCar() *types.Car {
	return &types.Car{
		ID:                 c.Id,
		Owner:              c.Owner,
		Name:               c.Name,
		Images:             c.Images,
		Description:        c.Description,
		Make:               c.Make,
		Model:              c.Model,
		Year:               c.Year,
		Vin:                c.Vin,
		Mileage:            c.Mileage,
		Color:              c.Color,
		Condition:          types.CarCondition(c.Condition),
		Transmission:       types.CarTransmission(c.Transmission),
		FuelType:           types.FuelType(c.FuelType),
		Price:              c.Price,
		Location:           c.Location,
		Features:           c.Features,
		Seller: types.SellerDetails{
			Wallet:       c.Seller.Wallet,
			SellerName:   c.Seller.SellerName,
			Email:        c.Seller.Email,
			PhoneNumber:  c.Seller.PhoneNumber,
			ProfileImage: c.Seller.ProfileImage,
		},
		Sold:               c.Sold,
		Deleted:            c.Deleted,
		DestinationChainID: c.DestinationChainId,
		PaymentToken:       c.PaymentToken,
		SourceChainID:      c.SourceChainId,
	}
}

func (c *chainSale) toSale() *types.Sale {
	return &types.Sale{ID: c.Id, NewCarID: c.NewCarId, Price: c.Price, Owner: c.Owner}
}

func bindBasicDetails(d types.CarBasicDetails) chainBasicDetails {
	return chainBasicDetails{
		Name:        d.Name,
		Images:      d.Images,
		Description: d.Description,
		Make:        d.Make,
		Model:       d.Model,
		Year:        d.Year,
		Vin:         d.Vin,
	}
}

func bindTechnicalDetails(d types.CarTechnicalDetails) chainTechnicalDetails {
	return chainTechnicalDetails{
		Mileage:      d.Mileage,
		Color:        d.Color,
		Condition:    uint8(d.Condition),
		Transmission: uint8(d.Transmission),
		FuelType:     uint8(d.FuelType),
		Price:        d.Price,
	}
}

func bindAdditionalInfo(d types.CarAdditionalInfo) chainAdditionalInfo {
	return chainAdditionalInfo{Location: d.Location, CarHistory: d.CarHistory, Features: d.Features}
}

func bindSeller(d types.SellerDetails) chainSeller {
	return chainSeller{
		Wallet:       d.Wallet,
		SellerName:   d.SellerName,
		Email:        d.Email,
		PhoneNumber:  d.PhoneNumber,
		ProfileImage: d.ProfileImage,
	}
}
