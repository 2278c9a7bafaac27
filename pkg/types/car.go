package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel token address meaning the chain's base
// currency. It is always accepted as a payment token; every other address
// must be allow-listed on chain.
var NativeToken = common.Address{}

// CarCondition mirrors the on-chain condition enum.
type CarCondition uint8

const (
	ConditionNew CarCondition = iota
	ConditionUsed
	ConditionCertifiedPreOwned
)

// CarTransmission mirrors the on-chain transmission enum.
type CarTransmission uint8

const (
	TransmissionManual CarTransmission = iota
	TransmissionAutomatic
)

// FuelType mirrors the on-chain fuel type enum.
type FuelType uint8

const (
	FuelGasoline FuelType = iota
	FuelDiesel
	FuelElectric
	FuelHybrid
)

// SellerDetails identifies the seller of a listing.
type SellerDetails struct {
	Wallet       common.Address `json:"wallet"`
	SellerName   string         `json:"sellerName"`
	Email        string         `json:"email"`
	PhoneNumber  *big.Int       `json:"phoneNumber"`
	ProfileImage string         `json:"profileImage"`
}

// Car is the asset record as read from the marketplace contract.
type Car struct {
	ID                 *big.Int        `json:"id"`
	Owner              common.Address  `json:"owner"`
	Name               string          `json:"name"`
	Images             []string        `json:"images"`
	Description        string          `json:"description"`
	Make               string          `json:"make"`
	Model              string          `json:"model"`
	Year               *big.Int        `json:"year"`
	Vin                *big.Int        `json:"vin"`
	Mileage            *big.Int        `json:"mileage"`
	Color              string          `json:"color"`
	Condition          CarCondition    `json:"condition"`
	Transmission       CarTransmission `json:"transmission"`
	FuelType           FuelType        `json:"fuelType"`
	Price              *big.Int        `json:"price"`
	Location           string          `json:"location"`
	Features           []string        `json:"features"`
	Seller             SellerDetails   `json:"seller"`
	Sold               bool            `json:"sold"`
	Deleted            bool            `json:"deleted"`
	DestinationChainID *big.Int        `json:"destinationChainId"`
	PaymentToken       common.Address  `json:"paymentToken"`
	SourceChainID      *big.Int        `json:"sourceChainId"`
}

// IsNativePayment reports whether the listing is priced in the chain's base
// currency rather than a token contract.
func (c *Car) IsNativePayment() bool {
	return c.PaymentToken == NativeToken
}

// CrossChain reports whether settling this listing requires bridging.
func (c *Car) CrossChain() bool {
	return c.SourceChainID.Cmp(c.DestinationChainID) != 0
}

// Validate rejects records whose terminal flags are inconsistent. Sold and
// deleted are mutually exclusive: a deleted car cannot be sold and a sold car
// cannot be deleted.
func (c *Car) Validate() error {
	if c.Sold && c.Deleted {
		return fmt.Errorf("car %s is flagged both sold and deleted", c.ID)
	}
	if c.Price == nil || c.Price.Sign() <= 0 {
		return fmt.Errorf("car %s has no price", c.ID)
	}
	return nil
}

// CarBasicDetails groups listing identity fields for listCar/updateCar calls.
type CarBasicDetails struct {
	Name        string   `json:"name"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Year        *big.Int `json:"year"`
	Vin         *big.Int `json:"vin"`
}

// CarTechnicalDetails groups mechanical fields for listCar/updateCar calls.
type CarTechnicalDetails struct {
	Mileage      *big.Int        `json:"mileage"`
	Color        string          `json:"color"`
	Condition    CarCondition    `json:"condition"`
	Transmission CarTransmission `json:"transmission"`
	FuelType     FuelType        `json:"fuelType"`
	Price        *big.Int        `json:"price"`
}

// CarAdditionalInfo groups free-form listing fields.
type CarAdditionalInfo struct {
	Location   string   `json:"location"`
	CarHistory string   `json:"carHistory"`
	Features   []string `json:"features"`
}

// CarParams is the full parameter set for creating or updating a listing.
type CarParams struct {
	BasicDetails       CarBasicDetails
	TechnicalDetails   CarTechnicalDetails
	AdditionalInfo     CarAdditionalInfo
	SellerDetails      SellerDetails
	DestinationChainID *big.Int
	PaymentToken       common.Address
}

// Validate checks the listing parameters before submission.
func (p *CarParams) Validate() error {
	if p.BasicDetails.Name == "" {
		return fmt.Errorf("car name is required")
	}
	if p.BasicDetails.Make == "" || p.BasicDetails.Model == "" {
		return fmt.Errorf("car make and model are required")
	}
	if p.TechnicalDetails.Price == nil || p.TechnicalDetails.Price.Sign() <= 0 {
		return fmt.Errorf("price must be greater than 0")
	}
	if p.SellerDetails.Wallet == (common.Address{}) {
		return fmt.Errorf("seller wallet is required")
	}
	if p.DestinationChainID == nil || p.DestinationChainID.Sign() <= 0 {
		return fmt.Errorf("destination chain id is required")
	}
	return nil
}

// Sale is a completed purchase as recorded by the marketplace contract.
type Sale struct {
	ID       *big.Int       `json:"id"`
	NewCarID *big.Int       `json:"newCarId"`
	Price    *big.Int       `json:"price"`
	Owner    common.Address `json:"owner"`
}
