package listing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"hemdealer/pkg/ledger"
	"hemdealer/pkg/types"
)

// Ledger is the single-chain contract surface the accessor needs. It is
// satisfied by *ledger.Session.
type Ledger interface {
	ChainID() uint64
	Account() common.Address
	GetCar(ctx context.Context, carID uint64) (*types.Car, error)
	GetAllCars(ctx context.Context) ([]*types.Car, error)
	GetMyCars(ctx context.Context) ([]*types.Car, error)
	GetAllSales(ctx context.Context) ([]*types.Sale, error)
	SupportedTokens(ctx context.Context, token common.Address) (bool, error)
	ListCar(ctx context.Context, params *types.CarParams) (ledger.TxHandle, error)
	UpdateCar(ctx context.Context, carID uint64, params *types.CarParams) (ledger.TxHandle, error)
	DeleteCar(ctx context.Context, carID uint64) (ledger.TxHandle, error)
	Await(ctx context.Context, handle ledger.TxHandle) (*ledger.Receipt, error)
}

// Accessor is the marketplace CRUD surface for one chain. It never performs
// cross-chain logic; settlement belongs to the transfer coordinator.
type Accessor struct {
	chain Ledger
}

// NewAccessor wraps a chain session.
func NewAccessor(chain Ledger) *Accessor {
	return &Accessor{chain: chain}
}

// List creates a listing. The payment token is validated against the bridge
// allow-list before submission; listing a car nobody can pay for is rejected
// up front.
func (a *Accessor) List(ctx context.Context, params *types.CarParams) (*ledger.Receipt, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	supported, err := a.chain.SupportedTokens(ctx, params.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token support: %w", err)
	}
	if !supported {
		return nil, fmt.Errorf("payment token %s is not supported", params.PaymentToken.Hex())
	}

	handle, err := a.chain.ListCar(ctx, params)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"chain": a.chain.ChainID(),
		"name":  params.BasicDetails.Name,
		"tx":    handle.Hash.Hex(),
	}).Info("listing submitted")

	return a.chain.Await(ctx, handle)
}

// Update rewrites listing metadata. Only the owner may update.
func (a *Accessor) Update(ctx context.Context, carID uint64, params *types.CarParams) (*ledger.Receipt, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	car, err := a.chain.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Owner != a.chain.Account() {
		return nil, fmt.Errorf("car %d is not owned by %s", carID, a.chain.Account().Hex())
	}
	if car.Sold {
		return nil, fmt.Errorf("car %d is already sold", carID)
	}

	handle, err := a.chain.UpdateCar(ctx, carID, params)
	if err != nil {
		return nil, err
	}
	return a.chain.Await(ctx, handle)
}

// Delete removes an unsold listing owned by the session account. A sold car
// cannot be deleted.
func (a *Accessor) Delete(ctx context.Context, carID uint64) (*ledger.Receipt, error) {
	car, err := a.chain.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Owner != a.chain.Account() {
		return nil, fmt.Errorf("car %d is not owned by %s", carID, a.chain.Account().Hex())
	}
	if car.Sold {
		return nil, fmt.Errorf("car %d is sold and cannot be deleted", carID)
	}

	handle, err := a.chain.DeleteCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	return a.chain.Await(ctx, handle)
}

// Get reads one listing.
func (a *Accessor) Get(ctx context.Context, carID uint64) (*types.Car, error) {
	return a.chain.GetCar(ctx, carID)
}

// All reads every live listing on the chain.
func (a *Accessor) All(ctx context.Context) ([]*types.Car, error) {
	return a.chain.GetAllCars(ctx)
}

// Mine reads the session account's listings.
func (a *Accessor) Mine(ctx context.Context) ([]*types.Car, error) {
	return a.chain.GetMyCars(ctx)
}

// Sales reads the marketplace sale history.
func (a *Accessor) Sales(ctx context.Context) ([]*types.Sale, error) {
	return a.chain.GetAllSales(ctx)
}
