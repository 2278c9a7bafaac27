package listing

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hemdealer/pkg/ledger"
	"hemdealer/pkg/types"
)

var (
	owner    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	stranger = common.HexToAddress("0x2222222222222222222222222222222222222222")
	badToken = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeChain struct {
	account     common.Address
	cars        map[uint64]*types.Car
	unsupported map[common.Address]bool

	listCalls   int
	updateCalls int
	deleteCalls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account:     owner,
		cars:        make(map[uint64]*types.Car),
		unsupported: map[common.Address]bool{badToken: true},
	}
}

func (f *fakeChain) ChainID() uint64         { return 11155111 }
func (f *fakeChain) Account() common.Address { return f.account }

func (f *fakeChain) GetCar(_ context.Context, carID uint64) (*types.Car, error) {
	car, ok := f.cars[carID]
	if !ok {
		return nil, fmt.Errorf("car %d: %w", carID, ledger.ErrNotFound)
	}
	return car, nil
}

func (f *fakeChain) GetAllCars(_ context.Context) ([]*types.Car, error)  { return nil, nil }
func (f *fakeChain) GetMyCars(_ context.Context) ([]*types.Car, error)   { return nil, nil }
func (f *fakeChain) GetAllSales(_ context.Context) ([]*types.Sale, error) { return nil, nil }

func (f *fakeChain) SupportedTokens(_ context.Context, token common.Address) (bool, error) {
	return !f.unsupported[token], nil
}

func (f *fakeChain) ListCar(_ context.Context, _ *types.CarParams) (ledger.TxHandle, error) {
	f.listCalls++
	return ledger.TxHandle{}, nil
}

func (f *fakeChain) UpdateCar(_ context.Context, _ uint64, _ *types.CarParams) (ledger.TxHandle, error) {
	f.updateCalls++
	return ledger.TxHandle{}, nil
}

func (f *fakeChain) DeleteCar(_ context.Context, _ uint64) (ledger.TxHandle, error) {
	f.deleteCalls++
	return ledger.TxHandle{}, nil
}

func (f *fakeChain) Await(_ context.Context, _ ledger.TxHandle) (*ledger.Receipt, error) {
	return &ledger.Receipt{BlockNumber: 1}, nil
}

func validParams() *types.CarParams {
	return &types.CarParams{
		BasicDetails: types.CarBasicDetails{
			Name:  "Test Car",
			Make:  "Toyota",
			Model: "Corolla",
			Year:  big.NewInt(2020),
			Vin:   big.NewInt(1234),
		},
		TechnicalDetails: types.CarTechnicalDetails{
			Price: big.NewInt(1_000_000),
		},
		SellerDetails:      types.SellerDetails{Wallet: owner},
		DestinationChainID: big.NewInt(11155111),
	}
}

func TestListValidatesTokenSupport(t *testing.T) {
	chain := newFakeChain()
	a := NewAccessor(chain)

	params := validParams()
	params.PaymentToken = badToken
	_, err := a.List(context.Background(), params)
	require.Error(t, err)
	require.Equal(t, 0, chain.listCalls)

	params.PaymentToken = types.NativeToken
	_, err = a.List(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, 1, chain.listCalls)
}

func TestListRejectsInvalidParams(t *testing.T) {
	chain := newFakeChain()
	a := NewAccessor(chain)

	params := validParams()
	params.TechnicalDetails.Price = big.NewInt(0)
	_, err := a.List(context.Background(), params)
	require.Error(t, err)
	require.Equal(t, 0, chain.listCalls)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	chain := newFakeChain()
	chain.cars[1] = &types.Car{ID: big.NewInt(1), Owner: stranger, Price: big.NewInt(1)}
	a := NewAccessor(chain)

	_, err := a.Update(context.Background(), 1, validParams())
	require.Error(t, err)
	require.Equal(t, 0, chain.updateCalls)

	chain.cars[1].Owner = owner
	_, err = a.Update(context.Background(), 1, validParams())
	require.NoError(t, err)
	require.Equal(t, 1, chain.updateCalls)
}

func TestDeleteRejectsSoldCar(t *testing.T) {
	chain := newFakeChain()
	chain.cars[2] = &types.Car{ID: big.NewInt(2), Owner: owner, Price: big.NewInt(1), Sold: true}
	a := NewAccessor(chain)

	_, err := a.Delete(context.Background(), 2)
	require.Error(t, err)
	require.Equal(t, 0, chain.deleteCalls)

	chain.cars[2].Sold = false
	_, err = a.Delete(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 1, chain.deleteCalls)
}
