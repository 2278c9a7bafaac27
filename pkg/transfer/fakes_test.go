package transfer

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"hemdealer/pkg/ledger"
	"hemdealer/pkg/quote"
	"hemdealer/pkg/types"
)

var (
	buyerAddr  = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	sellerAddr = common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
)

// fakeQuotes serves canned quotes and records every request it sees.
type fakeQuotes struct {
	mu       sync.Mutex
	calls    int
	requests []quote.Request
	feePct   int64
	err      error
}

func (f *fakeQuotes) RequestQuote(_ context.Context, req quote.Request) (*quote.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &quote.Quote{
		RelayerFeePct:      big.NewInt(f.feePct),
		Timestamp:          time.Unix(1712000000, 0).UTC(),
		Amount:             new(big.Int).Set(req.Amount),
		OriginChainID:      req.OriginChainID,
		DestinationChainID: req.DestinationChainID,
	}, nil
}

func (f *fakeQuotes) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLedger is an in-memory chain implementing the coordinator's Ledger
// interface.
type fakeLedger struct {
	mu          sync.Mutex
	chainID     uint64
	account     common.Address
	cars        map[uint64]*types.Car
	unsupported map[common.Address]bool

	buyCalls      int
	bridgeCalls   int
	initiateCalls int
	cancelCalls   int

	lastBuyValue    *big.Int
	lastBridgeValue *big.Int
	lastFeePct      *big.Int
	lastQuoteTS     time.Time

	submitErr   error // returned by the next write call
	awaitErr    error // returned by the next Await
	initiateErr error // returned by InitiateCrossChainTransfer only

	nextNonce uint64
}

func newFakeLedger(chainID uint64) *fakeLedger {
	return &fakeLedger{
		chainID:     chainID,
		account:     buyerAddr,
		cars:        make(map[uint64]*types.Car),
		unsupported: make(map[common.Address]bool),
	}
}

func (f *fakeLedger) ChainID() uint64         { return f.chainID }
func (f *fakeLedger) Account() common.Address { return f.account }

func (f *fakeLedger) GetCar(_ context.Context, carID uint64) (*types.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[carID]
	if !ok || car.Deleted {
		return nil, fmt.Errorf("car %d: %w", carID, ledger.ErrNotFound)
	}
	return car, nil
}

func (f *fakeLedger) SupportedTokens(_ context.Context, token common.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == types.NativeToken {
		return true, nil
	}
	return !f.unsupported[token], nil
}

func (f *fakeLedger) handle() ledger.TxHandle {
	f.nextNonce++
	return ledger.TxHandle{
		Hash:    common.BigToHash(new(big.Int).SetUint64(f.nextNonce)),
		ChainID: f.chainID,
	}
}

func (f *fakeLedger) BuyCar(_ context.Context, carID uint64, feePct *big.Int, quoteTS time.Time, value *big.Int) (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyCalls++
	f.lastBuyValue = value
	f.lastFeePct = feePct
	f.lastQuoteTS = quoteTS
	if f.submitErr != nil {
		return ledger.TxHandle{}, f.submitErr
	}
	return f.handle(), nil
}

func (f *fakeLedger) BridgePayment(_ context.Context, token common.Address, amount *big.Int, recipient common.Address, destChainID uint64, value *big.Int) (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bridgeCalls++
	f.lastBridgeValue = value
	if f.submitErr != nil {
		return ledger.TxHandle{}, f.submitErr
	}
	return f.handle(), nil
}

func (f *fakeLedger) InitiateCrossChainTransfer(_ context.Context, carID, destChainID uint64, feePct *big.Int, quoteTS time.Time, value *big.Int) (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCalls++
	f.lastFeePct = feePct
	f.lastQuoteTS = quoteTS
	if f.initiateErr != nil {
		return ledger.TxHandle{}, f.initiateErr
	}
	if f.submitErr != nil {
		return ledger.TxHandle{}, f.submitErr
	}
	return f.handle(), nil
}

func (f *fakeLedger) CancelTimedOutTransfer(_ context.Context, carID uint64) (ledger.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.submitErr != nil {
		return ledger.TxHandle{}, f.submitErr
	}
	return f.handle(), nil
}

func (f *fakeLedger) Await(_ context.Context, _ ledger.TxHandle) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awaitErr != nil {
		err := f.awaitErr
		f.awaitErr = nil
		return nil, err
	}
	return &ledger.Receipt{BlockNumber: 1}, nil
}

// giveCar installs a listing on the fake chain.
func (f *fakeLedger) giveCar(carID uint64, owner common.Address, price int64, sourceChain, destChain uint64, token common.Address) *types.Car {
	car := &types.Car{
		ID:                 new(big.Int).SetUint64(carID),
		Owner:              owner,
		Name:               "Test Car",
		Price:              big.NewInt(price),
		Seller:             types.SellerDetails{Wallet: sellerAddr},
		SourceChainID:      new(big.Int).SetUint64(sourceChain),
		DestinationChainID: new(big.Int).SetUint64(destChain),
		PaymentToken:       token,
	}
	f.mu.Lock()
	f.cars[carID] = car
	f.mu.Unlock()
	return car
}

// sessions builds a SessionFunc over a set of fake chains.
func sessions(ledgers ...*fakeLedger) SessionFunc {
	return func(chainID uint64) (Ledger, error) {
		for _, l := range ledgers {
			if l.chainID == chainID {
				return l, nil
			}
		}
		return nil, fmt.Errorf("chain %d not configured", chainID)
	}
}
