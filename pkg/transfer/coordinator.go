package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"hemdealer/pkg/ledger"
	"hemdealer/pkg/quote"
	"hemdealer/pkg/types"
)

const (
	// DefaultTimeoutWindow bounds the coordinator's patience for one
	// settlement. It is configuration, not negotiated per transfer; the
	// bridge relay's own SLA is external to us.
	DefaultTimeoutWindow = 900 * time.Second

	// DefaultOwnershipPollInterval is how often the destination chain is
	// polled for the ownership reassignment that marks completion.
	DefaultOwnershipPollInterval = 15 * time.Second
)

// QuoteService requests bridging fee quotes from the external relay.
type QuoteService interface {
	RequestQuote(ctx context.Context, req quote.Request) (*quote.Quote, error)
}

// Ledger is the per-chain contract surface the coordinator drives. It is
// satisfied by *ledger.Session.
type Ledger interface {
	ChainID() uint64
	Account() common.Address
	GetCar(ctx context.Context, carID uint64) (*types.Car, error)
	SupportedTokens(ctx context.Context, token common.Address) (bool, error)
	BuyCar(ctx context.Context, carID uint64, relayerFeePct *big.Int, quoteTimestamp time.Time, value *big.Int) (ledger.TxHandle, error)
	BridgePayment(ctx context.Context, token common.Address, amount *big.Int, recipient common.Address, destChainID uint64, value *big.Int) (ledger.TxHandle, error)
	InitiateCrossChainTransfer(ctx context.Context, carID, destChainID uint64, relayerFeePct *big.Int, quoteTimestamp time.Time, value *big.Int) (ledger.TxHandle, error)
	CancelTimedOutTransfer(ctx context.Context, carID uint64) (ledger.TxHandle, error)
	Await(ctx context.Context, handle ledger.TxHandle) (*ledger.Receipt, error)
}

// SessionFunc resolves the ledger session for a chain.
type SessionFunc func(chainID uint64) (Ledger, error)

// Coordinator drives the cross-chain settlement sequence for one asset at a
// time per car: quote, source payment, transfer initiation, destination
// confirmation. Transfers for different cars proceed concurrently; a second
// transfer for the same car fails immediately with ErrTransferInProgress.
type Coordinator struct {
	quotes       QuoteService
	session      SessionFunc
	store        *Store
	window       time.Duration
	pollInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	inflight map[uint64]struct{}
}

// NewCoordinator wires a coordinator over the given quote service, session
// resolver and record store. Locks for records that were in flight when the
// process last stopped are re-acquired from the store.
func NewCoordinator(quotes QuoteService, session SessionFunc, store *Store) *Coordinator {
	c := &Coordinator{
		quotes:       quotes,
		session:      session,
		store:        store,
		window:       DefaultTimeoutWindow,
		pollInterval: DefaultOwnershipPollInterval,
		now:          time.Now,
		inflight:     make(map[uint64]struct{}),
	}
	for _, rec := range store.Active() {
		if !rec.CurrentState().Terminal() {
			c.inflight[rec.CarID] = struct{}{}
		}
	}
	return c
}

// SetTimeoutWindow overrides the settlement window.
func (c *Coordinator) SetTimeoutWindow(window time.Duration) {
	c.window = window
}

// SetOwnershipPollInterval overrides the destination polling cadence.
func (c *Coordinator) SetOwnershipPollInterval(interval time.Duration) {
	c.pollInterval = interval
}

// TimeoutWindow returns the configured settlement window.
func (c *Coordinator) TimeoutWindow() time.Duration {
	return c.window
}

// acquire takes the asset-keyed exclusive lock. It is held from initiation
// until the record reaches a terminal state.
func (c *Coordinator) acquire(carID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.inflight[carID]; held {
		return fmt.Errorf("car %d: %w", carID, ErrTransferInProgress)
	}
	c.inflight[carID] = struct{}{}
	return nil
}

func (c *Coordinator) release(carID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, carID)
}

// Purchase settles a purchase of the car listed on sourceChainID. Listings
// whose destination chain equals their source chain take the fast path: one
// ledger submission, no quote. Cross-chain listings run the full
// quote/bridge/initiate sequence.
func (c *Coordinator) Purchase(ctx context.Context, sourceChainID, carID uint64) (*Record, error) {
	src, err := c.session(sourceChainID)
	if err != nil {
		return nil, err
	}

	car, err := src.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if err := car.Validate(); err != nil {
		return nil, err
	}
	if car.Sold {
		return nil, fmt.Errorf("car %d is already sold", carID)
	}

	supported, err := src.SupportedTokens(ctx, car.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token support: %w", err)
	}
	if !supported {
		return nil, fmt.Errorf("token %s: %w", car.PaymentToken.Hex(), ErrUnsupportedToken)
	}

	if err := c.acquire(carID); err != nil {
		return nil, err
	}

	rec := newRecord(carID, sourceChainID, car.DestinationChainID.Uint64(), src.Account(), car.Price, c.now())
	if err := c.store.Put(rec); err != nil {
		c.release(carID)
		return nil, err
	}
	defer c.finalize(rec)

	log.WithFields(log.Fields{
		"car":        carID,
		"from_chain": rec.SourceChainID,
		"to_chain":   rec.DestinationChainID,
		"price":      rec.Price,
	}).Info("purchase started")

	if rec.SourceChainID == rec.DestinationChainID {
		err = c.purchaseSameChain(ctx, src, rec, car)
	} else {
		err = c.purchaseCrossChain(ctx, src, rec, car)
	}
	return rec, err
}

// purchaseSameChain is the fast path: no bridging is needed and none is
// attempted. The purchase call carries a zero relayer fee and the current
// time as quote-equivalent.
func (c *Coordinator) purchaseSameChain(ctx context.Context, src Ledger, rec *Record, car *types.Car) error {
	feePct := big.NewInt(0)
	quoteTS := c.now()
	rec.setQuote(feePct, quoteTS, new(big.Int).Set(car.Price))

	if err := c.advance(rec, StateSourcePaymentSubmitted); err != nil {
		return err
	}

	handle, err := src.BuyCar(ctx, rec.CarID, feePct, quoteTS, car.Price)
	if err != nil {
		return c.failWith(rec, err)
	}
	rec.setSourceTx(handle.Hash.Hex())
	c.persist(rec)

	if _, err := src.Await(ctx, handle); err != nil {
		return c.failWith(rec, err)
	}

	return c.advance(rec, StateCompleted)
}

// purchaseCrossChain runs the two-leg settlement. The two legs are
// independent consensus events; the machine never advances past a leg whose
// receipt has not been observed.
func (c *Coordinator) purchaseCrossChain(ctx context.Context, src Ledger, rec *Record, car *types.Car) error {
	if err := c.advance(rec, StateQuoteRequested); err != nil {
		return err
	}

	q, err := c.quotes.RequestQuote(ctx, quote.Request{
		Amount:             car.Price,
		OriginToken:        car.PaymentToken.Hex(),
		DestinationToken:   car.PaymentToken.Hex(),
		OriginChainID:      rec.SourceChainID,
		DestinationChainID: rec.DestinationChainID,
		ReceiveNativeToken: car.IsNativePayment(),
	})
	if err != nil {
		// Quote failures are not retried here: silent retry of a financial
		// operation risks duplicate submission. The caller decides.
		return c.failWith(rec, err)
	}
	if !q.Matches(car.Price, rec.SourceChainID, rec.DestinationChainID) {
		return c.failWith(rec, fmt.Errorf("quote does not match requested transfer tuple"))
	}

	if err := c.advance(rec, StateQuoteReceived); err != nil {
		return err
	}
	total := q.Total(car.Price)
	rec.setQuote(q.RelayerFeePct, q.Timestamp, total)
	c.persist(rec)

	// Native listings attach the full total as value; token listings
	// authorize value separately and attach zero.
	value := big.NewInt(0)
	if car.IsNativePayment() {
		value = total
		if err := ValidateValue(value, total); err != nil {
			return c.failWith(rec, err)
		}
	}

	if err := c.advance(rec, StateSourcePaymentSubmitted); err != nil {
		return err
	}
	handle, err := src.BridgePayment(ctx, car.PaymentToken, car.Price, car.Seller.Wallet, rec.DestinationChainID, value)
	if err != nil {
		return c.failWith(rec, err)
	}
	rec.setSourceTx(handle.Hash.Hex())
	c.persist(rec)

	if _, err := src.Await(ctx, handle); err != nil {
		// Reverted: the chain guarantees the value never left the buyer, so
		// the record terminates without any locally-committed spend.
		return c.failWith(rec, err)
	}
	if err := c.advance(rec, StateSourcePaymentConfirmed); err != nil {
		return err
	}

	// The payment is escrowed from here on. Failures past this point strand
	// the record as TimedOut rather than Failed, keeping Cancel available to
	// reclaim the escrow.
	//
	// The initiation leg reuses the SAME quote values that funded the
	// payment leg. A fresh quote could carry a different fee and
	// desynchronize the two legs.
	initHandle, err := src.InitiateCrossChainTransfer(ctx, rec.CarID, rec.DestinationChainID, q.RelayerFeePct, q.Timestamp, nil)
	if err != nil {
		return c.strandWith(rec, err)
	}
	if err := c.advance(rec, StateDestinationTransferInitiated); err != nil {
		return err
	}
	rec.setDestinationTx(initHandle.Hash.Hex())
	c.persist(rec)

	if _, err := src.Await(ctx, initHandle); err != nil {
		return c.strandWith(rec, err)
	}

	if err := c.awaitOwnership(ctx, rec); err != nil {
		return err
	}
	return c.advance(rec, StateCompleted)
}

// Relocate moves an unsold listing owned by the session account to another
// chain. It runs the same quote-then-initiate sequence as a cross-chain
// purchase, with the initiation transaction as the source-side submission.
func (c *Coordinator) Relocate(ctx context.Context, sourceChainID, carID, destChainID uint64) (*Record, error) {
	if destChainID == sourceChainID {
		return nil, fmt.Errorf("cannot transfer car %d to its own chain %d", carID, sourceChainID)
	}

	src, err := c.session(sourceChainID)
	if err != nil {
		return nil, err
	}

	car, err := src.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Sold {
		return nil, fmt.Errorf("car %d is already sold", carID)
	}
	if car.Owner != src.Account() {
		return nil, fmt.Errorf("car %d is not owned by %s", carID, src.Account().Hex())
	}

	supported, err := src.SupportedTokens(ctx, car.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token support: %w", err)
	}
	if !supported {
		return nil, fmt.Errorf("token %s: %w", car.PaymentToken.Hex(), ErrUnsupportedToken)
	}

	if err := c.acquire(carID); err != nil {
		return nil, err
	}

	rec := newRecord(carID, sourceChainID, destChainID, src.Account(), car.Price, c.now())
	if err := c.store.Put(rec); err != nil {
		c.release(carID)
		return nil, err
	}
	defer c.finalize(rec)

	log.WithFields(log.Fields{
		"car":        carID,
		"from_chain": sourceChainID,
		"to_chain":   destChainID,
	}).Info("cross-chain relocation started")

	if err := c.advance(rec, StateQuoteRequested); err != nil {
		return rec, err
	}

	q, err := c.quotes.RequestQuote(ctx, quote.Request{
		Amount:             car.Price,
		OriginToken:        car.PaymentToken.Hex(),
		DestinationToken:   car.PaymentToken.Hex(),
		OriginChainID:      sourceChainID,
		DestinationChainID: destChainID,
		ReceiveNativeToken: car.IsNativePayment(),
	})
	if err != nil {
		return rec, c.failWith(rec, err)
	}
	if !q.Matches(car.Price, sourceChainID, destChainID) {
		return rec, c.failWith(rec, fmt.Errorf("quote does not match requested transfer tuple"))
	}

	if err := c.advance(rec, StateQuoteReceived); err != nil {
		return rec, err
	}
	rec.setQuote(q.RelayerFeePct, q.Timestamp, q.Total(car.Price))
	c.persist(rec)

	if err := c.advance(rec, StateSourcePaymentSubmitted); err != nil {
		return rec, err
	}
	handle, err := src.InitiateCrossChainTransfer(ctx, carID, destChainID, q.RelayerFeePct, q.Timestamp, nil)
	if err != nil {
		return rec, c.failWith(rec, err)
	}
	rec.setSourceTx(handle.Hash.Hex())
	c.persist(rec)

	if _, err := src.Await(ctx, handle); err != nil {
		return rec, c.failWith(rec, err)
	}
	if err := c.advance(rec, StateSourcePaymentConfirmed); err != nil {
		return rec, err
	}
	if err := c.advance(rec, StateDestinationTransferInitiated); err != nil {
		return rec, err
	}

	if err := c.awaitOwnership(ctx, rec); err != nil {
		return rec, err
	}
	return rec, c.advance(rec, StateCompleted)
}

// Cancel reclaims the escrow of a timed-out transfer. It is only legal once
// the record is TimedOut: cancelling a live transfer could race a legitimate
// completion and double-refund, so any other state fails fast.
func (c *Coordinator) Cancel(ctx context.Context, carID uint64) (*Record, error) {
	rec, err := c.store.Get(carID)
	if err != nil {
		return nil, err
	}
	if state := rec.CurrentState(); state != StateTimedOut {
		return nil, &InvalidTransitionError{From: state, To: StateCancelled}
	}

	src, err := c.session(rec.SourceChainID)
	if err != nil {
		return nil, err
	}

	handle, err := src.CancelTimedOutTransfer(ctx, carID)
	if err != nil {
		return nil, err
	}
	if _, err := src.Await(ctx, handle); err != nil {
		// Reverted or abandoned: the record stays TimedOut and cancellable.
		return nil, err
	}

	if err := rec.transitionTo(StateCancelled, c.now()); err != nil {
		return nil, err
	}
	if err := c.store.Archive(rec); err != nil {
		return nil, err
	}
	c.release(carID)

	log.WithField("car", carID).Info("timed-out transfer cancelled, escrow reclaimed")
	return rec, nil
}

// Status returns the record for a car, active or archived.
func (c *Coordinator) Status(carID uint64) (*Record, error) {
	if rec, err := c.store.Get(carID); err == nil {
		return rec, nil
	}
	archived := c.store.Archived()
	for i := len(archived) - 1; i >= 0; i-- {
		if archived[i].CarID == carID {
			return archived[i], nil
		}
	}
	return nil, fmt.Errorf("no transfer record for car %d", carID)
}

// advance moves the record one state forward and persists it. If the monitor
// marked the record TimedOut in the meantime, the move fails and surfaces as
// ErrTimedOut instead of clobbering the timeout.
func (c *Coordinator) advance(rec *Record, next State) error {
	if err := rec.transitionTo(next, c.now()); err != nil {
		if rec.CurrentState() == StateTimedOut {
			return fmt.Errorf("car %d: %w", rec.CarID, ErrTimedOut)
		}
		return err
	}
	c.persist(rec)

	log.WithFields(log.Fields{"car": rec.CarID, "state": next}).Debug("transfer state advanced")
	return nil
}

// persist writes the record's current snapshot. A persistence failure does
// not abort a settlement that the chain has already progressed, but it is
// never silent.
func (c *Coordinator) persist(rec *Record) {
	if err := c.store.Update(rec); err != nil {
		log.WithFields(log.Fields{"car": rec.CarID}).WithError(err).Warn("failed to persist transfer record")
	}
}

// failWith terminates the record with its originating cause attached and
// returns that cause to the caller.
func (c *Coordinator) failWith(rec *Record, cause error) error {
	if err := rec.fail(cause, c.now()); err != nil {
		if rec.CurrentState() == StateTimedOut {
			return errors.Join(fmt.Errorf("car %d: %w", rec.CarID, ErrTimedOut), cause)
		}
		return err
	}
	c.persist(rec)

	log.WithFields(log.Fields{"car": rec.CarID}).WithError(cause).Warn("transfer failed")
	return cause
}

// strandWith handles a failure that strikes after value was escrowed on the
// source chain. Marking the record Failed would archive it and release the
// asset lock with funds still held on chain; TimedOut keeps it active and
// cancellable, so Cancel can reclaim the escrow.
func (c *Coordinator) strandWith(rec *Record, cause error) error {
	if err := rec.markTimedOut(cause, c.now()); err != nil {
		if rec.CurrentState() == StateTimedOut {
			return errors.Join(fmt.Errorf("car %d: %w", rec.CarID, ErrTimedOut), cause)
		}
		return err
	}
	c.persist(rec)

	log.WithFields(log.Fields{"car": rec.CarID}).WithError(cause).
		Warn("transfer stranded after escrow, cancel to reclaim funds")
	return cause
}

// finalize archives terminal records and releases the asset lock. Records
// still in flight (including TimedOut ones awaiting Cancel) keep the lock.
func (c *Coordinator) finalize(rec *Record) {
	if rec.CurrentState().Terminal() {
		if err := c.store.Archive(rec); err != nil {
			log.WithFields(log.Fields{"car": rec.CarID}).WithError(err).Warn("failed to archive transfer record")
		}
		c.release(rec.CarID)
		return
	}
	c.persist(rec)
}

// awaitOwnership polls the destination chain until the asset's ownership
// reassignment is observed, the window elapses, or ctx is cancelled.
// Completion is defined by the destination ledger, not by the relay.
func (c *Coordinator) awaitOwnership(ctx context.Context, rec *Record) error {
	dst, err := c.session(rec.DestinationChainID)
	if err != nil {
		return c.failWith(rec, err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if TimedOut(rec, c.now(), c.window) {
			if err := rec.transitionTo(StateTimedOut, c.now()); err == nil {
				c.persist(rec)
			}
			return fmt.Errorf("car %d: %w", rec.CarID, ErrTimedOut)
		}

		car, err := dst.GetCar(ctx, rec.CarID)
		if err == nil && car.Owner == rec.Buyer {
			return nil
		}
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			log.WithFields(log.Fields{"car": rec.CarID, "chain": rec.DestinationChainID}).
				WithError(err).Debug("destination poll failed, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
