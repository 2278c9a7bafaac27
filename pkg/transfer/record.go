package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// State is the settlement position of a transfer record.
type State string

const (
	StateIdle                         State = "idle"
	StateQuoteRequested               State = "quote_requested"
	StateQuoteReceived                State = "quote_received"
	StateSourcePaymentSubmitted       State = "source_payment_submitted"
	StateSourcePaymentConfirmed       State = "source_payment_confirmed"
	StateDestinationTransferInitiated State = "destination_transfer_initiated"
	StateCompleted                    State = "completed"
	StateTimedOut                     State = "timed_out"
	StateCancelled                    State = "cancelled"
	StateFailed                       State = "failed"
)

// Terminal reports whether the record has finished its lifecycle. TimedOut is
// not terminal: a timed-out transfer still holds escrowed funds until it is
// explicitly cancelled.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// transitions is the legal edge set of the settlement machine. Every
// in-flight state can be forced to TimedOut by the monitor; Cancelled is
// reachable only from TimedOut.
var transitions = map[State][]State{
	StateIdle:                         {StateQuoteRequested, StateSourcePaymentSubmitted, StateTimedOut},
	StateQuoteRequested:               {StateQuoteReceived, StateFailed, StateTimedOut},
	StateQuoteReceived:                {StateSourcePaymentSubmitted, StateFailed, StateTimedOut},
	StateSourcePaymentSubmitted:       {StateSourcePaymentConfirmed, StateCompleted, StateFailed, StateTimedOut},
	StateSourcePaymentConfirmed:       {StateDestinationTransferInitiated, StateFailed, StateTimedOut},
	StateDestinationTransferInitiated: {StateCompleted, StateFailed, StateTimedOut},
	StateTimedOut:                     {StateCancelled},
}

var (
	// ErrTransferInProgress is returned when a second transfer is attempted on
	// an asset that already has a non-terminal record. Requests fail
	// immediately rather than queue.
	ErrTransferInProgress = errors.New("a transfer is already in progress for this car")

	// ErrUnsupportedToken is returned when the listing's payment token is not
	// allow-listed by the bridge.
	ErrUnsupportedToken = errors.New("payment token not supported")

	// ErrTimedOut is returned when a transfer exceeds its window before
	// completing. The record stays cancellable until Cancel reclaims the
	// escrow.
	ErrTimedOut = errors.New("transfer timed out")
)

// InvalidTransitionError marks an attempted state change outside the machine's
// edge set. It is a programming error and fails fast rather than no-opping.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transfer state transition %s -> %s", e.From, e.To)
}

// InsufficientValueError marks a native-token payment whose attached value
// does not cover price plus relayer fee. Values are never silently rounded
// up.
type InsufficientValueError struct {
	Value    *big.Int
	Required *big.Int
}

func (e *InsufficientValueError) Error() string {
	return fmt.Sprintf("attached value %s below required total %s", e.Value, e.Required)
}

// Record tracks one in-flight settlement. One non-terminal record may exist
// per car at a time; the record is archived once it reaches a terminal state.
type Record struct {
	ID                 string         `json:"id"`
	CarID              uint64         `json:"car_id"`
	SourceChainID      uint64         `json:"source_chain_id"`
	DestinationChainID uint64         `json:"destination_chain_id"`
	Buyer              common.Address `json:"buyer"`
	Price              *big.Int       `json:"price"`
	RelayerFeePct      *big.Int       `json:"relayer_fee_pct"`
	QuoteTimestamp     time.Time      `json:"quote_timestamp"`
	TotalValue         *big.Int       `json:"total_value"`
	SourceTxHash       string         `json:"source_tx_hash,omitempty"`
	DestinationTxHash  string         `json:"destination_tx_hash,omitempty"`
	State              State          `json:"state"`
	SubmittedAt        time.Time      `json:"submitted_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	FailureReason      string         `json:"failure_reason,omitempty"`

	mu    sync.Mutex
	cause error
}

func newRecord(carID, sourceChainID, destChainID uint64, buyer common.Address, price *big.Int, now time.Time) *Record {
	return &Record{
		ID:                 uuid.NewString(),
		CarID:              carID,
		SourceChainID:      sourceChainID,
		DestinationChainID: destChainID,
		Buyer:              buyer,
		Price:              new(big.Int).Set(price),
		State:              StateIdle,
		SubmittedAt:        now,
		UpdatedAt:          now,
	}
}

// recordWire is the record's persisted shape. Marshaling goes through a
// snapshot taken under the record lock, so persistence never observes a
// half-written record while the monitor or coordinator is mutating it.
type recordWire struct {
	ID                 string         `json:"id"`
	CarID              uint64         `json:"car_id"`
	SourceChainID      uint64         `json:"source_chain_id"`
	DestinationChainID uint64         `json:"destination_chain_id"`
	Buyer              common.Address `json:"buyer"`
	Price              *big.Int       `json:"price"`
	RelayerFeePct      *big.Int       `json:"relayer_fee_pct"`
	QuoteTimestamp     time.Time      `json:"quote_timestamp"`
	TotalValue         *big.Int       `json:"total_value"`
	SourceTxHash       string         `json:"source_tx_hash,omitempty"`
	DestinationTxHash  string         `json:"destination_tx_hash,omitempty"`
	State              State          `json:"state"`
	SubmittedAt        time.Time      `json:"submitted_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	FailureReason      string         `json:"failure_reason,omitempty"`
}

// MarshalJSON serializes a locked snapshot of the record.
func (r *Record) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(recordWire{
		ID:                 r.ID,
		CarID:              r.CarID,
		SourceChainID:      r.SourceChainID,
		DestinationChainID: r.DestinationChainID,
		Buyer:              r.Buyer,
		Price:              r.Price,
		RelayerFeePct:      r.RelayerFeePct,
		QuoteTimestamp:     r.QuoteTimestamp,
		TotalValue:         r.TotalValue,
		SourceTxHash:       r.SourceTxHash,
		DestinationTxHash:  r.DestinationTxHash,
		State:              r.State,
		SubmittedAt:        r.SubmittedAt,
		UpdatedAt:          r.UpdatedAt,
		CompletedAt:        r.CompletedAt,
		FailureReason:      r.FailureReason,
	})
}

// setQuote records the relay's fee terms under the record lock.
func (r *Record) setQuote(feePct *big.Int, timestamp time.Time, total *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RelayerFeePct = feePct
	r.QuoteTimestamp = timestamp
	r.TotalValue = total
}

func (r *Record) setSourceTx(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SourceTxHash = hash
}

func (r *Record) setDestinationTx(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DestinationTxHash = hash
}

// transitionTo moves the record along one legal edge. The monitor and the
// coordinator may both touch a record, so the check-and-set is atomic: if the
// monitor marked the record TimedOut first, the coordinator's next transition
// fails here instead of clobbering it.
func (r *Record) transitionTo(next State, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, allowed := range transitions[r.State] {
		if allowed == next {
			r.State = next
			r.UpdatedAt = now
			if next.Terminal() {
				t := now
				r.CompletedAt = &t
			}
			return nil
		}
	}
	return &InvalidTransitionError{From: r.State, To: next}
}

// fail terminates the record with its originating error attached. The cause
// is surfaced verbatim to callers, never replaced with a generic message.
func (r *Record) fail(cause error, now time.Time) error {
	if err := r.transitionTo(StateFailed, now); err != nil {
		return err
	}
	r.mu.Lock()
	r.cause = cause
	r.FailureReason = cause.Error()
	r.mu.Unlock()
	return nil
}

// markTimedOut forces the record into TimedOut with the stranding cause
// attached. It serves failures that strike after value was escrowed on
/// chain: the record must stay cancellable, not terminate as Failed.
func (r *Record) markTimedOut(cause error, now time.Time) error {
	if err := r.transitionTo(StateTimedOut, now); err != nil {
		return err
	}
	r.mu.Lock()
	r.cause = cause
	r.FailureReason = cause.Error()
	r.mu.Unlock()
	return nil
}

// Cause returns the error that failed or stranded the record, or nil.
func (r *Record) Cause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cause
}

// CurrentState reads the record state under its lock.
func (r *Record) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

// TimedOut reports whether the record has outlived the window at the given
// instant. It is pure and monotonic in now: once the window has elapsed it
// stays elapsed.
func TimedOut(r *Record, now time.Time, window time.Duration) bool {
	return now.Sub(r.SubmittedAt) > window
}

// ValidateValue rejects a native-token payment whose attached value does not
// cover the required total. Insufficient value is an error, never rounded.
func ValidateValue(value, required *big.Int) error {
	if value.Cmp(required) < 0 {
		return &InsufficientValueError{
			Value:    new(big.Int).Set(value),
			Required: new(big.Int).Set(required),
		}
	}
	return nil
}
