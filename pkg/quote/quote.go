package quote

import (
	"fmt"
	"math/big"
	"time"
)

// FeeDenominator is the fixed denominator the relayer fee fraction is
// expressed over. A RelayerFeePct of 50 means 50/10000, i.e. 0.5%.
const FeeDenominator = 10000

// Request identifies the bridging operation a quote is requested for. A quote
// is only valid for the exact tuple it was issued against.
type Request struct {
	Amount             *big.Int
	OriginToken        string
	DestinationToken   string
	OriginChainID      uint64
	DestinationChainID uint64
	ReceiveNativeToken bool
}

// Validate enforces the relay's input constraints before any network call.
func (r *Request) Validate() error {
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("quote amount must be greater than 0")
	}
	if r.OriginChainID == r.DestinationChainID {
		return fmt.Errorf("origin and destination chain must differ (chain %d)", r.OriginChainID)
	}
	return nil
}

// Quote is a relay-issued, time-bounded fee estimate for one bridging
// operation. It is consumed once: both settlement legs must reuse the same
// fee and timestamp, since a second quote could carry a different fee and
// desynchronize them.
type Quote struct {
	// RelayerFeePct is the fee numerator over FeeDenominator.
	RelayerFeePct *big.Int
	// Timestamp is when the relay issued the quote. The ledger independently
	// rejects stale timestamps; this is not a long-lived price lock.
	Timestamp time.Time
	// The tuple the quote was issued for.
	Amount             *big.Int
	OriginChainID      uint64
	DestinationChainID uint64
}

// Total returns price plus the relayer fee, floored: price + price*fee/10000.
// The fee is non-negative, so Total(price) >= price always.
func (q *Quote) Total(price *big.Int) *big.Int {
	fee := new(big.Int).Mul(price, q.RelayerFeePct)
	fee.Div(fee, big.NewInt(FeeDenominator))
	return new(big.Int).Add(price, fee)
}

// Matches reports whether the quote was issued for the given tuple. Reusing a
// quote across a different (amount, source, destination) tuple is rejected.
func (q *Quote) Matches(amount *big.Int, originChainID, destinationChainID uint64) bool {
	return q.Amount.Cmp(amount) == 0 &&
		q.OriginChainID == originChainID &&
		q.DestinationChainID == destinationChainID
}
