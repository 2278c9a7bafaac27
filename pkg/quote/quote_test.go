package quote

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTotalAddsFlooredFee(t *testing.T) {
	q := &Quote{RelayerFeePct: big.NewInt(50)} // 0.5%

	total := q.Total(big.NewInt(1_000_000))
	require.Equal(t, int64(1_005_000), total.Int64())

	// floor, not round: 1001 * 50 / 10000 = 5.005 -> 5
	total = q.Total(big.NewInt(1001))
	require.Equal(t, int64(1006), total.Int64())
}

func TestTotalNeverBelowPrice(t *testing.T) {
	prices := []int64{1, 999, 1_000_000, 123_456_789}
	fees := []int64{0, 1, 50, 9999}

	for _, p := range prices {
		for _, f := range fees {
			q := &Quote{RelayerFeePct: big.NewInt(f)}
			price := big.NewInt(p)
			require.True(t, q.Total(price).Cmp(price) >= 0,
				"total below price for price=%d fee=%d", p, f)
		}
	}
}

func TestMatchesBindsQuoteToTuple(t *testing.T) {
	q := &Quote{
		RelayerFeePct:      big.NewInt(50),
		Timestamp:          time.Unix(1712000000, 0),
		Amount:             big.NewInt(1_000_000),
		OriginChainID:      11155111,
		DestinationChainID: 421614,
	}

	require.True(t, q.Matches(big.NewInt(1_000_000), 11155111, 421614))
	require.False(t, q.Matches(big.NewInt(999_999), 11155111, 421614))
	require.False(t, q.Matches(big.NewInt(1_000_000), 421614, 11155111))
	require.False(t, q.Matches(big.NewInt(1_000_000), 11155111, 84532))
}
