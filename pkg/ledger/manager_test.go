package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway development key, never funded on any real network.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testEndpoints() map[uint64]Endpoint {
	return map[uint64]Endpoint{
		11155111: {
			ChainID:            11155111,
			RPCURL:             "http://127.0.0.1:8545",
			MarketplaceAddress: common.HexToAddress("0x3333333333333333333333333333333333333333"),
			BridgeAddress:      common.HexToAddress("0x4444444444444444444444444444444444444444"),
		},
	}
}

func TestManagerCachesSessions(t *testing.T) {
	m := NewManager(testEndpoints(), testKey)
	defer m.Close()

	s1, err := m.Session(11155111)
	require.NoError(t, err)
	s2, err := m.Session(11155111)
	require.NoError(t, err)
	require.Same(t, s1, s2)

	_, err = m.Session(99)
	require.Error(t, err)
}

func TestManagerInvalidatesOnAccountChange(t *testing.T) {
	m := NewManager(testEndpoints(), testKey)
	defer m.Close()

	s1, err := m.Session(11155111)
	require.NoError(t, err)

	// Different throwaway key; the cached session must not survive.
	m.OnAccountChanged("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")

	s2, err := m.Session(11155111)
	require.NoError(t, err)
	require.NotSame(t, s1, s2)
	require.NotEqual(t, s1.Account(), s2.Account())
}

func TestManagerInvalidatesOnChainChange(t *testing.T) {
	m := NewManager(testEndpoints(), testKey)
	defer m.Close()

	s1, err := m.Session(11155111)
	require.NoError(t, err)

	endpoint := testEndpoints()[11155111]
	endpoint.RPCURL = "http://127.0.0.1:9545"
	m.OnChainChanged(11155111, endpoint)

	s2, err := m.Session(11155111)
	require.NoError(t, err)
	require.NotSame(t, s1, s2)
}
