package transfer

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.json")

	store, err := NewStore(path)
	require.NoError(t, err)

	rec := newRecord(7, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1_000_000), time.Unix(500, 0))
	require.NoError(t, rec.transitionTo(StateQuoteRequested, time.Unix(500, 0)))
	rec.RelayerFeePct = big.NewInt(50)
	require.NoError(t, store.Put(rec))

	reopened, err := NewStore(path)
	require.NoError(t, err)

	got, err := reopened.Get(7)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, StateQuoteRequested, got.CurrentState())
	require.Equal(t, int64(1_000_000), got.Price.Int64())
	require.Equal(t, int64(50), got.RelayerFeePct.Int64())
	require.Equal(t, buyerAddr, got.Buyer)
}

func TestStoreRejectsSecondActiveRecord(t *testing.T) {
	store := newTestStore(t)

	first := newRecord(7, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), time.Now())
	require.NoError(t, first.transitionTo(StateQuoteRequested, time.Now()))
	require.NoError(t, store.Put(first))

	second := newRecord(7, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), time.Now())
	require.ErrorIs(t, store.Put(second), ErrTransferInProgress)
}

func TestUpdateRejectsUntrackedRecord(t *testing.T) {
	store := newTestStore(t)

	stray := newRecord(9, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), time.Now())
	require.Error(t, store.Update(stray))

	require.NoError(t, stray.transitionTo(StateQuoteRequested, time.Now()))
	require.NoError(t, store.Put(stray))
	require.NoError(t, store.Update(stray))
}

func TestArchiveRequiresTerminalState(t *testing.T) {
	store := newTestStore(t)

	rec := newRecord(8, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), time.Now())
	require.NoError(t, rec.transitionTo(StateQuoteRequested, time.Now()))
	require.NoError(t, store.Put(rec))

	require.Error(t, store.Archive(rec))

	require.NoError(t, rec.fail(ErrTimedOut, time.Now()))
	require.NoError(t, store.Archive(rec))

	_, err := store.Get(8)
	require.Error(t, err)
	require.Len(t, store.Archived(), 1)
}
