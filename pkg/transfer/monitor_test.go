package transfer

import (
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweepMarksOverdueRecords(t *testing.T) {
	store := newTestStore(t)
	base := time.Unix(1000, 0)

	overdue := newRecord(1, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), base)
	require.NoError(t, overdue.transitionTo(StateSourcePaymentSubmitted, base))
	require.NoError(t, store.Put(overdue))

	fresh := newRecord(2, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1), base.Add(800*time.Second))
	require.NoError(t, fresh.transitionTo(StateQuoteRequested, base.Add(800*time.Second)))
	require.NoError(t, store.Put(fresh))

	m := NewMonitor(store, 900*time.Second)
	m.now = func() time.Time { return base.Add(901 * time.Second) }

	m.Sweep()
	require.Equal(t, StateTimedOut, overdue.CurrentState())
	require.Equal(t, StateQuoteRequested, fresh.CurrentState())

	// Sweeping again is idempotent.
	m.Sweep()
	require.Equal(t, StateTimedOut, overdue.CurrentState())
}

func TestSweepLeavesTerminalRecordsAlone(t *testing.T) {
	store := newTestStore(t)
	base := time.Unix(1000, 0)

	done := newRecord(3, sepoliaID, sepoliaID, buyerAddr, big.NewInt(1), base)
	require.NoError(t, done.transitionTo(StateSourcePaymentSubmitted, base))
	require.NoError(t, done.transitionTo(StateCompleted, base))
	require.NoError(t, store.Put(done))

	m := NewMonitor(store, time.Second)
	m.now = func() time.Time { return base.Add(time.Hour) }

	m.Sweep()
	require.Equal(t, StateCompleted, done.CurrentState())
}

// Run with -race. Persistence snapshots every active record, so a sweep or a
// field write landing mid-save must not tear the marshaled state.
func TestSweepAndPersistRaceSafely(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	rec := newRecord(40, sepoliaID, arbitrumID, buyerAddr, big.NewInt(1_000_000), base)
	require.NoError(t, rec.transitionTo(StateSourcePaymentSubmitted, base))
	require.NoError(t, store.Put(rec))

	m := NewMonitor(store, time.Minute)

	var wg sync.WaitGroup
	var updateErr error
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := store.Update(rec); err != nil {
				updateErr = err
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			rec.setSourceTx(fmt.Sprintf("0x%064x", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			m.Sweep()
		}
	}()
	wg.Wait()

	require.NoError(t, updateErr)
	require.Equal(t, StateTimedOut, rec.CurrentState())
}

func TestMonitorStartStop(t *testing.T) {
	store := newTestStore(t)
	m := NewMonitor(store, 900*time.Second)

	require.NoError(t, m.Start(time.Second))
	m.Stop()
}
