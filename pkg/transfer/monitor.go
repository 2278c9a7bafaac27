package transfer

import (
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// DefaultSweepInterval is how often the monitor scans in-flight records.
const DefaultSweepInterval = 30 * time.Second

// Monitor watches in-flight transfer records and marks the ones that outlive
// the settlement window as TimedOut. It never cancels anything itself:
// cancellation is an explicit caller action through Coordinator.Cancel.
type Monitor struct {
	store     *Store
	window    time.Duration
	scheduler *gocron.Scheduler
	now       func() time.Time
}

// NewMonitor creates a monitor over the coordinator's record store.
func NewMonitor(store *Store, window time.Duration) *Monitor {
	return &Monitor{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// Start schedules periodic sweeps in the background.
func (m *Monitor) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	m.scheduler = gocron.NewScheduler(time.UTC)
	if _, err := m.scheduler.Every(interval).Do(m.Sweep); err != nil {
		return err
	}
	m.scheduler.StartAsync()

	log.WithField("interval", interval).Info("timeout monitor started")
	return nil
}

// Stop halts the background sweeps.
func (m *Monitor) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

// Sweep marks every overdue in-flight record TimedOut. Records already
// terminal or already TimedOut are left alone, so the sweep is idempotent.
func (m *Monitor) Sweep() {
	now := m.now()
	for _, rec := range m.store.Active() {
		state := rec.CurrentState()
		if state.Terminal() || state == StateTimedOut {
			continue
		}
		if !TimedOut(rec, now, m.window) {
			continue
		}

		if err := rec.transitionTo(StateTimedOut, now); err != nil {
			// The coordinator completed the record between the check and the
			// transition; the completion wins.
			continue
		}
		if err := m.store.Update(rec); err != nil {
			log.WithFields(log.Fields{"car": rec.CarID}).WithError(err).Warn("failed to persist timed-out record")
		}

		log.WithFields(log.Fields{
			"car":       rec.CarID,
			"submitted": rec.SubmittedAt,
			"window":    m.window,
		}).Warn("transfer exceeded settlement window")
	}
}
