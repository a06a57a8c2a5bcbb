/*
sweeper.go - Automated card expiry sweeper

PURPOSE:
  Periodically transitions active cards past their expiry date to the
  expired status, so stale cards stop accepting purchases without anyone
  having to notice them manually.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Sweeps once immediately at startup, then on every tick
  - Each sweep delegates to CardLedger.ExpireOverdue, which takes the
    per-card locks itself

USAGE:
  sweeper := NewExpirySweeper(ledger, log)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - mealcard/ledger.go: ExpireOverdue
  - cmd/server/main.go: Lifecycle wiring
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campuscard/server/mealcard"
)

// ExpirySweeper marks overdue cards as expired on a fixed cadence.
type ExpirySweeper struct {
	Ledger        *mealcard.CardLedger
	CheckInterval time.Duration
	Log           *logrus.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExpirySweeper creates a sweeper with a 1 hour default interval.
func NewExpirySweeper(ledger *mealcard.CardLedger, log *logrus.Logger) *ExpirySweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExpirySweeper{
		Ledger:        ledger,
		CheckInterval: 1 * time.Hour,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (es *ExpirySweeper) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)
	go es.run()

	es.Log.WithField("interval", es.CheckInterval).Info("expiry sweeper started")
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (es *ExpirySweeper) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker != nil {
		es.ticker.Stop()
		close(es.stop)
		es.wg.Wait()
		es.Log.Info("expiry sweeper stopped")
	}
}

func (es *ExpirySweeper) run() {
	defer es.wg.Done()

	// Sweep immediately on start.
	es.sweep()

	for {
		select {
		case <-es.ticker.C:
			es.sweep()
		case <-es.stop:
			return
		}
	}
}

func (es *ExpirySweeper) sweep() {
	expired, err := es.Ledger.ExpireOverdue(context.Background(), time.Now())
	if err != nil {
		es.Log.WithError(err).Error("expiry sweep failed")
		return
	}
	if expired > 0 {
		es.Log.WithField("expired", expired).Info("expiry sweep completed")
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (es *ExpirySweeper) RunNow() {
	es.sweep()
}
