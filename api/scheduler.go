/*
scheduler.go - Automated settlement scheduler

PURPOSE:
  Periodically runs the settlement orchestrator so due occurrences get
  settled even when no client touches the API for days.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick is a full orchestrator run with reason "scheduled"
  - Soft failures (conflict exhaustion) are logged and retried next tick

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSettlementScheduler(orchestrator)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - plan/orchestrator.go: The retry loop each tick executes
  - handlers.go: RunSettlement endpoint (manual trigger)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/budget-engine/plan"
)

// SettlementScheduler runs settlement on a fixed interval.
type SettlementScheduler struct {
	Orchestrator  *plan.Orchestrator
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSettlementScheduler creates a new scheduler.
func NewSettlementScheduler(orch *plan.Orchestrator) *SettlementScheduler {
	return &SettlementScheduler{
		Orchestrator:  orch,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SettlementScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *SettlementScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		ss.ticker = nil
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SettlementScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.runOnce()

	for {
		select {
		case <-ss.ticker.C:
			ss.runOnce()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SettlementScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := ss.Orchestrator.Run(ctx, "scheduled")
	if err != nil {
		log.Printf("[Scheduler] Settlement run failed: %v", err)
		return
	}
	if !result.OK {
		log.Println("[Scheduler] Settlement gave up after repeated conflicts, will retry next tick")
		return
	}
	if result.Changed {
		log.Printf("[Scheduler] Settled %d payments, %d incomes (delta %s)",
			result.Summary.SettledPayments, result.Summary.SettledIncomes,
			result.Summary.BalanceDelta.StringFixed(2))
	}
}

// RunNow triggers an immediate run (for testing/admin).
func (ss *SettlementScheduler) RunNow() {
	ss.runOnce()
}
