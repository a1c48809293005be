/*
status.go - Last-run settlement status

An explicitly owned, pull-based snapshot of the most recent settlement
run. Reset at startup, overwritten per orchestrator run, never
persisted.
*/
package plan

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the externally visible snapshot.
type Status struct {
	LastRunAt *time.Time    `json:"lastRunAt"`
	Timezone  string        `json:"timezone"`
	Changed   bool          `json:"changed"`
	Summary   StatusSummary `json:"summary"`
}

type StatusSummary struct {
	SettledPayments int             `json:"settledPayments"`
	SettledIncomes  int             `json:"settledIncomes"`
	BalanceDelta    decimal.Decimal `json:"balanceDelta"`
}

// StatusHolder owns the process-wide status. Safe for concurrent use.
type StatusHolder struct {
	mu       sync.RWMutex
	timezone string
	status   Status
}

func NewStatusHolder(timezone string) *StatusHolder {
	return &StatusHolder{
		timezone: timezone,
		status: Status{
			Timezone: timezone,
			Summary:  StatusSummary{BalanceDelta: decimal.Zero},
		},
	}
}

// Record overwrites the snapshot with the outcome of one run.
func (h *StatusHolder) Record(summary Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	runAt := summary.RunAt
	h.status = Status{
		LastRunAt: &runAt,
		Timezone:  h.timezone,
		Changed:   summary.Changed,
		Summary: StatusSummary{
			SettledPayments: summary.SettledPayments,
			SettledIncomes:  summary.SettledIncomes,
			BalanceDelta:    RoundCurrency(summary.BalanceDelta),
		},
	}
}

// Snapshot returns the current status.
func (h *StatusHolder) Snapshot() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
