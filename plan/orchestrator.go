/*
orchestrator.go - Bounded retry loop around read -> settle -> write

Settlement can race a concurrent user write; correctness demands it
never overwrite one. The orchestrator therefore writes with the version
it read and retries the whole cycle on conflict, up to MaxAttempts.
Exhaustion is a soft failure: the caller gets the latest read-only state
and an empty-change summary, never a partial settlement.
*/
package plan

import "context"

// DefaultMaxAttempts bounds the read/settle/write cycle.
const DefaultMaxAttempts = 3

// Orchestrator drives settlement runs against a StateStore.
type Orchestrator struct {
	Store       StateStore
	Engine      *Engine
	Status      *StatusHolder
	MaxAttempts int
}

func NewOrchestrator(store StateStore, engine *Engine, status *StatusHolder) *Orchestrator {
	return &Orchestrator{
		Store:       store,
		Engine:      engine,
		Status:      status,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// RunResult is the outcome of one orchestrated settlement.
type RunResult struct {
	OK      bool
	Changed bool
	State   State
	Summary Summary
}

// Run executes the settlement cycle. Storage failures are returned as
// errors; conflict exhaustion is reported as OK=false with the latest
// known-good state.
func (o *Orchestrator) Run(ctx context.Context, reason string) (RunResult, error) {
	attempts := o.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		current, err := o.Store.ReadState(ctx)
		if err != nil {
			return RunResult{}, err
		}

		expected := current.Version
		settled, summary, events := o.Engine.Apply(current, reason)
		if !summary.Changed {
			o.record(summary)
			return RunResult{OK: true, State: current, Summary: summary}, nil
		}

		saved, err := o.Store.WriteState(ctx, settled, &expected, events)
		if err != nil {
			if IsConflict(err) {
				continue
			}
			return RunResult{}, err
		}

		o.record(summary)
		return RunResult{OK: true, Changed: true, State: saved, Summary: summary}, nil
	}

	latest, err := o.Store.ReadState(ctx)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{OK: false, State: latest, Summary: o.Engine.EmptySummary()}, nil
}

func (o *Orchestrator) record(summary Summary) {
	if o.Status != nil {
		o.Status.Record(summary)
	}
}
