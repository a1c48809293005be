package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// stubStore is an in-memory StateStore that can simulate competing
// writers: while conflictsLeft > 0, every write bumps the stored
// version (as if someone else wrote) and reports a conflict.
type stubStore struct {
	state         plan.State
	conflictsLeft int
	readErr       error
	writes        int
}

func newStubStore(state plan.State) *stubStore {
	return &stubStore{state: plan.SanitizeState(state)}
}

func (s *stubStore) ReadState(context.Context) (plan.State, error) {
	if s.readErr != nil {
		return plan.State{}, s.readErr
	}
	return s.state, nil
}

func (s *stubStore) WriteState(_ context.Context, candidate plan.State, expectedVersion *int64, _ []plan.LedgerEvent) (plan.State, error) {
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		s.state.Version++
		return plan.State{}, &plan.ConflictError{CurrentVersion: s.state.Version}
	}
	if expectedVersion != nil && *expectedVersion != s.state.Version {
		return plan.State{}, &plan.ConflictError{CurrentVersion: s.state.Version}
	}

	next := plan.SanitizeState(candidate)
	next.Version = s.state.Version + 1
	s.state = next
	s.writes++
	return next, nil
}

func dueState() plan.State {
	s := plan.DefaultState()
	s.Balance = decimal.NewFromInt(10000)
	s.Payments = []plan.Payment{monthlyPayment(1, "2025-01-15")}
	return s
}

func newOrchestrator(store plan.StateStore) (*plan.Orchestrator, *plan.StatusHolder) {
	status := plan.NewStatusHolder("UTC")
	engine := afternoonEngine("2025-04-20")
	return plan.NewOrchestrator(store, engine, status), status
}

// =============================================================================
// RUN OUTCOMES
// =============================================================================

func TestOrchestrator_NoChangeShortCircuits(t *testing.T) {
	// GIVEN: A state with nothing due
	store := newStubStore(plan.DefaultState())
	orch, status := newOrchestrator(store)

	// WHEN: Settlement runs
	result, err := orch.Run(context.Background(), "scheduled")

	// THEN: No write happens, the run still records status
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.Changed)
	assert.Zero(t, store.writes)

	snap := status.Snapshot()
	require.NotNil(t, snap.LastRunAt)
	assert.False(t, snap.Changed)
}

func TestOrchestrator_SettlesAndWrites(t *testing.T) {
	store := newStubStore(dueState())
	orch, status := newOrchestrator(store)

	result, err := orch.Run(context.Background(), "scheduled")

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, int64(2), result.State.Version, "one write, one version bump")
	assert.Equal(t, 4, result.Summary.SettledPayments)

	snap := status.Snapshot()
	assert.True(t, snap.Changed)
	assert.Equal(t, 4, snap.Summary.SettledPayments)
	assert.True(t, snap.Summary.BalanceDelta.Equal(decimal.NewFromInt(-4800)))
}

func TestOrchestrator_RetriesThroughConflicts(t *testing.T) {
	// GIVEN: Two competing writes land before ours does
	store := newStubStore(dueState())
	store.conflictsLeft = 2
	orch, _ := newOrchestrator(store)

	// WHEN: Settlement runs with the default 3 attempts
	result, err := orch.Run(context.Background(), "scheduled")

	// THEN: The third attempt succeeds
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, store.writes)
}

func TestOrchestrator_SoftFailureAfterExhaustion(t *testing.T) {
	// GIVEN: Every attempt conflicts
	store := newStubStore(dueState())
	store.conflictsLeft = 10
	orch, _ := newOrchestrator(store)

	// WHEN: Settlement runs out of attempts
	result, err := orch.Run(context.Background(), "scheduled")

	// THEN: Soft failure - no error, latest state, empty summary
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.False(t, result.Changed)
	assert.False(t, result.Summary.Changed)
	assert.Zero(t, store.writes)
	assert.Equal(t, store.state.Version, result.State.Version, "caller still sees the latest read")
}

func TestOrchestrator_ReadErrorPropagates(t *testing.T) {
	store := newStubStore(plan.DefaultState())
	store.readErr = errors.New("disk on fire")
	orch, _ := newOrchestrator(store)

	_, err := orch.Run(context.Background(), "scheduled")
	assert.Error(t, err)
}

func TestIsConflict(t *testing.T) {
	err := &plan.ConflictError{CurrentVersion: 7}
	assert.True(t, plan.IsConflict(err))
	assert.ErrorIs(t, err, plan.ErrStateConflict)
	assert.False(t, plan.IsConflict(errors.New("other")))
}
