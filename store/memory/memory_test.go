package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
	"github.com/warp/budget-engine/store/memory"
)

func TestMemory_DefaultStateBeforeFirstWrite(t *testing.T) {
	store := memory.New()

	state, err := store.ReadState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Version)
	assert.True(t, state.Balance.IsZero())
}

func TestMemory_ConflictSemanticsMatchSQLite(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := plan.DefaultState()
	first.Balance = decimal.NewFromInt(100)
	saved, err := store.WriteState(ctx, first, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Version)

	stale := saved
	staleVersion := int64(1)
	_, err = store.WriteState(ctx, stale, &staleVersion, nil)

	var conflict *plan.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.CurrentVersion)
}

func TestMemory_EventDeduplication(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	event := plan.LedgerEvent{
		ReferenceKey:  "settlement:income:3:2025-04-01",
		EventType:     plan.EventSettlementIncome,
		Amount:        decimal.NewFromInt(5000),
		EffectiveDate: mustDate(t, "2025-04-01"),
	}

	_, err := store.WriteState(ctx, plan.DefaultState(), nil, []plan.LedgerEvent{event})
	require.NoError(t, err)

	replay := event
	replay.Amount = decimal.NewFromInt(1)
	_, err = store.WriteState(ctx, plan.DefaultState(), nil, []plan.LedgerEvent{replay})
	require.NoError(t, err)

	stored, ok := store.Event(event.ReferenceKey)
	require.True(t, ok)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(5000)), "first event wins")
	assert.Equal(t, 1, store.EventCount())
}

func mustDate(t *testing.T, raw string) plan.Date {
	d, err := plan.ParseDate(raw)
	require.NoError(t, err)
	return d
}
