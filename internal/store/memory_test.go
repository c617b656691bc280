package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySolveRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.SaveSolveRecord(ctx, SolveRecord{ID: fmt.Sprintf("s%d", i), TenantID: "t1", Status: "SOLVED"}))
	}
	require.NoError(t, m.SaveSolveRecord(ctx, SolveRecord{ID: "other", TenantID: "t2"}))

	got, err := m.GetSolveRecord(ctx, "t1", "s3")
	require.NoError(t, err)
	assert.Equal(t, "SOLVED", got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = m.GetSolveRecord(ctx, "t1", "other")
	assert.ErrorIs(t, err, ErrNotFound)

	page, next, err := m.ListSolveRecords(ctx, "t1", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "s4", page[0].ID, "newest first")
	assert.Equal(t, "s3", next)

	page, next, err = m.ListSolveRecords(ctx, "t1", next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, []string{page[0].ID, page[1].ID})

	page, next, err = m.ListSolveRecords(ctx, "t1", next, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Empty(t, next)
}

func TestMemorySaveOverwritesByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveSolveRecord(ctx, SolveRecord{ID: "a", TenantID: "t", Status: "IMPROVING"}))
	require.NoError(t, m.SaveSolveRecord(ctx, SolveRecord{ID: "a", TenantID: "t", Status: "SOLVED"}))
	page, _, err := m.ListSolveRecords(ctx, "t", "", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "SOLVED", page[0].Status)
}

func TestMemoryOptimizerConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	cfg, err := m.GetOptimizerConfig(ctx, "t")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	in := map[string]any{"metaheuristic": "alns"}
	require.NoError(t, m.SaveOptimizerConfig(ctx, "t", in))
	in["metaheuristic"] = "mutated"
	cfg, err = m.GetOptimizerConfig(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "alns", cfg["metaheuristic"])
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 100, clampLimit(0))
	assert.Equal(t, 100, clampLimit(1000))
	assert.Equal(t, 7, clampLimit(7))
}
