package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
)

func testDoc() *Document {
	return &Document{
		TaskID: "task-1",
		Symbol: "AAPL",
		Recommendation: &core.ConsensusRecommendation{
			TaskID:      "task-1",
			Symbol:      "AAPL",
			Action:      core.ActionBuy,
			EntryPrice:  150,
			TargetPrice: 165,
			StopLoss:    145,
			Confidence:  0.72,
		},
		Validation: &core.ValidationOutcome{IsValid: true},
	}
}

func TestArchive_PutGetRoundTrip(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := NewArchive(fs)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, testDoc()))

	got, err := a.Get(ctx, "task-1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, core.ActionBuy, got.Recommendation.Action)
	assert.True(t, got.Validation.IsValid)
	assert.False(t, got.StoredAt.IsZero())
}

func TestArchive_ListSymbol(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := NewArchive(fs)
	ctx := context.Background()

	d1 := testDoc()
	d2 := testDoc()
	d2.TaskID = "task-2"
	require.NoError(t, a.Put(ctx, d1))
	require.NoError(t, a.Put(ctx, d2))

	paths, err := a.ListSymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestArchive_GetMissing(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := NewArchive(fs)

	_, err = a.Get(context.Background(), "nope", "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStoreFailed)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(config.StoreConfig{Type: "tape"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestOpen_LocalFS(t *testing.T) {
	a, err := Open(config.StoreConfig{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, a)
}
