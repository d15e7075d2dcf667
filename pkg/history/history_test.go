package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreAppendLoadReset(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			turns, err := store.Load(ctx, "t1")
			require.NoError(t, err)
			assert.Empty(t, turns)

			require.NoError(t, store.Append(ctx, "t1", types.NewUserTurn("q1"), types.NewModelTurn("a1")))
			require.NoError(t, store.Append(ctx, "t1", types.NewUserTurn("q2")))
			require.NoError(t, store.Append(ctx, "t2", types.NewUserTurn("other")))
			require.NoError(t, store.Append(ctx, "t2"))

			turns, err = store.Load(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, []types.Turn{
				types.NewUserTurn("q1"),
				types.NewModelTurn("a1"),
				types.NewUserTurn("q2"),
			}, turns)

			require.NoError(t, store.Reset(ctx, "t1"))
			turns, err = store.Load(ctx, "t1")
			require.NoError(t, err)
			assert.Empty(t, turns)

			turns, err = store.Load(ctx, "t2")
			require.NoError(t, err)
			assert.Len(t, turns, 1, "other tabs are untouched")
		})
	}
}

func TestStoresRejectEmptyTabID(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyTabID)
			assert.ErrorIs(t, store.Append(ctx, "", types.NewUserTurn("q")), ErrEmptyTabID)
			assert.ErrorIs(t, store.Reset(ctx, ""), ErrEmptyTabID)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, "t1", types.NewUserTurn("q")))

	turns, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	turns[0].Text = "changed"

	turns, err = store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "q", turns[0].Text)
}

func TestStoresHonorCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, "t1")
			assert.Error(t, err)
			assert.Error(t, store.Append(ctx, "t1", types.NewUserTurn("q")))
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "t1", types.NewUserTurn("q"), types.NewModelTurn("a")))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	turns, err := reopened.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []types.Turn{types.NewUserTurn("q"), types.NewModelTurn("a")}, turns)
}
