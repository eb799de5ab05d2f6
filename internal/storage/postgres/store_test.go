package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"hubScope/internal/store"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("hubscope"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.EnsureSchema(ctx))
	require.NoError(t, st.EnsureSchema(ctx), "schema creation is idempotent")
	return st
}

func TestStoreApplyAndLoad(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Apply(ctx, []store.Op{
		{Kind: store.KindPool, ID: "0xpool", Data: []byte(`{"txCount":1}`)},
		{Kind: store.KindTick, ID: "0xpool#0#-200", Data: []byte(`{"tick":-200}`)},
	}))

	data, ok, err := st.Load(ctx, store.KindPool, "0xpool")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"txCount":1}`, string(data))

	require.NoError(t, st.Apply(ctx, []store.Op{
		{Kind: store.KindPool, ID: "0xpool", Data: []byte(`{"txCount":2}`)},
		{Kind: store.KindTick, ID: "0xpool#0#-200", Delete: true},
	}))

	data, ok, err = st.Load(ctx, store.KindPool, "0xpool")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"txCount":2}`, string(data))

	_, ok, err = st.Load(ctx, store.KindTick, "0xpool#0#-200")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreApplyIsAtomic(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	err := st.Apply(ctx, []store.Op{
		{Kind: store.KindToken, ID: "0xa", Data: []byte(`{"symbol":"A"}`)},
		{Kind: store.KindToken, ID: "0xb", Data: []byte(`not json`)},
	})
	require.Error(t, err)

	n, err := st.Count(ctx, store.KindToken)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStoreBacksSession(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	type cursor struct {
		Block uint64 `json:"block"`
	}
	sess := store.NewSession(st)
	store.Put(sess, store.KindCursor, "index", &cursor{Block: 42})
	_, err := sess.Commit(ctx)
	require.NoError(t, err)

	got, err := store.MustGet[cursor](ctx, store.NewSession(st), store.KindCursor, "index")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Block)
}
