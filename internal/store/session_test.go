package store

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type failingStore struct {
	*MemoryStore
}

func (f *failingStore) Apply(context.Context, []Op) error {
	return errors.New("disk full")
}

func TestSessionGetPutCommit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	sess := NewSession(mem)

	_, ok, err := Get[widget](ctx, sess, KindToken, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	Put(sess, KindToken, "a", &widget{Name: "a", Count: 1})
	w, ok, err := Get[widget](ctx, sess, KindToken, "a")
	require.NoError(t, err)
	require.True(t, ok)
	w.Count = 2

	again, _, err := Get[widget](ctx, sess, KindToken, "a")
	require.NoError(t, err)
	assert.Same(t, w, again)

	n, err := sess.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, mem.Count(KindToken))

	fresh := NewSession(mem)
	loaded, err := MustGet[widget](ctx, fresh, KindToken, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count)
}

func TestSessionDelete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	sess := NewSession(mem)

	Put(sess, KindTick, "t", &widget{Name: "t"})
	_, err := sess.Commit(ctx)
	require.NoError(t, err)

	_, ok, err := Get[widget](ctx, sess, KindTick, "t")
	require.NoError(t, err)
	require.True(t, ok)
	sess.Delete(KindTick, "t")

	_, ok, err = Get[widget](ctx, sess, KindTick, "t")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sess.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Count(KindTick))
}

func TestMustGetMissing(t *testing.T) {
	sess := NewSession(NewMemoryStore())
	_, err := MustGet[widget](context.Background(), sess, KindPool, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "pool nope")
}

func TestCommitIncludesExtraOps(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	sess := NewSession(mem)

	n, err := sess.Commit(ctx, Op{Kind: KindCursor, ID: "index", Data: []byte(`{"block":7}`)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, ok, err := mem.Load(ctx, KindCursor, "index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"block":7}`, string(data))
}

func TestCommitFailureKeepsStoreUntouched(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{MemoryStore: NewMemoryStore()}
	sess := NewSession(fs)

	Put(sess, KindPool, "p", &widget{Name: "p"})
	_, err := sess.Commit(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, fs.Count(KindPool))
}

func TestDiscardDropsStagedWrites(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	sess := NewSession(mem)

	Put(sess, KindPool, "p", &widget{Name: "p"})
	assert.Equal(t, 1, sess.Pending())
	sess.Discard()
	assert.Equal(t, 0, sess.Pending())

	_, err := sess.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Count(KindPool))
}

func TestDumpRestore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Apply(ctx, []Op{
		{Kind: KindPool, ID: "b", Data: []byte(`{"name":"b"}`)},
		{Kind: KindPool, ID: "a", Data: []byte(`{"name":"a"}`)},
		{Kind: KindTick, ID: "x", Data: []byte(`{"name":"x"}`)},
	}))

	var buf bytes.Buffer
	require.NoError(t, mem.Dump(&buf))
	assert.Equal(t,
		`{"kind":"pool","id":"a","data":{"name":"a"}}`+"\n"+
			`{"kind":"pool","id":"b","data":{"name":"b"}}`+"\n"+
			`{"kind":"tick","id":"x","data":{"name":"x"}}`+"\n",
		buf.String())

	restored := NewMemoryStore()
	require.NoError(t, restored.Restore(&buf))
	assert.Equal(t, []string{"a", "b"}, restored.IDs(KindPool))
	assert.Equal(t, 1, restored.Count(KindTick))
}
