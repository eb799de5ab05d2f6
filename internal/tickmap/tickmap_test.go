package tickmap

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubScope/internal/hubmath"
	"hubScope/internal/store"
)

func newTestMap(t *testing.T) (*Map, *store.MemoryStore, *store.Session) {
	t.Helper()
	mem := store.NewMemoryStore()
	sess := store.NewSession(mem)
	m := New(sess, "0xpool#0")
	require.NoError(t, m.Set(context.Background(), hubmath.MinTick))
	require.NoError(t, m.Set(context.Background(), hubmath.MaxTick))
	return m, mem, sess
}

func bruteNextBelowOrEqual(set map[int32]bool, x int32) int32 {
	best := hubmath.MinTick
	for tick := range set {
		if tick <= x && tick > best {
			best = tick
		}
	}
	return best
}

func TestNextBelowOrEqualSentinels(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMap(t)

	for _, x := range []int32{hubmath.MinTick, -1, 0, 1, hubmath.MaxTick - 1} {
		got, err := m.NextBelowOrEqual(ctx, x)
		require.NoError(t, err)
		assert.Equal(t, hubmath.MinTick, got, "query %d", x)
	}
	got, err := m.NextBelowOrEqual(ctx, hubmath.MaxTick)
	require.NoError(t, err)
	assert.Equal(t, hubmath.MaxTick, got)
}

func TestNextBelowOrEqualCrossesLevels(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMap(t)

	// three neighbouring words of one block, and one tick in the next block
	for _, tick := range []int32{-100, 100, 356, 70000} {
		require.NoError(t, m.Set(ctx, tick))
	}

	cases := []struct {
		query, want int32
	}{
		{100, 100},
		{99, -100},
		{355, 100},
		{356, 356},
		{69999, 356},
		{70000, 70000},
		{700000, 70000},
		{-101, hubmath.MinTick},
	}
	for _, tc := range cases {
		got, err := m.NextBelowOrEqual(ctx, tc.query)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "query %d", tc.query)
	}
}

func TestUnsetCascadesOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMap(t)

	require.NoError(t, m.Set(ctx, 0))
	require.NoError(t, m.Set(ctx, 1))
	require.NoError(t, m.Unset(ctx, 0))

	ok, err := m.IsSet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := m.NextBelowOrEqual(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got)

	require.NoError(t, m.Unset(ctx, 1))
	got, err = m.NextBelowOrEqual(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, hubmath.MinTick, got)
}

func TestEmptyMapIsCorrupt(t *testing.T) {
	sess := store.NewSession(store.NewMemoryStore())
	m := New(sess, "0xpool#1")
	_, err := m.NextBelowOrEqual(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestOutOfRange(t *testing.T) {
	m, _, _ := newTestMap(t)
	assert.ErrorIs(t, m.Set(context.Background(), hubmath.MaxTick+1), hubmath.ErrTickOutOfBounds)
}

func TestRandomOpsMatchBruteForce(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMap(t)
	rng := rand.New(rand.NewSource(42))

	set := map[int32]bool{hubmath.MinTick: true, hubmath.MaxTick: true}
	randomTick := func() int32 {
		// cluster half the ticks so words and blocks empty out and refill
		if rng.Intn(2) == 0 {
			return int32(rng.Intn(2000) - 1000)
		}
		return hubmath.MinTick + 1 + int32(rng.Intn(int(hubmath.MaxTick-hubmath.MinTick-1)))
	}

	for i := 0; i < 2000; i++ {
		tick := randomTick()
		if set[tick] && rng.Intn(3) > 0 {
			require.NoError(t, m.Unset(ctx, tick))
			delete(set, tick)
		} else {
			require.NoError(t, m.Set(ctx, tick))
			set[tick] = true
		}

		query := randomTick()
		got, err := m.NextBelowOrEqual(ctx, query)
		require.NoError(t, err)
		require.Equal(t, bruteNextBelowOrEqual(set, query), got, "step %d query %d", i, query)
	}

	ticks := make([]int32, 0, len(set))
	for tick := range set {
		ticks = append(ticks, tick)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	for _, tick := range ticks {
		got, err := m.NextBelowOrEqual(ctx, tick)
		require.NoError(t, err)
		assert.Equal(t, tick, got)
	}
}

func TestSetUnsetRoundTripPersists(t *testing.T) {
	ctx := context.Background()
	m, mem, sess := newTestMap(t)
	_, err := sess.Commit(ctx)
	require.NoError(t, err)

	before := mem.Count(store.KindTickMapWord)
	require.NoError(t, m.Set(ctx, 12345))
	require.NoError(t, m.Unset(ctx, 12345))
	_, err = sess.Commit(ctx)
	require.NoError(t, err)

	// the emptied word stays as a zero row; summaries above it are clean
	assert.Equal(t, before+1, mem.Count(store.KindTickMapWord))
	got, err := m.NextBelowOrEqual(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, hubmath.MinTick, got)
}
