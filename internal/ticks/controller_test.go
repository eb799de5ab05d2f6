package ticks

import (
	"context"
	"math/big"
	"math/rand"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/tickmap"
)

const testPool = "0xpool"

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000000")
	base  = hubmath.BaseLiquidity
)

type fixture struct {
	t      *testing.T
	mem    *store.MemoryStore
	tierID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, mem: store.NewMemoryStore(), tierID: model.TierID(testPool, 0)}

	sp, err := hubmath.TickToSqrtPriceX72(0)
	require.NoError(t, err)
	tier := &model.Tier{
		ID:                  f.tierID,
		PoolID:              testPool,
		Liquidity:           new(big.Int).Set(base),
		SqrtPrice:           sp,
		NextTickBelow:       hubmath.MinTick,
		NextTickAbove:       hubmath.MaxTick,
		FeeGrowthGlobal0X64: uint256.NewInt(11),
		FeeGrowthGlobal1X64: uint256.NewInt(22),
	}
	sess := store.NewSession(f.mem)
	store.Put(sess, store.KindTier, tier.ID, tier)
	c := NewController(sess, tier, 1, 1_700_000_000)
	require.NoError(t, c.SeedSentinels(context.Background()))
	_, err = c.Save(context.Background(), nil, 0)
	require.NoError(t, err)
	_, err = sess.Commit(context.Background())
	require.NoError(t, err)
	return f
}

// event runs fn against a fresh session, as one indexed event would, and
// commits the result.
func (f *fixture) event(fn func(ctx context.Context, c *Controller)) {
	f.t.Helper()
	ctx := context.Background()
	sess := store.NewSession(f.mem)
	tier, err := store.MustGet[model.Tier](ctx, sess, store.KindTier, f.tierID)
	require.NoError(f.t, err)
	c := NewController(sess, tier, 2, 1_700_000_100)
	fn(ctx, c)
	_, err = c.Save(ctx, nil, 0)
	require.NoError(f.t, err)
	_, err = sess.Commit(ctx)
	require.NoError(f.t, err)
}

func (f *fixture) tier() *model.Tier {
	f.t.Helper()
	sess := store.NewSession(f.mem)
	tier, err := store.MustGet[model.Tier](context.Background(), sess, store.KindTier, f.tierID)
	require.NoError(f.t, err)
	return tier
}

func (f *fixture) tick(idx int32) (*model.Tick, bool) {
	f.t.Helper()
	sess := store.NewSession(f.mem)
	tick, ok, err := store.Get[model.Tick](context.Background(), sess, store.KindTick, model.TickID(f.tierID, idx))
	require.NoError(f.t, err)
	return tick, ok
}

// list walks the tick list from MinTick, checking the back links.
func (f *fixture) list() []int32 {
	f.t.Helper()
	out := []int32{hubmath.MinTick}
	cur, ok := f.tick(hubmath.MinTick)
	require.True(f.t, ok)
	for cur.TickIdx != hubmath.MaxTick {
		next, ok := f.tick(cur.NextAbove)
		require.True(f.t, ok, "tick %d links to missing %d", cur.TickIdx, cur.NextAbove)
		require.Equal(f.t, cur.TickIdx, next.NextBelow, "back link of %d", next.TickIdx)
		require.Greater(f.t, next.TickIdx, cur.TickIdx)
		out = append(out, next.TickIdx)
		cur = next
	}
	return out
}

func mint(ctx context.Context, t *testing.T, c *Controller, lower, upper int32, amount int64) *model.HubPosition {
	t.Helper()
	pos, err := c.HandleMintOrBurn(ctx, PositionChange{
		Owner:          alice,
		PositionRefID:  big.NewInt(1),
		TickLower:      lower,
		TickUpper:      upper,
		LiquidityDelta: big.NewInt(amount),
	})
	require.NoError(t, err)
	return pos
}

func sqrtAt(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	sp, err := hubmath.TickToSqrtPriceX72(tick)
	require.NoError(t, err)
	return sp
}

func TestMintInsideRange(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		pos := mint(ctx, t, c, -100, 100, 1000)
		assert.Equal(t, big.NewInt(1000), pos.Liquidity)
	})

	tier := f.tier()
	assert.Equal(t, new(big.Int).Add(base, big.NewInt(1000)), tier.Liquidity)
	assert.Equal(t, int32(-100), tier.NextTickBelow)
	assert.Equal(t, int32(100), tier.NextTickAbove)

	lower, ok := f.tick(-100)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(1000), lower.LiquidityNet)
	assert.Equal(t, big.NewInt(1000), lower.LiquidityGross)
	assert.Equal(t, hubmath.MinTick, lower.NextBelow)
	assert.Equal(t, int32(100), lower.NextAbove)
	assert.Equal(t, uint256.NewInt(11), lower.FeeGrowthOutside0X64)

	upper, ok := f.tick(100)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(-1000), upper.LiquidityNet)
	assert.Equal(t, big.NewInt(1000), upper.LiquidityGross)
	assert.Equal(t, int32(-100), upper.NextBelow)
	assert.Equal(t, hubmath.MaxTick, upper.NextAbove)
	assert.True(t, upper.FeeGrowthOutside0X64.IsZero())

	assert.Equal(t, []int32{hubmath.MinTick, -100, 100, hubmath.MaxTick}, f.list())
	assert.Equal(t, 1, f.mem.Count(store.KindHubPosition))
}

func TestMintOutsideRangeKeepsTierLiquidity(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, 200, 400, 700)
	})
	tier := f.tier()
	assert.Equal(t, base, tier.Liquidity)
	assert.Equal(t, hubmath.MinTick, tier.NextTickBelow)
	assert.Equal(t, int32(200), tier.NextTickAbove)
}

func TestMintThenBurnRestoresState(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
	})
	f.event(func(ctx context.Context, c *Controller) {
		pos := mint(ctx, t, c, -100, 100, -1000)
		assert.Zero(t, pos.Liquidity.Sign())
	})

	tier := f.tier()
	assert.Equal(t, base, tier.Liquidity)
	assert.Equal(t, hubmath.MinTick, tier.NextTickBelow)
	assert.Equal(t, hubmath.MaxTick, tier.NextTickAbove)
	assert.Equal(t, []int32{hubmath.MinTick, hubmath.MaxTick}, f.list())

	_, ok := f.tick(-100)
	assert.False(t, ok)
	_, ok = f.tick(100)
	assert.False(t, ok)

	sess := store.NewSession(f.mem)
	c := NewController(sess, f.tier(), 3, 0)
	set, err := c.Bitmap().IsSet(context.Background(), -100)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestBurnKeepsSharedTick(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
		mint(ctx, t, c, 100, 300, 400)
	})
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, -1000)
	})

	assert.Equal(t, []int32{hubmath.MinTick, 100, 300, hubmath.MaxTick}, f.list())
	shared, ok := f.tick(100)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(400), shared.LiquidityGross)
	assert.Equal(t, big.NewInt(400), shared.LiquidityNet)

	tier := f.tier()
	assert.Equal(t, hubmath.MinTick, tier.NextTickBelow)
	assert.Equal(t, int32(100), tier.NextTickAbove)
}

func TestInvalidRange(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		_, err := c.HandleMintOrBurn(ctx, PositionChange{
			Owner: alice, TickLower: 10, TickUpper: 10, LiquidityDelta: big.NewInt(1),
		})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestCrossUpwardOverOneTick(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
	})
	before := f.tier().Liquidity

	f.event(func(ctx context.Context, c *Controller) {
		res, err := c.Cross(ctx, new(big.Int).Sub(before, big.NewInt(1000)), sqrtAt(t, 150))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Crossed)
		assert.Equal(t, 0, res.Settled)
	})

	tier := f.tier()
	assert.Equal(t, new(big.Int).Sub(before, big.NewInt(1000)), tier.Liquidity)
	assert.Equal(t, int32(100), tier.NextTickBelow)
	assert.Equal(t, hubmath.MaxTick, tier.NextTickAbove)
	assert.Equal(t, int32(150), tier.Tick)
}

func TestCrossDownOntoInitializedTick(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
	})

	f.event(func(ctx context.Context, c *Controller) {
		res, err := c.Cross(ctx, base, sqrtAt(t, -100))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Crossed)
	})

	tier := f.tier()
	assert.Equal(t, int32(-101), tier.Tick)
	assert.Equal(t, hubmath.MinTick, tier.NextTickBelow)
	assert.Equal(t, int32(-100), tier.NextTickAbove)
}

func TestCrossWithinBracketCrossesNothing(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
	})
	f.event(func(ctx context.Context, c *Controller) {
		res, err := c.Cross(ctx, f.tier().Liquidity, sqrtAt(t, 50))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Crossed)
	})
	tier := f.tier()
	assert.Equal(t, int32(-100), tier.NextTickBelow)
	assert.Equal(t, int32(100), tier.NextTickAbove)
}

func TestCrossToMaxTickStopsBelowSentinel(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		_, err := c.Cross(ctx, base, hubmath.MaxSqrtPrice)
		require.NoError(t, err)
	})
	tier := f.tier()
	assert.Equal(t, hubmath.MaxTick-1, tier.Tick)
	assert.Equal(t, hubmath.MaxTick, tier.NextTickAbove)
}

func TestLimitOrderSettlesWhenCrossedUpward(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		pos := mint(ctx, t, c, 200, 400, 500)
		pos.LimitOrderType = model.LimitOrderZeroForOne
		require.NoError(t, c.UpdateLimitOrderData(ctx, 200, 400, model.LimitOrderZeroForOne, pos.Liquidity))
	})

	end, ok := f.tick(400)
	require.True(t, ok)
	assert.Equal(t, int32(200), end.LimitOrderTickSpacing0For1)
	assert.Equal(t, big.NewInt(500), end.LimitOrderLiquidity0For1)

	f.event(func(ctx context.Context, c *Controller) {
		start, err := c.Get(ctx, 200)
		require.NoError(t, err)
		end, err := c.Get(ctx, 400)
		require.NoError(t, err)

		res, err := c.Cross(ctx, base, sqrtAt(t, 500))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Crossed)
		assert.Equal(t, 1, res.Settled)

		assert.Zero(t, start.LiquidityGross.Sign())
		assert.Zero(t, start.LiquidityNet.Sign())
		assert.Zero(t, end.LimitOrderTickSpacing0For1)
		assert.Zero(t, end.LimitOrderLiquidity0For1.Sign())
	})

	_, ok = f.tick(200)
	assert.False(t, ok)
	_, ok = f.tick(400)
	assert.False(t, ok)
	assert.Equal(t, []int32{hubmath.MinTick, hubmath.MaxTick}, f.list())

	tier := f.tier()
	assert.Equal(t, hubmath.MinTick, tier.NextTickBelow)
	assert.Equal(t, hubmath.MaxTick, tier.NextTickAbove)
}

func TestLimitOrderSettleKeepsSharedStartTick(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -300, -100, 900)
		pos := mint(ctx, t, c, -200, -100, 300)
		pos.LimitOrderType = model.LimitOrderOneForZero
		require.NoError(t, c.UpdateLimitOrderData(ctx, -200, -100, model.LimitOrderOneForZero, pos.Liquidity))
	})

	f.event(func(ctx context.Context, c *Controller) {
		res, err := c.Cross(ctx, base, sqrtAt(t, -250))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Settled)
	})

	// -100 keeps the two-sided position; -200 was only the order's end
	shared, ok := f.tick(-100)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(900), shared.LiquidityGross)
	assert.Equal(t, big.NewInt(-900), shared.LiquidityNet)
	_, ok = f.tick(-200)
	assert.False(t, ok)
	assert.Equal(t, []int32{hubmath.MinTick, -300, -100, hubmath.MaxTick}, f.list())

	tier := f.tier()
	assert.Equal(t, int32(-300), tier.NextTickBelow)
	assert.Equal(t, int32(-100), tier.NextTickAbove)
}

func TestBurnClearsLimitOrder(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		pos := mint(ctx, t, c, 200, 400, 500)
		pos.LimitOrderType = model.LimitOrderZeroForOne
		require.NoError(t, c.UpdateLimitOrderData(ctx, 200, 400, model.LimitOrderZeroForOne, pos.Liquidity))
	})
	f.event(func(ctx context.Context, c *Controller) {
		pos := mint(ctx, t, c, 200, 400, -500)
		assert.Equal(t, model.LimitOrderNone, pos.LimitOrderType)
	})
	_, ok := f.tick(400)
	assert.False(t, ok)
	assert.Equal(t, []int32{hubmath.MinTick, hubmath.MaxTick}, f.list())
}

type countingSource struct {
	calls int
}

func (s *countingSource) GetTick(_ context.Context, _ string, _ uint8, _ int32) (*model.ChainTick, error) {
	s.calls++
	return &model.ChainTick{
		FeeGrowthOutside0: uint256.NewInt(7),
		FeeGrowthOutside1: uint256.NewInt(8),
	}, nil
}

func TestSaveRespectsRefreshBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := store.NewSession(f.mem)
	tier, err := store.MustGet[model.Tier](ctx, sess, store.KindTier, f.tierID)
	require.NoError(t, err)
	c := NewController(sess, tier, 2, 1_700_000_100)
	mint(ctx, t, c, -100, 100, 1000)

	src := &countingSource{}
	res, err := c.Save(ctx, src, 2)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Saved: 4, Refreshed: 2, Skipped: 2}, res)
	assert.Equal(t, 2, src.calls)
	_, err = sess.Commit(ctx)
	require.NoError(t, err)

	// refreshed in ascending order: MinTick then -100
	lower, _ := f.tick(-100)
	assert.Equal(t, uint256.NewInt(7), lower.FeeGrowthOutside0X64)
	upper, _ := f.tick(100)
	assert.True(t, upper.FeeGrowthOutside0X64.IsZero())
	assert.Equal(t, 4, f.mem.Count(store.KindTickDayData))
}

func TestRandomMintBurnKeepsListAndLiquidityConsistent(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))

	type rangeKey struct{ lower, upper int32 }
	open := map[rangeKey]int64{}

	for step := 0; step < 150; step++ {
		var key rangeKey
		var delta int64
		if len(open) > 0 && rng.Intn(3) == 0 {
			keys := make([]rangeKey, 0, len(open))
			for k := range open {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if keys[i].lower != keys[j].lower {
					return keys[i].lower < keys[j].lower
				}
				return keys[i].upper < keys[j].upper
			})
			key = keys[rng.Intn(len(keys))]
			delta = -open[key]
			delete(open, key)
		} else {
			lower := int32(rng.Intn(40)-20) * 50
			upper := lower + int32(rng.Intn(10)+1)*50
			key = rangeKey{lower, upper}
			delta = int64(rng.Intn(1000) + 1)
			open[key] += delta
		}

		f.event(func(ctx context.Context, c *Controller) {
			mint(ctx, t, c, key.lower, key.upper, delta)
		})

		// every live boundary is in the list, nothing else is
		want := map[int32]bool{hubmath.MinTick: true, hubmath.MaxTick: true}
		active := new(big.Int).Set(base)
		for k, l := range open {
			want[k.lower], want[k.upper] = true, true
			if k.lower <= 0 && 0 < k.upper {
				active.Add(active, big.NewInt(l))
			}
		}
		got := f.list()
		require.Len(t, got, len(want), "step %d", step)
		for _, idx := range got {
			require.True(t, want[idx], "step %d: unexpected tick %d", step, idx)
		}

		tier := f.tier()
		require.Equal(t, active, tier.Liquidity, "step %d", step)

		sum := new(big.Int)
		for _, idx := range got {
			if idx > 0 {
				break
			}
			tick, _ := f.tick(idx)
			sum.Add(sum, tick.LiquidityNet)
		}
		require.Equal(t, tier.Liquidity, sum, "step %d", step)
		require.LessOrEqual(t, tier.NextTickBelow, int32(0))
		require.Greater(t, tier.NextTickAbove, int32(0))
	}
}

func TestReferenceTickOnBoundaries(t *testing.T) {
	f := newFixture(t)
	f.event(func(ctx context.Context, c *Controller) {
		mint(ctx, t, c, -100, 100, 1000)
	})

	f.event(func(ctx context.Context, c *Controller) {
		tier := c.Tier()
		require.Equal(t, int32(-100), tier.NextTickBelow)
		require.Equal(t, int32(100), tier.NextTickAbove)

		cases := []struct {
			price int32
			want  int32
		}{
			{price: 100, want: 99},
			{price: 99, want: 99},
			{price: -100, want: -100},
			{price: 0, want: 0},
		}
		for _, tc := range cases {
			tier.SqrtPrice = sqrtAt(t, tc.price)
			ref, err := c.ReferenceTick()
			require.NoError(t, err)
			assert.Equal(t, tc.want, ref, "price at tick %d", tc.price)
		}
		tier.SqrtPrice = sqrtAt(t, 0)
	})
}

func TestMintOnDanglingLinkReportsCorruptIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.Apply(ctx, []store.Op{
		{Kind: store.KindTick, ID: model.TickID(f.tierID, hubmath.MaxTick), Delete: true},
	}))

	sess := store.NewSession(f.mem)
	c := NewController(sess, f.tier(), 2, 1_700_000_100)
	_, err := c.HandleMintOrBurn(ctx, PositionChange{
		Owner:          alice,
		PositionRefID:  big.NewInt(1),
		TickLower:      -100,
		TickUpper:      100,
		LiquidityDelta: big.NewInt(1000),
	})
	require.ErrorIs(t, err, tickmap.ErrIndexCorrupt)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}
