package aggregate

import (
	"context"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"hubScope/internal/model"
	"hubScope/internal/store"
)

const (
	daySeconds  = 86400
	hourSeconds = 3600
)

// Intervals maintains the day and hour buckets touched by one event.
type Intervals struct {
	sess      *store.Session
	timestamp uint64
}

func NewIntervals(sess *store.Session, timestamp uint64) *Intervals {
	return &Intervals{sess: sess, timestamp: timestamp}
}

func (iv *Intervals) day() int64  { return model.DayIndex(iv.timestamp) }
func (iv *Intervals) hour() int64 { return model.HourIndex(iv.timestamp) }

// Hub updates the hub's day bucket. Hub day buckets are keyed by day index.
func (iv *Intervals) Hub(ctx context.Context, hub *model.Hub) (*model.HubDayData, error) {
	day := iv.day()
	id := strconv.FormatInt(day, 10)
	data, ok, err := store.Get[model.HubDayData](ctx, iv.sess, store.KindHubDayData, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		data = &model.HubDayData{ID: id, Date: day * daySeconds}
	}
	data.TVLUSD = hub.TotalValueLockedUSD
	data.TxCount = hub.TxCount
	store.Put(iv.sess, store.KindHubDayData, id, data)
	return data, nil
}

// Pool updates the pool's day and hour buckets.
func (iv *Intervals) Pool(ctx context.Context, pool *model.Pool) (day, hour *model.PoolIntervalData, err error) {
	day, err = iv.pool(ctx, store.KindPoolDayData, pool, iv.day(), daySeconds)
	if err != nil {
		return nil, nil, err
	}
	hour, err = iv.pool(ctx, store.KindPoolHourData, pool, iv.hour(), hourSeconds)
	if err != nil {
		return nil, nil, err
	}
	return day, hour, nil
}

func (iv *Intervals) pool(ctx context.Context, kind store.Kind, pool *model.Pool, index, width int64) (*model.PoolIntervalData, error) {
	id := model.IntervalID(pool.ID, index)
	data, ok, err := store.Get[model.PoolIntervalData](ctx, iv.sess, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		data = &model.PoolIntervalData{ID: id, PeriodStart: index * width, PoolID: pool.ID}
	}
	data.Liquidity = new(big.Int).Set(bigOrZero(pool.Liquidity))
	data.TVLUSD = pool.TotalValueLockedUSD
	data.TxCount++
	store.Put(iv.sess, kind, id, data)
	return data, nil
}

// Tier updates the tier's day and hour buckets, tracking token0Price as
// open/high/low/close.
func (iv *Intervals) Tier(ctx context.Context, tier *model.Tier) (day, hour *model.TierIntervalData, err error) {
	day, err = iv.tier(ctx, store.KindTierDayData, tier, iv.day(), daySeconds)
	if err != nil {
		return nil, nil, err
	}
	hour, err = iv.tier(ctx, store.KindTierHourData, tier, iv.hour(), hourSeconds)
	if err != nil {
		return nil, nil, err
	}
	return day, hour, nil
}

func (iv *Intervals) tier(ctx context.Context, kind store.Kind, tier *model.Tier, index, width int64) (*model.TierIntervalData, error) {
	id := model.IntervalID(tier.ID, index)
	data, ok, err := store.Get[model.TierIntervalData](ctx, iv.sess, kind, id)
	if err != nil {
		return nil, err
	}
	price := tier.Token0Price
	if !ok {
		data = &model.TierIntervalData{
			ID:          id,
			PeriodStart: index * width,
			PoolID:      tier.PoolID,
			TierID:      tier.ID,
			Open:        price,
			High:        price,
			Low:         price,
		}
	}
	if price.GreaterThan(data.High) {
		data.High = price
	}
	if price.LessThan(data.Low) {
		data.Low = price
	}
	data.Close = price
	data.Liquidity = new(big.Int).Set(bigOrZero(tier.Liquidity))
	data.SqrtPrice = cloneU256(tier.SqrtPrice)
	data.Tick = tier.Tick
	data.FeeGrowthGlobal0X64 = cloneU256(tier.FeeGrowthGlobal0X64)
	data.FeeGrowthGlobal1X64 = cloneU256(tier.FeeGrowthGlobal1X64)
	data.Token0Price = tier.Token0Price
	data.Token1Price = tier.Token1Price
	data.TVLUSD = tier.TotalValueLockedUSD
	data.TxCount++
	store.Put(iv.sess, kind, id, data)
	return data, nil
}

// Token updates the token's day and hour buckets, tracking its USD price as
// open/high/low/close.
func (iv *Intervals) Token(ctx context.Context, token *model.Token, ethPriceUSD decimal.Decimal) (day, hour *model.TokenIntervalData, err error) {
	day, err = iv.token(ctx, store.KindTokenDayData, token, ethPriceUSD, iv.day(), daySeconds)
	if err != nil {
		return nil, nil, err
	}
	hour, err = iv.token(ctx, store.KindTokenHourData, token, ethPriceUSD, iv.hour(), hourSeconds)
	if err != nil {
		return nil, nil, err
	}
	return day, hour, nil
}

func (iv *Intervals) token(ctx context.Context, kind store.Kind, token *model.Token, ethPriceUSD decimal.Decimal, index, width int64) (*model.TokenIntervalData, error) {
	id := model.IntervalID(token.ID, index)
	data, ok, err := store.Get[model.TokenIntervalData](ctx, iv.sess, kind, id)
	if err != nil {
		return nil, err
	}
	price := token.DerivedETH.Mul(ethPriceUSD)
	if !ok {
		data = &model.TokenIntervalData{
			ID:          id,
			PeriodStart: index * width,
			TokenID:     token.ID,
			Open:        price,
			High:        price,
			Low:         price,
		}
	}
	if price.GreaterThan(data.High) {
		data.High = price
	}
	if price.LessThan(data.Low) {
		data.Low = price
	}
	data.Close = price
	data.PriceUSD = price
	data.AmountLocked = token.AmountLocked
	data.TotalValueLockedUSD = token.TotalValueLockedUSD
	store.Put(iv.sess, kind, id, data)
	return data, nil
}

// Touch updates every bucket an event on one tier of a pool reaches.
func (iv *Intervals) Touch(ctx context.Context, hub *model.Hub, pool *model.Pool, tier *model.Tier, token0, token1 *model.Token, ethPriceUSD decimal.Decimal) error {
	if _, err := iv.Hub(ctx, hub); err != nil {
		return err
	}
	if _, _, err := iv.Pool(ctx, pool); err != nil {
		return err
	}
	if _, _, err := iv.Tier(ctx, tier); err != nil {
		return err
	}
	if _, _, err := iv.Token(ctx, token0, ethPriceUSD); err != nil {
		return err
	}
	_, _, err := iv.Token(ctx, token1, ethPriceUSD)
	return err
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
