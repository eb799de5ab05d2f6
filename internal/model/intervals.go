package model

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// HubDayData aggregates protocol activity over one UTC day.
type HubDayData struct {
	ID                 string          `json:"id"`
	Date               int64           `json:"date"`
	VolumeETH          decimal.Decimal `json:"volume_eth"`
	VolumeUSD          decimal.Decimal `json:"volume_usd"`
	VolumeUSDUntracked decimal.Decimal `json:"volume_usd_untracked"`
	FeesUSD            decimal.Decimal `json:"fees_usd"`
	TVLUSD             decimal.Decimal `json:"tvl_usd"`
	TxCount            int64           `json:"tx_count"`
}

// PoolIntervalData is a day or hour bucket of a pool.
type PoolIntervalData struct {
	ID           string          `json:"id"`
	PeriodStart  int64           `json:"period_start"`
	PoolID       string          `json:"pool_id"`
	Liquidity    *big.Int        `json:"liquidity"`
	TVLUSD       decimal.Decimal `json:"tvl_usd"`
	VolumeToken0 decimal.Decimal `json:"volume_token0"`
	VolumeToken1 decimal.Decimal `json:"volume_token1"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	FeesUSD      decimal.Decimal `json:"fees_usd"`
	TxCount      int64           `json:"tx_count"`
}

// TierIntervalData is a day or hour bucket of a tier. Open/High/Low/Close
// track token0Price.
type TierIntervalData struct {
	ID                  string          `json:"id"`
	PeriodStart         int64           `json:"period_start"`
	PoolID              string          `json:"pool_id"`
	TierID              string          `json:"tier_id"`
	Liquidity           *big.Int        `json:"liquidity"`
	SqrtPrice           *uint256.Int    `json:"sqrt_price"`
	Tick                int32           `json:"tick"`
	FeeGrowthGlobal0X64 *uint256.Int    `json:"fee_growth_global0_x64"`
	FeeGrowthGlobal1X64 *uint256.Int    `json:"fee_growth_global1_x64"`
	Token0Price         decimal.Decimal `json:"token0_price"`
	Token1Price         decimal.Decimal `json:"token1_price"`
	TVLUSD              decimal.Decimal `json:"tvl_usd"`
	VolumeToken0        decimal.Decimal `json:"volume_token0"`
	VolumeToken1        decimal.Decimal `json:"volume_token1"`
	VolumeUSD           decimal.Decimal `json:"volume_usd"`
	FeesUSD             decimal.Decimal `json:"fees_usd"`
	TxCount             int64           `json:"tx_count"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
}

// TokenIntervalData is a day or hour bucket of a token. Open/High/Low/Close
// track the USD price.
type TokenIntervalData struct {
	ID                  string          `json:"id"`
	PeriodStart         int64           `json:"period_start"`
	TokenID             string          `json:"token_id"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD             decimal.Decimal `json:"fees_usd"`
	AmountLocked        decimal.Decimal `json:"amount_locked"`
	TotalValueLockedUSD decimal.Decimal `json:"total_value_locked_usd"`
	PriceUSD            decimal.Decimal `json:"price_usd"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
}

// TickDayData is a daily snapshot of a tick.
type TickDayData struct {
	ID                   string       `json:"id"`
	Date                 int64        `json:"date"`
	PoolID               string       `json:"pool_id"`
	TierID               string       `json:"tier_id"`
	TickID               string       `json:"tick_id"`
	LiquidityGross       *big.Int     `json:"liquidity_gross"`
	LiquidityNet         *big.Int     `json:"liquidity_net"`
	FeeGrowthOutside0X64 *uint256.Int `json:"fee_growth_outside0_x64"`
	FeeGrowthOutside1X64 *uint256.Int `json:"fee_growth_outside1_x64"`
}
