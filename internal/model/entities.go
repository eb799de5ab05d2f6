package model

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Hub holds protocol-wide aggregates.
type Hub struct {
	ID                           string          `json:"id"`
	PoolCount                    int64           `json:"pool_count"`
	TxCount                      int64           `json:"tx_count"`
	TotalVolumeETH               decimal.Decimal `json:"total_volume_eth"`
	TotalVolumeUSD               decimal.Decimal `json:"total_volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	TotalFeesETH                 decimal.Decimal `json:"total_fees_eth"`
	TotalFeesUSD                 decimal.Decimal `json:"total_fees_usd"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedETHUntracked decimal.Decimal `json:"total_value_locked_eth_untracked"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	DefaultTickSpacing           uint8           `json:"default_tick_spacing"`
	DefaultProtocolFee           uint8           `json:"default_protocol_fee"`
}

// Bundle carries the reference ETH price.
type Bundle struct {
	ID          string          `json:"id"`
	EthPriceUSD decimal.Decimal `json:"eth_price_usd"`
}

// BundleID is the id of the only Bundle.
const BundleID = "1"

// Token is an ERC20 seen in at least one pool.
type Token struct {
	ID                           string          `json:"id"`
	Symbol                       string          `json:"symbol"`
	Name                         string          `json:"name"`
	Decimals                     uint8           `json:"decimals"`
	DerivedETH                   decimal.Decimal `json:"derived_eth"`
	Volume                       decimal.Decimal `json:"volume"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	AmountLocked                 decimal.Decimal `json:"amount_locked"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	TxCount                      int64           `json:"tx_count"`
	PoolCount                    int64           `json:"pool_count"`
	WhitelistPools               []string        `json:"whitelist_pools"`
}

// Pool is a token pair with up to six tiers.
type Pool struct {
	ID                           string          `json:"id"`
	Token0                       string          `json:"token0"`
	Token1                       string          `json:"token1"`
	CreatedAtTimestamp           uint64          `json:"created_at_timestamp"`
	CreatedAtBlockNumber         uint64          `json:"created_at_block_number"`
	TickSpacing                  uint8           `json:"tick_spacing"`
	ProtocolFee                  uint8           `json:"protocol_fee"`
	Liquidity                    *big.Int        `json:"liquidity"`
	Amount0                      decimal.Decimal `json:"amount0"`
	Amount1                      decimal.Decimal `json:"amount1"`
	TotalValueLockedETH          decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD          decimal.Decimal `json:"total_value_locked_usd"`
	TotalValueLockedUSDUntracked decimal.Decimal `json:"total_value_locked_usd_untracked"`
	VolumeToken0                 decimal.Decimal `json:"volume_token0"`
	VolumeToken1                 decimal.Decimal `json:"volume_token1"`
	VolumeUSD                    decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD           decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                      decimal.Decimal `json:"fees_usd"`
	CollectedFeesToken0          decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1          decimal.Decimal `json:"collected_fees_token1"`
	CollectedFeesUSD             decimal.Decimal `json:"collected_fees_usd"`
	TxCount                      int64           `json:"tx_count"`
	TierIDs                      []string        `json:"tier_ids"`
}

// Tier is one fee tier of a pool, with its own tick index.
type Tier struct {
	ID                              string          `json:"id"`
	PoolID                          string          `json:"pool_id"`
	TierIdx                         uint8           `json:"tier_idx"`
	Token0                          string          `json:"token0"`
	Token1                          string          `json:"token1"`
	CreatedAtTimestamp              uint64          `json:"created_at_timestamp"`
	CreatedAtBlockNumber            uint64          `json:"created_at_block_number"`
	SqrtGamma                       uint32          `json:"sqrt_gamma"`
	FeeTier                         uint32          `json:"fee_tier"`
	LimitOrderTickSpacingMultiplier uint8           `json:"limit_order_tick_spacing_multiplier"`
	Liquidity                       *big.Int        `json:"liquidity"`
	SqrtPrice                       *uint256.Int    `json:"sqrt_price"`
	Tick                            int32           `json:"tick"`
	NextTickBelow                   int32           `json:"next_tick_below"`
	NextTickAbove                   int32           `json:"next_tick_above"`
	FeeGrowthGlobal0X64             *uint256.Int    `json:"fee_growth_global0_x64"`
	FeeGrowthGlobal1X64             *uint256.Int    `json:"fee_growth_global1_x64"`
	Token0Price                     decimal.Decimal `json:"token0_price"`
	Token1Price                     decimal.Decimal `json:"token1_price"`
	Amount0                         decimal.Decimal `json:"amount0"`
	Amount1                         decimal.Decimal `json:"amount1"`
	TotalValueLockedETH             decimal.Decimal `json:"total_value_locked_eth"`
	TotalValueLockedUSD             decimal.Decimal `json:"total_value_locked_usd"`
	VolumeToken0                    decimal.Decimal `json:"volume_token0"`
	VolumeToken1                    decimal.Decimal `json:"volume_token1"`
	VolumeUSD                       decimal.Decimal `json:"volume_usd"`
	UntrackedVolumeUSD              decimal.Decimal `json:"untracked_volume_usd"`
	FeesUSD                         decimal.Decimal `json:"fees_usd"`
	CollectedFeesToken0             decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1             decimal.Decimal `json:"collected_fees_token1"`
	CollectedFeesUSD                decimal.Decimal `json:"collected_fees_usd"`
	TxCount                         int64           `json:"tx_count"`
}

// Tick is an initialized boundary in a tier. NextBelow and NextAbove thread
// every initialized tick of the tier into an ascending list.
type Tick struct {
	ID                         string          `json:"id"`
	PoolID                     string          `json:"pool_id"`
	TierID                     string          `json:"tier_id"`
	TierIdx                    uint8           `json:"tier_idx"`
	TickIdx                    int32           `json:"tick_idx"`
	CreatedAtTimestamp         uint64          `json:"created_at_timestamp"`
	CreatedAtBlockNumber       uint64          `json:"created_at_block_number"`
	LiquidityGross             *big.Int        `json:"liquidity_gross"`
	LiquidityNet               *big.Int        `json:"liquidity_net"`
	Price0                     decimal.Decimal `json:"price0"`
	Price1                     decimal.Decimal `json:"price1"`
	FeeGrowthOutside0X64       *uint256.Int    `json:"fee_growth_outside0_x64"`
	FeeGrowthOutside1X64       *uint256.Int    `json:"fee_growth_outside1_x64"`
	NextBelow                  int32           `json:"next_below"`
	NextAbove                  int32           `json:"next_above"`
	LimitOrderTickSpacing0For1 int32           `json:"limit_order_tick_spacing0_for1"`
	LimitOrderTickSpacing1For0 int32           `json:"limit_order_tick_spacing1_for0"`
	LimitOrderLiquidity0For1   *big.Int        `json:"limit_order_liquidity0_for1"`
	LimitOrderLiquidity1For0   *big.Int        `json:"limit_order_liquidity1_for0"`
}

// TickMapNode is one 256-bit node of a tier's tick bitmap: a word, a block,
// or the block map.
type TickMapNode struct {
	ID     string       `json:"id"`
	TierID string       `json:"tier_id"`
	Index  int32        `json:"index"`
	Data   *uint256.Int `json:"data"`
}

// Limit order directions.
const (
	LimitOrderNone       uint8 = 0
	LimitOrderZeroForOne uint8 = 1
	LimitOrderOneForZero uint8 = 2
)

// HubPosition is a liquidity position as recorded by the hub.
type HubPosition struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	PositionRefID  *big.Int `json:"position_ref_id"`
	PoolID         string   `json:"pool_id"`
	TierID         string   `json:"tier_id"`
	TierIdx        uint8    `json:"tier_idx"`
	TickLower      int32    `json:"tick_lower"`
	TickUpper      int32    `json:"tick_upper"`
	Token0         string   `json:"token0"`
	Token1         string   `json:"token1"`
	Liquidity      *big.Int `json:"liquidity"`
	LimitOrderType uint8    `json:"limit_order_type"`
}

// Position is a position NFT issued by the manager contract.
type Position struct {
	ID                      string          `json:"id"`
	TokenID                 *big.Int        `json:"token_id"`
	Owner                   string          `json:"owner"`
	PoolID                  string          `json:"pool_id"`
	TierID                  string          `json:"tier_id"`
	Token0                  string          `json:"token0"`
	Token1                  string          `json:"token1"`
	TickLower               string          `json:"tick_lower"`
	TickUpper               string          `json:"tick_upper"`
	Liquidity               *big.Int        `json:"liquidity"`
	LimitOrderType          uint8           `json:"limit_order_type"`
	SettlementSnapshotID    *big.Int        `json:"settlement_snapshot_id"`
	DepositedToken0         decimal.Decimal `json:"deposited_token0"`
	DepositedToken1         decimal.Decimal `json:"deposited_token1"`
	WithdrawnToken0         decimal.Decimal `json:"withdrawn_token0"`
	WithdrawnToken1         decimal.Decimal `json:"withdrawn_token1"`
	CollectedToken0         decimal.Decimal `json:"collected_token0"`
	CollectedToken1         decimal.Decimal `json:"collected_token1"`
	CollectedFeesToken0     decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1     decimal.Decimal `json:"collected_fees_token1"`
	AmountDepositedUSD      decimal.Decimal `json:"amount_deposited_usd"`
	AmountWithdrawnUSD      decimal.Decimal `json:"amount_withdrawn_usd"`
	AmountCollectedUSD      decimal.Decimal `json:"amount_collected_usd"`
	FeeGrowthInside0LastX64 *uint256.Int    `json:"fee_growth_inside0_last_x64"`
	FeeGrowthInside1LastX64 *uint256.Int    `json:"fee_growth_inside1_last_x64"`
	TransactionID           string          `json:"transaction_id"`
}

// PositionSnapshot freezes a Position at a block.
type PositionSnapshot struct {
	ID                      string          `json:"id"`
	PositionID              string          `json:"position_id"`
	TokenID                 *big.Int        `json:"token_id"`
	Owner                   string          `json:"owner"`
	PoolID                  string          `json:"pool_id"`
	TierID                  string          `json:"tier_id"`
	BlockNumber             uint64          `json:"block_number"`
	Timestamp               uint64          `json:"timestamp"`
	Liquidity               *big.Int        `json:"liquidity"`
	LimitOrderType          uint8           `json:"limit_order_type"`
	SettlementSnapshotID    *big.Int        `json:"settlement_snapshot_id"`
	DepositedToken0         decimal.Decimal `json:"deposited_token0"`
	DepositedToken1         decimal.Decimal `json:"deposited_token1"`
	WithdrawnToken0         decimal.Decimal `json:"withdrawn_token0"`
	WithdrawnToken1         decimal.Decimal `json:"withdrawn_token1"`
	CollectedFeesToken0     decimal.Decimal `json:"collected_fees_token0"`
	CollectedFeesToken1     decimal.Decimal `json:"collected_fees_token1"`
	FeeGrowthInside0LastX64 *uint256.Int    `json:"fee_growth_inside0_last_x64"`
	FeeGrowthInside1LastX64 *uint256.Int    `json:"fee_growth_inside1_last_x64"`
	TransactionID           string          `json:"transaction_id"`
}

// Transaction is the chain transaction that emitted one or more events.
type Transaction struct {
	ID          string   `json:"id"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	From        string   `json:"from"`
	GasLimit    uint64   `json:"gas_limit"`
	GasPrice    *big.Int `json:"gas_price"`
}

// Mint records liquidity added to a tier.
type Mint struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     uint64          `json:"timestamp"`
	PoolID        string          `json:"pool_id"`
	TierID        string          `json:"tier_id"`
	Token0        string          `json:"token0"`
	Token1        string          `json:"token1"`
	Owner         string          `json:"owner"`
	PositionRefID *big.Int        `json:"position_ref_id"`
	Sender        string          `json:"sender"`
	Origin        string          `json:"origin"`
	Amount        *big.Int        `json:"amount"`
	Amount0       decimal.Decimal `json:"amount0"`
	Amount1       decimal.Decimal `json:"amount1"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	TickLower     int32           `json:"tick_lower"`
	TickUpper     int32           `json:"tick_upper"`
	LogIndex      uint64          `json:"log_index"`
}

// Burn records liquidity removed from a tier, along with the fees collected.
type Burn struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     uint64          `json:"timestamp"`
	PoolID        string          `json:"pool_id"`
	TierID        string          `json:"tier_id"`
	Token0        string          `json:"token0"`
	Token1        string          `json:"token1"`
	Owner         string          `json:"owner"`
	PositionRefID *big.Int        `json:"position_ref_id"`
	Origin        string          `json:"origin"`
	Amount        *big.Int        `json:"amount"`
	Amount0       decimal.Decimal `json:"amount0"`
	Amount1       decimal.Decimal `json:"amount1"`
	FeeAmount0    decimal.Decimal `json:"fee_amount0"`
	FeeAmount1    decimal.Decimal `json:"fee_amount1"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	TickLower     int32           `json:"tick_lower"`
	TickUpper     int32           `json:"tick_upper"`
	LogIndex      uint64          `json:"log_index"`
}

// CollectSettled records the withdrawal of a settled limit order.
type CollectSettled struct {
	Burn
}

// Swap records a trade across one or more tiers of a pool.
type Swap struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Timestamp     uint64          `json:"timestamp"`
	PoolID        string          `json:"pool_id"`
	Token0        string          `json:"token0"`
	Token1        string          `json:"token1"`
	Sender        string          `json:"sender"`
	Recipient     string          `json:"recipient"`
	Origin        string          `json:"origin"`
	Amount0       decimal.Decimal `json:"amount0"`
	Amount1       decimal.Decimal `json:"amount1"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	LogIndex      uint64          `json:"log_index"`
}

// SwapTierData is the share of a swap routed through one tier.
type SwapTierData struct {
	ID               string          `json:"id"`
	SwapID           string          `json:"swap_id"`
	TierID           string          `json:"tier_id"`
	Timestamp        uint64          `json:"timestamp"`
	AmountInPercent  decimal.Decimal `json:"amount_in_percent"`
	AmountOutPercent decimal.Decimal `json:"amount_out_percent"`
	Amount0          decimal.Decimal `json:"amount0"`
	Amount1          decimal.Decimal `json:"amount1"`
	AmountUSD        decimal.Decimal `json:"amount_usd"`
	SqrtPriceAfter   *uint256.Int    `json:"sqrt_price_after"`
	TickAfter        int32           `json:"tick_after"`
}

// AccountTokenBalance is a token balance held in a hub internal account.
type AccountTokenBalance struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	AccRefID    *big.Int        `json:"acc_ref_id"`
	AccountHash string          `json:"account_hash"`
	Token       string          `json:"token"`
	Balance     decimal.Decimal `json:"balance"`
}
