package model

import (
	"math/big"

	"github.com/holiman/uint256"
)

// ChainTier is the on-chain state of a tier as returned by the hub.
type ChainTier struct {
	Liquidity        *big.Int
	SqrtPrice        *uint256.Int
	SqrtGamma        uint32
	Tick             int32
	NextTickBelow    int32
	NextTickAbove    int32
	FeeGrowthGlobal0 *uint256.Int
	FeeGrowthGlobal1 *uint256.Int
}

// ChainTick is the on-chain state of a tick. Liquidity is D8 encoded.
type ChainTick struct {
	LiquidityLowerD8  *big.Int
	LiquidityUpperD8  *big.Int
	NextBelow         int32
	NextAbove         int32
	NeedSettle0       bool
	NeedSettle1       bool
	FeeGrowthOutside0 *uint256.Int
	FeeGrowthOutside1 *uint256.Int
}

// PoolParameters are the per-pool settings stored by the hub.
type PoolParameters struct {
	TickSpacing uint8
	ProtocolFee uint8
}

// ManagerPosition is a position NFT as returned by the manager contract.
type ManagerPosition struct {
	Owner                string
	Token0               string
	Token1               string
	TierID               uint8
	TickLower            int32
	TickUpper            int32
	LiquidityD8          *big.Int
	FeeGrowthInside0Last *uint256.Int
	FeeGrowthInside1Last *uint256.Int
	LimitOrderType       uint8
	SettlementSnapshotID *big.Int
}

// TokenMeta is the ERC20 metadata of a token.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
