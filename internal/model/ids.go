package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	addressPairArgs    = abi.Arguments{{Type: addressType}, {Type: addressType}}
	addressUint256Args = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
)

// AddressID is the lowercase hex form used for address-keyed entities.
func AddressID(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// PoolID is keccak256(abi.encode(token0, token1)).
func PoolID(token0, token1 common.Address) (string, error) {
	encoded, err := addressPairArgs.Pack(token0, token1)
	if err != nil {
		return "", fmt.Errorf("encode pool key: %w", err)
	}
	return crypto.Keccak256Hash(encoded).Hex(), nil
}

// AccountHash is keccak256(abi.encode(owner, accRefID)). A zero accRefID
// addresses no internal account and yields ok=false.
func AccountHash(owner common.Address, accRefID *big.Int) (string, bool, error) {
	if accRefID == nil || accRefID.Sign() == 0 {
		return "", false, nil
	}
	encoded, err := addressUint256Args.Pack(owner, accRefID)
	if err != nil {
		return "", false, fmt.Errorf("encode account key: %w", err)
	}
	return crypto.Keccak256Hash(encoded).Hex(), true, nil
}

func TierID(poolID string, tierIdx uint8) string {
	return fmt.Sprintf("%s#%d", poolID, tierIdx)
}

func TickID(tierID string, tickIdx int32) string {
	return fmt.Sprintf("%s#%d", tierID, tickIdx)
}

// TickMapNodeID names a word or block; the block map is keyed by the tier id alone.
func TickMapNodeID(tierID string, index int32) string {
	return fmt.Sprintf("%s#%d", tierID, index)
}

func HubPositionID(poolID string, owner common.Address, positionRefID *big.Int, tierIdx uint8, tickLower, tickUpper int32) string {
	return fmt.Sprintf("%s_%s_%d_%d_%d_%s", poolID, AddressID(owner), tierIdx, tickLower, tickUpper, positionRefID.String())
}

func AccountBalanceID(token string, accountHash string) string {
	return token + "#" + accountHash
}

// EventID names per-transaction event entities such as mints and swaps.
func EventID(txHash string, poolTxCount int64) string {
	return fmt.Sprintf("%s#%d", txHash, poolTxCount)
}

func SwapTierDataID(swapID string, tierIdx int) string {
	return fmt.Sprintf("%s#%d", swapID, tierIdx)
}

func PositionSnapshotID(positionID string, block uint64) string {
	return fmt.Sprintf("%s#%d", positionID, block)
}

// DayIndex buckets a unix timestamp by day.
func DayIndex(ts uint64) int64 { return int64(ts / 86400) }

// HourIndex buckets a unix timestamp by hour.
func HourIndex(ts uint64) int64 { return int64(ts / 3600) }

// IntervalID names a day or hour bucket of an entity.
func IntervalID(entityID string, index int64) string {
	return fmt.Sprintf("%s-%d", entityID, index)
}
