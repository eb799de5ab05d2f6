package hub

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const hubABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "recipientAccRefId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "sender", "type": "address"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "senderAccRefId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "recipient", "type": "address"}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"}
    ],
    "name": "PoolCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"indexed": false, "internalType": "uint24", "name": "sqrtGamma", "type": "uint24"},
      {"indexed": false, "internalType": "uint128", "name": "sqrtPrice", "type": "uint128"},
      {"indexed": false, "internalType": "uint8", "name": "limitOrderTickSpacingMultiplier", "type": "uint8"}
    ],
    "name": "UpdateTier",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint8", "name": "tickSpacing", "type": "uint8"},
      {"indexed": false, "internalType": "uint8", "name": "protocolFee", "type": "uint8"}
    ],
    "name": "UpdatePool",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint8", "name": "tickSpacing", "type": "uint8"},
      {"indexed": false, "internalType": "uint8", "name": "protocolFee", "type": "uint8"}
    ],
    "name": "UpdateDefaultParameters",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "senderAccRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint96", "name": "liquidityD8", "type": "uint96"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"}
    ],
    "name": "Mint",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint256", "name": "ownerAccRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint96", "name": "liquidityD8", "type": "uint96"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount1", "type": "uint256"}
    ],
    "name": "Burn",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint256", "name": "ownerAccRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint96", "name": "liquidityD8", "type": "uint96"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount1", "type": "uint256"}
    ],
    "name": "CollectSettled",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint8", "name": "limitOrderType", "type": "uint8"}
    ],
    "name": "SetLimitOrderType",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "senderAccRefId", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "recipientAccRefId", "type": "uint256"},
      {"indexed": false, "internalType": "int256", "name": "amount0", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amount1", "type": "int256"},
      {"indexed": false, "internalType": "uint256", "name": "amountInDistribution", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOutDistribution", "type": "uint256"},
      {"indexed": false, "internalType": "uint256[]", "name": "tierData", "type": "uint256[]"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"internalType": "uint8", "name": "tierId", "type": "uint8"}
    ],
    "name": "getTier",
    "outputs": [
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint128", "name": "sqrtPrice", "type": "uint128"},
      {"internalType": "uint24", "name": "sqrtGamma", "type": "uint24"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "int24", "name": "nextTickBelow", "type": "int24"},
      {"internalType": "int24", "name": "nextTickAbove", "type": "int24"},
      {"internalType": "uint80", "name": "feeGrowthGlobal0", "type": "uint80"},
      {"internalType": "uint80", "name": "feeGrowthGlobal1", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "getTick",
    "outputs": [
      {"internalType": "uint96", "name": "liquidityLowerD8", "type": "uint96"},
      {"internalType": "uint96", "name": "liquidityUpperD8", "type": "uint96"},
      {"internalType": "int24", "name": "nextBelow", "type": "int24"},
      {"internalType": "int24", "name": "nextAbove", "type": "int24"},
      {"internalType": "bool", "name": "needSettle0", "type": "bool"},
      {"internalType": "bool", "name": "needSettle1", "type": "bool"},
      {"internalType": "uint80", "name": "feeGrowthOutside0", "type": "uint80"},
      {"internalType": "uint80", "name": "feeGrowthOutside1", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "poolId", "type": "bytes32"}],
    "name": "getPoolParameters",
    "outputs": [
      {"internalType": "uint8", "name": "tickSpacing", "type": "uint8"},
      {"internalType": "uint8", "name": "protocolFee", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token", "type": "address"},
      {"internalType": "bytes32", "name": "accHash", "type": "bytes32"}
    ],
    "name": "accounts",
    "outputs": [{"internalType": "uint256", "name": "balance", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const managerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "name": "getPosition",
    "outputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "uint8", "name": "tierId", "type": "uint8"},
      {"internalType": "int24", "name": "tickLower", "type": "int24"},
      {"internalType": "int24", "name": "tickUpper", "type": "int24"},
      {
        "components": [
          {"internalType": "uint96", "name": "liquidityD8", "type": "uint96"},
          {"internalType": "uint80", "name": "feeGrowthInside0Last", "type": "uint80"},
          {"internalType": "uint80", "name": "feeGrowthInside1Last", "type": "uint80"},
          {"internalType": "uint8", "name": "limitOrderType", "type": "uint8"},
          {"internalType": "uint32", "name": "settlementSnapshotId", "type": "uint32"}
        ],
        "internalType": "struct Positions.Position",
        "name": "position",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	hubABI     abi.ABI
	hubABIOnce sync.Once
	hubABIErr  error

	managerABI     abi.ABI
	managerABIOnce sync.Once
	managerABIErr  error
)

// HubABI returns the parsed hub ABI.
func HubABI() (abi.ABI, error) {
	hubABIOnce.Do(func() {
		hubABI, hubABIErr = abi.JSON(strings.NewReader(hubABIJSON))
	})
	return hubABI, hubABIErr
}

// ManagerABI returns the parsed position manager ABI.
func ManagerABI() (abi.ABI, error) {
	managerABIOnce.Do(func() {
		managerABI, managerABIErr = abi.JSON(strings.NewReader(managerABIJSON))
	})
	return managerABI, managerABIErr
}
