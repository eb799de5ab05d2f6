package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token0 = common.HexToAddress("0x1111111111111111111111111111111111111111")
	token1 = common.HexToAddress("0x2222222222222222222222222222222222222222")
	owner  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestPoolID(t *testing.T) {
	id, err := PoolID(token0, token1)
	require.NoError(t, err)
	assert.Equal(t, "0x1bbe365357fe28ec15df954baa1b29fb309dd0e8a21208d768bce9ab1c0c4fd0", id)
}

func TestAccountHash(t *testing.T) {
	hash, ok, err := AccountHash(owner, big.NewInt(7))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xa1ebf0776d3d29a5dde99e98737924923536f26a36de07de6309faa00e97f077", hash)

	_, ok, err = AccountHash(owner, big.NewInt(0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityIDs(t *testing.T) {
	tier := TierID("0xpool", 2)
	assert.Equal(t, "0xpool#2", tier)
	assert.Equal(t, "0xpool#2#-776363", TickID(tier, -776363))
	assert.Equal(t, "0xpool#2#5", TickMapNodeID(tier, 5))
	assert.Equal(t,
		"0xpool_0x3333333333333333333333333333333333333333_2_-100_100_9",
		HubPositionID("0xpool", owner, big.NewInt(9), 2, -100, 100))
	assert.Equal(t, "0xtx#3", EventID("0xtx", 3))
	assert.Equal(t, "0xtx#3#1", SwapTierDataID(EventID("0xtx", 3), 1))
	assert.Equal(t, "12#500", PositionSnapshotID("12", 500))
	assert.Equal(t, "0xpool-19675", IntervalID("0xpool", DayIndex(1700000000)))
	assert.Equal(t, int64(472222), HourIndex(1700000000))
}
