package hub

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	responses map[[4]byte][]byte
	calls     map[[4]byte]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[[4]byte][]byte), calls: make(map[[4]byte]int)}
}

func (f *fakeCaller) respond(t *testing.T, method abi.Method, values ...interface{}) {
	t.Helper()
	out, err := method.Outputs.Pack(values...)
	require.NoError(t, err)
	var sel [4]byte
	copy(sel[:], method.ID)
	f.responses[sel] = out
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	f.calls[sel]++
	resp, ok := f.responses[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func (f *fakeCaller) total() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newTestReader(t *testing.T, caller Caller) *Reader {
	t.Helper()
	r, err := NewReader(caller, testHub.Hex(), testManager.Hex(), nil)
	require.NoError(t, err)
	return r
}

func TestReaderGetTierAndTick(t *testing.T) {
	hubABI, err := HubABI()
	require.NoError(t, err)
	caller := newFakeCaller()
	caller.respond(t, hubABI.Methods["getTier"],
		big.NewInt(25600), big.NewInt(1<<40), big.NewInt(99850),
		big.NewInt(-5), big.NewInt(-776363), big.NewInt(100),
		big.NewInt(11), big.NewInt(12))
	caller.respond(t, hubABI.Methods["getTick"],
		big.NewInt(3), big.NewInt(4), big.NewInt(-100), big.NewInt(200),
		true, false, big.NewInt(21), big.NewInt(22))
	caller.respond(t, hubABI.Methods["getPoolParameters"], uint8(25), uint8(3))

	r := newTestReader(t, caller).At(100)
	ctx := context.Background()

	tier, err := r.GetTier(ctx, testPoolID.Hex(), 0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(25600), tier.Liquidity)
	assert.Equal(t, uint256.NewInt(1<<40), tier.SqrtPrice)
	assert.Equal(t, uint32(99850), tier.SqrtGamma)
	assert.Equal(t, int32(-5), tier.Tick)
	assert.Equal(t, int32(-776363), tier.NextTickBelow)
	assert.Equal(t, uint256.NewInt(12), tier.FeeGrowthGlobal1)

	tick, err := r.GetTick(ctx, testPoolID.Hex(), 0, -100)
	require.NoError(t, err)
	assert.Equal(t, int32(200), tick.NextAbove)
	assert.True(t, tick.NeedSettle0)
	assert.Equal(t, uint256.NewInt(21), tick.FeeGrowthOutside0)

	params, err := r.GetPoolParameters(ctx, testPoolID.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint8(25), params.TickSpacing)
	assert.Equal(t, uint8(3), params.ProtocolFee)
}

func TestReaderManagerPosition(t *testing.T) {
	managerABI, err := ManagerABI()
	require.NoError(t, err)
	caller := newFakeCaller()
	caller.respond(t, managerABI.Methods["getPosition"],
		testHub, testManager, testHub, uint8(1), big.NewInt(-200), big.NewInt(200),
		positionTuple{
			LiquidityD8:          big.NewInt(10),
			FeeGrowthInside0Last: big.NewInt(1),
			FeeGrowthInside1Last: big.NewInt(2),
			LimitOrderType:       2,
			SettlementSnapshotId: 5,
		})

	pos, err := newTestReader(t, caller).At(0).ManagerPosition(context.Background(), big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", pos.Token0)
	assert.Equal(t, uint8(1), pos.TierID)
	assert.Equal(t, int32(-200), pos.TickLower)
	assert.Equal(t, big.NewInt(10), pos.LiquidityD8)
	assert.Equal(t, uint8(2), pos.LimitOrderType)
	assert.Equal(t, big.NewInt(5), pos.SettlementSnapshotID)
}

func TestReaderTokenMeta(t *testing.T) {
	erc20String, err := erc20ABIStringInstance()
	require.NoError(t, err)
	erc20Bytes, err := erc20ABIBytes32Instance()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.respond(t, erc20String.Methods["decimals"], uint8(18))
	caller.respond(t, erc20String.Methods["name"], "Maker")
	var symbol [32]byte
	copy(symbol[:], "MKR")
	caller.respond(t, erc20Bytes.Methods["symbol"], symbol)

	r := newTestReader(t, caller)
	ctx := context.Background()
	token := "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"

	meta, err := r.TokenMeta(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), meta.Decimals)
	assert.Equal(t, "MKR", meta.Symbol)
	assert.Equal(t, "Maker", meta.Name)

	// cached after the first read
	calls := caller.total()
	_, err = r.At(5).TokenMeta(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, calls, caller.total())
}

func TestReaderTokenMetaWithoutDecimals(t *testing.T) {
	r := newTestReader(t, newFakeCaller())
	_, err := r.TokenMeta(context.Background(), "0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2")
	assert.ErrorIs(t, err, ErrTokenMetadata)
}

func TestReaderMarksReverts(t *testing.T) {
	r := newTestReader(t, newFakeCaller()).At(7)
	_, err := r.ManagerPosition(context.Background(), big.NewInt(3))
	assert.ErrorIs(t, err, ErrReverted)
}
