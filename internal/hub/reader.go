package hub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"hubScope/internal/model"
)

var (
	// ErrTokenMetadata reports a token whose decimals cannot be read.
	ErrTokenMetadata = errors.New("token metadata unavailable")
	// ErrReverted reports an eth_call rejected by the contract rather than by
	// the transport.
	ErrReverted = errors.New("call reverted")
)

const unknownTokenField = "unknown"

// Caller performs eth_call. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader reads hub, manager and ERC20 state through eth_call.
type Reader struct {
	caller  Caller
	hub     common.Address
	manager common.Address
	logger  *zap.Logger

	hubABI      abi.ABI
	managerABI  abi.ABI
	erc20String abi.ABI
	erc20Bytes  abi.ABI

	mu     sync.RWMutex
	tokens map[common.Address]model.TokenMeta
}

// NewReader builds a reader for the hub and manager deployed at the given
// addresses.
func NewReader(caller Caller, hubAddress, managerAddress string, logger *zap.Logger) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !common.IsHexAddress(hubAddress) {
		return nil, fmt.Errorf("invalid hub address: %q", hubAddress)
	}
	r := &Reader{
		caller: caller,
		hub:    common.HexToAddress(hubAddress),
		logger: logger,
		tokens: make(map[common.Address]model.TokenMeta),
	}
	if managerAddress != "" {
		if !common.IsHexAddress(managerAddress) {
			return nil, fmt.Errorf("invalid manager address: %q", managerAddress)
		}
		r.manager = common.HexToAddress(managerAddress)
	}

	var err error
	if r.hubABI, err = HubABI(); err != nil {
		return nil, fmt.Errorf("parse hub abi: %w", err)
	}
	if r.managerABI, err = ManagerABI(); err != nil {
		return nil, fmt.Errorf("parse manager abi: %w", err)
	}
	if r.erc20String, err = erc20ABIStringInstance(); err != nil {
		return nil, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	if r.erc20Bytes, err = erc20ABIBytes32Instance(); err != nil {
		return nil, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}
	return r, nil
}

// At returns a view of the reader pinned to a block. A zero block reads the
// latest state.
func (r *Reader) At(block uint64) *BlockReader {
	var number *big.Int
	if block > 0 {
		number = new(big.Int).SetUint64(block)
	}
	return &BlockReader{r: r, block: number}
}

// BlockReader reads contract state at one block.
type BlockReader struct {
	r     *Reader
	block *big.Int
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, block *big.Int, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, block)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("call %s: %v: %w", method, err, ErrReverted)
		}
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func poolKey(poolID string) [32]byte {
	return [32]byte(common.HexToHash(poolID))
}

// GetTier reads a tier of a pool.
func (b *BlockReader) GetTier(ctx context.Context, poolID string, tierIdx uint8) (*model.ChainTier, error) {
	values, err := b.r.call(ctx, b.r.hub, b.r.hubABI, b.block, "getTier", poolKey(poolID), tierIdx)
	if err != nil {
		return nil, err
	}
	if len(values) != 8 {
		return nil, fmt.Errorf("unexpected getTier values: %d", len(values))
	}

	out := &model.ChainTier{}
	if out.Liquidity, err = asBigInt(values[0]); err != nil {
		return nil, fmt.Errorf("tier liquidity: %w", err)
	}
	if out.SqrtPrice, err = asUint256(values[1]); err != nil {
		return nil, fmt.Errorf("tier sqrt price: %w", err)
	}
	gamma, err := asBigInt(values[2])
	if err != nil {
		return nil, fmt.Errorf("tier sqrt gamma: %w", err)
	}
	out.SqrtGamma = uint32(gamma.Uint64())
	if out.Tick, err = asInt24(values[3]); err != nil {
		return nil, fmt.Errorf("tier tick: %w", err)
	}
	if out.NextTickBelow, err = asInt24(values[4]); err != nil {
		return nil, fmt.Errorf("tier next tick below: %w", err)
	}
	if out.NextTickAbove, err = asInt24(values[5]); err != nil {
		return nil, fmt.Errorf("tier next tick above: %w", err)
	}
	if out.FeeGrowthGlobal0, err = asUint256(values[6]); err != nil {
		return nil, fmt.Errorf("tier fee growth 0: %w", err)
	}
	if out.FeeGrowthGlobal1, err = asUint256(values[7]); err != nil {
		return nil, fmt.Errorf("tier fee growth 1: %w", err)
	}
	return out, nil
}

// GetTick reads a tick of a tier.
func (b *BlockReader) GetTick(ctx context.Context, poolID string, tierIdx uint8, tick int32) (*model.ChainTick, error) {
	values, err := b.r.call(ctx, b.r.hub, b.r.hubABI, b.block, "getTick", poolKey(poolID), tierIdx, big.NewInt(int64(tick)))
	if err != nil {
		return nil, err
	}
	if len(values) != 8 {
		return nil, fmt.Errorf("unexpected getTick values: %d", len(values))
	}

	out := &model.ChainTick{}
	if out.LiquidityLowerD8, err = asBigInt(values[0]); err != nil {
		return nil, fmt.Errorf("tick liquidity lower: %w", err)
	}
	if out.LiquidityUpperD8, err = asBigInt(values[1]); err != nil {
		return nil, fmt.Errorf("tick liquidity upper: %w", err)
	}
	if out.NextBelow, err = asInt24(values[2]); err != nil {
		return nil, fmt.Errorf("tick next below: %w", err)
	}
	if out.NextAbove, err = asInt24(values[3]); err != nil {
		return nil, fmt.Errorf("tick next above: %w", err)
	}
	out.NeedSettle0, _ = values[4].(bool)
	out.NeedSettle1, _ = values[5].(bool)
	if out.FeeGrowthOutside0, err = asUint256(values[6]); err != nil {
		return nil, fmt.Errorf("tick fee growth 0: %w", err)
	}
	if out.FeeGrowthOutside1, err = asUint256(values[7]); err != nil {
		return nil, fmt.Errorf("tick fee growth 1: %w", err)
	}
	return out, nil
}

// GetPoolParameters reads the tick spacing and protocol fee of a pool.
func (b *BlockReader) GetPoolParameters(ctx context.Context, poolID string) (model.PoolParameters, error) {
	values, err := b.r.call(ctx, b.r.hub, b.r.hubABI, b.block, "getPoolParameters", poolKey(poolID))
	if err != nil {
		return model.PoolParameters{}, err
	}
	if len(values) != 2 {
		return model.PoolParameters{}, fmt.Errorf("unexpected getPoolParameters values: %d", len(values))
	}
	spacing, err := asUint8(values[0])
	if err != nil {
		return model.PoolParameters{}, fmt.Errorf("tick spacing: %w", err)
	}
	fee, err := asUint8(values[1])
	if err != nil {
		return model.PoolParameters{}, fmt.Errorf("protocol fee: %w", err)
	}
	return model.PoolParameters{TickSpacing: spacing, ProtocolFee: fee}, nil
}

// AccountBalance reads the hub internal balance of token held by accountHash.
func (b *BlockReader) AccountBalance(ctx context.Context, token, accountHash string) (*big.Int, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("invalid token address: %s", token)
	}
	values, err := b.r.call(ctx, b.r.hub, b.r.hubABI, b.block, "accounts", common.HexToAddress(token), [32]byte(common.HexToHash(accountHash)))
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected accounts values: %d", len(values))
	}
	return asBigInt(values[0])
}

type positionTuple struct {
	LiquidityD8          *big.Int
	FeeGrowthInside0Last *big.Int
	FeeGrowthInside1Last *big.Int
	LimitOrderType       uint8
	SettlementSnapshotId uint32
}

// ManagerPosition reads a position NFT from the manager.
func (b *BlockReader) ManagerPosition(ctx context.Context, tokenID *big.Int) (*model.ManagerPosition, error) {
	if b.r.manager == (common.Address{}) {
		return nil, fmt.Errorf("manager address not configured")
	}
	values, err := b.r.call(ctx, b.r.manager, b.r.managerABI, b.block, "getPosition", tokenID)
	if err != nil {
		return nil, err
	}
	if len(values) != 7 {
		return nil, fmt.Errorf("unexpected getPosition values: %d", len(values))
	}

	out := &model.ManagerPosition{}
	addrs := make([]string, 3)
	for i := range addrs {
		addr, err := asAddress(values[i])
		if err != nil {
			return nil, fmt.Errorf("position address %d: %w", i, err)
		}
		addrs[i] = strings.ToLower(addr.Hex())
	}
	out.Owner, out.Token0, out.Token1 = addrs[0], addrs[1], addrs[2]
	if out.TierID, err = asUint8(values[3]); err != nil {
		return nil, fmt.Errorf("position tier: %w", err)
	}
	if out.TickLower, err = asInt24(values[4]); err != nil {
		return nil, fmt.Errorf("position tick lower: %w", err)
	}
	if out.TickUpper, err = asInt24(values[5]); err != nil {
		return nil, fmt.Errorf("position tick upper: %w", err)
	}

	pos, ok := abi.ConvertType(values[6], new(positionTuple)).(*positionTuple)
	if !ok {
		return nil, fmt.Errorf("unexpected position tuple %T", values[6])
	}
	out.LiquidityD8 = pos.LiquidityD8
	if out.FeeGrowthInside0Last, err = asUint256(pos.FeeGrowthInside0Last); err != nil {
		return nil, fmt.Errorf("position fee growth 0: %w", err)
	}
	if out.FeeGrowthInside1Last, err = asUint256(pos.FeeGrowthInside1Last); err != nil {
		return nil, fmt.Errorf("position fee growth 1: %w", err)
	}
	out.LimitOrderType = pos.LimitOrderType
	out.SettlementSnapshotID = new(big.Int).SetUint64(uint64(pos.SettlementSnapshotId))
	return out, nil
}

// TokenMeta reads ERC20 metadata at the latest block. Decimals are required;
// symbol and name fall back to bytes32 encodings and then to "unknown".
func (b *BlockReader) TokenMeta(ctx context.Context, token string) (model.TokenMeta, error) {
	return b.r.TokenMeta(ctx, token)
}

// TokenMeta is the block-independent token metadata lookup, cached per token.
func (r *Reader) TokenMeta(ctx context.Context, token string) (model.TokenMeta, error) {
	if !common.IsHexAddress(token) {
		return model.TokenMeta{}, fmt.Errorf("invalid token address %q: %w", token, ErrTokenMetadata)
	}
	addr := common.HexToAddress(token)

	r.mu.RLock()
	meta, ok := r.tokens[addr]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta = model.TokenMeta{Address: strings.ToLower(addr.Hex())}
	values, err := r.call(ctx, addr, r.erc20String, nil, "decimals")
	if err != nil {
		return meta, fmt.Errorf("%s decimals: %v: %w", meta.Address, err, ErrTokenMetadata)
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, fmt.Errorf("%s decimals: %v: %w", meta.Address, err, ErrTokenMetadata)
	}
	meta.Symbol = r.tokenString(ctx, addr, "symbol")
	meta.Name = r.tokenString(ctx, addr, "name")

	r.mu.Lock()
	r.tokens[addr] = meta
	r.mu.Unlock()
	return meta, nil
}

func (r *Reader) tokenString(ctx context.Context, token common.Address, method string) string {
	if values, err := r.call(ctx, token, r.erc20String, nil, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := r.call(ctx, token, r.erc20Bytes, nil, method)
	if err == nil {
		if s, ok := bytes32ToString(values[0]); ok {
			return s
		}
	}
	r.logger.Debug("token field unavailable", zap.String("token", token.Hex()), zap.String("field", method), zap.Error(err))
	return unknownTokenField
}
