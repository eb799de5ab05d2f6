// Package handler applies decoded hub and manager events to the entity store.
package handler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"hubScope/internal/aggregate"
	"hubScope/internal/metrics"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

// ErrMalformed marks an event whose payload cannot be interpreted.
var ErrMalformed = errors.New("malformed event payload")

// ChainReader is the contract state the handlers read at an event's block.
type ChainReader interface {
	GetTier(ctx context.Context, poolID string, tierIdx uint8) (*model.ChainTier, error)
	GetTick(ctx context.Context, poolID string, tierIdx uint8, tick int32) (*model.ChainTick, error)
	GetPoolParameters(ctx context.Context, poolID string) (model.PoolParameters, error)
	AccountBalance(ctx context.Context, token, accountHash string) (*big.Int, error)
	ManagerPosition(ctx context.Context, tokenID *big.Int) (*model.ManagerPosition, error)
	TokenMeta(ctx context.Context, token string) (model.TokenMeta, error)
}

// ReaderAt pins a ChainReader to a block.
type ReaderAt func(block uint64) ChainReader

// Config controls event handling.
type Config struct {
	HubAddress     string
	ManagerAddress string
	// MaxTickUpdates bounds the tick fee refreshes one event may issue.
	MaxTickUpdates int
	Pricing        *aggregate.Pricing
}

// Handlers maps each event to its entity updates.
type Handlers struct {
	hubID    string
	manager  string
	budget   int
	pricing  *aggregate.Pricing
	readerAt ReaderAt
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewHandlers(cfg Config, readerAt ReaderAt, logger *zap.Logger, m *metrics.Metrics) (*Handlers, error) {
	if readerAt == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if cfg.HubAddress == "" {
		return nil, fmt.Errorf("hub address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	pricing := cfg.Pricing
	if pricing == nil {
		var err error
		if pricing, err = aggregate.NewPricing(aggregate.PricingConfig{}); err != nil {
			return nil, err
		}
	}
	budget := cfg.MaxTickUpdates
	if budget <= 0 {
		budget = 50
	}
	return &Handlers{
		hubID:    strings.ToLower(cfg.HubAddress),
		manager:  strings.ToLower(cfg.ManagerAddress),
		budget:   budget,
		pricing:  pricing,
		readerAt: readerAt,
		logger:   logger,
		metrics:  m,
	}, nil
}

// event is the state shared by everything one event touches.
type event struct {
	ctx    context.Context
	sess   *store.Session
	rec    model.TypedEventRecord
	chain  ChainReader
	budget int
	logger *zap.Logger
}

// Handle applies rec to sess. Nothing is written to the store; the caller
// commits or discards the session.
func (h *Handlers) Handle(ctx context.Context, sess *store.Session, rec model.TypedEventRecord) error {
	ev := &event{
		ctx:    ctx,
		sess:   sess,
		rec:    rec,
		chain:  h.readerAt(rec.BlockNumber),
		budget: h.budget,
		logger: h.logger.With(zap.String("event", rec.EventName), zap.String("tx", rec.TxHash), zap.Uint64("log_index", rec.LogIndex)),
	}

	switch rec.EventName {
	case model.EventUpdateDefaultParameters:
		var data model.UpdateDefaultParametersEventData
		return decodeAnd(rec, &data, func() error { return h.updateDefaultParameters(ev, data) })
	case model.EventPoolCreated:
		var data model.PoolCreatedEventData
		return decodeAnd(rec, &data, func() error { return h.poolCreated(ev, data) })
	case model.EventUpdatePool:
		var data model.UpdatePoolEventData
		return decodeAnd(rec, &data, func() error { return h.updatePool(ev, data) })
	case model.EventUpdateTier:
		var data model.UpdateTierEventData
		return decodeAnd(rec, &data, func() error { return h.updateTier(ev, data) })
	case model.EventMint:
		var data model.MintEventData
		return decodeAnd(rec, &data, func() error { return h.mint(ev, data) })
	case model.EventBurn:
		var data model.BurnEventData
		return decodeAnd(rec, &data, func() error { return h.burn(ev, data) })
	case model.EventCollectSettled:
		var data model.BurnEventData
		return decodeAnd(rec, &data, func() error { return h.collectSettled(ev, data) })
	case model.EventSwap:
		var data model.SwapEventData
		return decodeAnd(rec, &data, func() error { return h.swap(ev, data) })
	case model.EventDeposit:
		var data model.DepositEventData
		return decodeAnd(rec, &data, func() error { return h.deposit(ev, data) })
	case model.EventWithdraw:
		var data model.WithdrawEventData
		return decodeAnd(rec, &data, func() error { return h.withdraw(ev, data) })
	case model.EventSetLimitOrderType:
		var data model.SetLimitOrderTypeEventData
		return decodeAnd(rec, &data, func() error { return h.setLimitOrderType(ev, data) })
	case model.EventTransfer:
		var data model.TransferEventData
		return decodeAnd(rec, &data, func() error { return h.transfer(ev, data) })
	default:
		ev.logger.Debug("no handler for event")
		return nil
	}
}

func decodeAnd(rec model.TypedEventRecord, out interface{}, apply func() error) error {
	if err := rec.DecodePayload(out); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", rec.EventName, err, ErrMalformed)
	}
	return apply()
}

func parseBig(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q: %w", field, s, ErrMalformed)
	}
	return v, nil
}

func parseU256(field, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", field, err, ErrMalformed)
	}
	return v, nil
}
