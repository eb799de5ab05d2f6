package handler

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hubScope/internal/hub"
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

const (
	defaultTickSpacing = 200
	defaultProtocolFee = 0
)

func (h *Handlers) getOrCreateHub(ev *event) (*model.Hub, error) {
	v, ok, err := store.Get[model.Hub](ev.ctx, ev.sess, store.KindHub, h.hubID)
	if err != nil {
		return nil, err
	}
	if !ok {
		v = &model.Hub{
			ID:                 h.hubID,
			DefaultTickSpacing: defaultTickSpacing,
			DefaultProtocolFee: defaultProtocolFee,
		}
	}
	store.Put(ev.sess, store.KindHub, v.ID, v)
	return v, nil
}

func getOrCreateBundle(ev *event) (*model.Bundle, error) {
	v, ok, err := store.Get[model.Bundle](ev.ctx, ev.sess, store.KindBundle, model.BundleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		v = &model.Bundle{ID: model.BundleID}
	}
	store.Put(ev.sess, store.KindBundle, v.ID, v)
	return v, nil
}

// getOrCreateToken returns nil, nil when the token's decimals cannot be read.
func getOrCreateToken(ev *event, address string) (*model.Token, error) {
	v, ok, err := store.Get[model.Token](ev.ctx, ev.sess, store.KindToken, address)
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	meta, err := ev.chain.TokenMeta(ev.ctx, address)
	if err != nil {
		if errors.Is(err, hub.ErrTokenMetadata) {
			ev.logger.Warn("token metadata unavailable", zap.String("token", address), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return &model.Token{
		ID:             address,
		Symbol:         meta.Symbol,
		Name:           meta.Name,
		Decimals:       meta.Decimals,
		WhitelistPools: []string{},
	}, nil
}

// eventEntities are the entities loaded by every pool-scoped event.
type eventEntities struct {
	hub    *model.Hub
	bundle *model.Bundle
	pool   *model.Pool
	token0 *model.Token
	token1 *model.Token
}

func (h *Handlers) loadPool(ev *event, poolID string) (*eventEntities, error) {
	var (
		e   eventEntities
		err error
	)
	if e.hub, err = h.getOrCreateHub(ev); err != nil {
		return nil, err
	}
	if e.bundle, err = getOrCreateBundle(ev); err != nil {
		return nil, err
	}
	if e.pool, err = store.MustGet[model.Pool](ev.ctx, ev.sess, store.KindPool, poolID); err != nil {
		return nil, err
	}
	if e.token0, err = store.MustGet[model.Token](ev.ctx, ev.sess, store.KindToken, e.pool.Token0); err != nil {
		return nil, err
	}
	if e.token1, err = store.MustGet[model.Token](ev.ctx, ev.sess, store.KindToken, e.pool.Token1); err != nil {
		return nil, err
	}
	return &e, nil
}

// save stages every entity of e.
func (e *eventEntities) save(ev *event) {
	store.Put(ev.sess, store.KindHub, e.hub.ID, e.hub)
	store.Put(ev.sess, store.KindBundle, e.bundle.ID, e.bundle)
	store.Put(ev.sess, store.KindPool, e.pool.ID, e.pool)
	store.Put(ev.sess, store.KindToken, e.token0.ID, e.token0)
	store.Put(ev.sess, store.KindToken, e.token1.ID, e.token1)
}

func loadTier(ev *event, poolID string, tierIdx uint8) (*model.Tier, error) {
	return store.MustGet[model.Tier](ev.ctx, ev.sess, store.KindTier, model.TierID(poolID, tierIdx))
}

func loadTransaction(ev *event) *model.Transaction {
	tx := &model.Transaction{
		ID:          ev.rec.TxHash,
		BlockNumber: ev.rec.BlockNumber,
		Timestamp:   ev.rec.Timestamp,
		From:        ev.rec.Tx.From,
		GasLimit:    ev.rec.Tx.GasLimit,
	}
	if price, ok := new(big.Int).SetString(ev.rec.Tx.GasPrice, 10); ok {
		tx.GasPrice = price
	}
	store.Put(ev.sess, store.KindTransaction, tx.ID, tx)
	return tx
}

// accountBalance returns the internal account record of owner for token, or
// nil when accRefID addresses no account.
func accountBalance(ev *event, owner string, accRefID *big.Int, token string) (*model.AccountTokenBalance, error) {
	hash, ok, err := model.AccountHash(common.HexToAddress(owner), accRefID)
	if err != nil || !ok {
		return nil, err
	}
	id := model.AccountBalanceID(token, hash)
	rec, found, err := store.Get[model.AccountTokenBalance](ev.ctx, ev.sess, store.KindAccountBalance, id)
	if err != nil {
		return nil, err
	}
	if !found {
		rec = &model.AccountTokenBalance{
			ID:          id,
			Owner:       owner,
			AccRefID:    new(big.Int).Set(accRefID),
			AccountHash: hash,
			Token:       token,
		}
	}
	return rec, nil
}

// refreshBalance replaces an internal balance with the hub's own figure.
func refreshBalance(ev *event, token *model.Token, owner string, accRefID *big.Int) error {
	rec, err := accountBalance(ev, owner, accRefID, token.ID)
	if err != nil || rec == nil {
		return err
	}
	amount, err := ev.chain.AccountBalance(ev.ctx, token.ID, rec.AccountHash)
	if err != nil {
		return fmt.Errorf("account balance %s: %w", rec.ID, err)
	}
	rec.Balance = hubmath.ConvertTokenToDecimal(amount, token.Decimals)
	store.Put(ev.sess, store.KindAccountBalance, rec.ID, rec)
	return nil
}
