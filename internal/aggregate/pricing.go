// Package aggregate derives the USD and ETH denominated views of the hub:
// reference prices, tracked volumes, TVL rollups and interval buckets.
package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

// PricingConfig lists the reference tokens used to derive USD prices.
type PricingConfig struct {
	WETH             string
	USDC             string
	Whitelist        []string
	StableCoins      []string
	MinimumETHLocked decimal.Decimal
}

// Pricing derives ETH and USD prices from tier state.
type Pricing struct {
	weth             string
	usdc             string
	whitelist        map[string]struct{}
	stableCoins      map[string]struct{}
	minimumETHLocked decimal.Decimal

	usdcIsToken0 bool
	referenceID  string
}

var two = decimal.NewFromInt(2)

// NewPricing normalizes addresses to lowercase hex and resolves the reference
// USDC/WETH tier.
func NewPricing(cfg PricingConfig) (*Pricing, error) {
	p := &Pricing{
		weth:             strings.ToLower(cfg.WETH),
		usdc:             strings.ToLower(cfg.USDC),
		whitelist:        toSet(cfg.Whitelist),
		stableCoins:      toSet(cfg.StableCoins),
		minimumETHLocked: cfg.MinimumETHLocked,
	}
	if p.weth == "" || p.usdc == "" {
		return p, nil
	}
	if !common.IsHexAddress(p.weth) || !common.IsHexAddress(p.usdc) {
		return nil, fmt.Errorf("invalid reference token address")
	}

	p.usdcIsToken0 = p.usdc < p.weth
	token0, token1 := common.HexToAddress(p.weth), common.HexToAddress(p.usdc)
	if p.usdcIsToken0 {
		token0, token1 = token1, token0
	}
	poolID, err := model.PoolID(token0, token1)
	if err != nil {
		return nil, err
	}
	p.referenceID = model.TierID(poolID, 0)
	return p, nil
}

func toSet(addrs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			out[a] = struct{}{}
		}
	}
	return out
}

func (p *Pricing) IsWhitelisted(token string) bool {
	_, ok := p.whitelist[token]
	return ok
}

func (p *Pricing) isStableCoin(token string) bool {
	_, ok := p.stableCoins[token]
	return ok
}

// ReferenceTierID is the USDC/WETH tier that prices ETH.
func (p *Pricing) ReferenceTierID() string { return p.referenceID }

// EthPriceInUSD reads the ETH price off the reference tier. It is zero until
// that tier exists.
func (p *Pricing) EthPriceInUSD(ctx context.Context, sess *store.Session) (decimal.Decimal, error) {
	if p.referenceID == "" {
		return decimal.Zero, nil
	}
	tier, ok, err := store.Get[model.Tier](ctx, sess, store.KindTier, p.referenceID)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	if p.usdcIsToken0 {
		return tier.Token0Price, nil
	}
	return tier.Token1Price, nil
}

// FindEthPerToken prices token in ETH. Stablecoins use the inverse ETH price;
// other tokens take the price of the whitelisted tier holding the most ETH on
// the paired side, provided it holds more than the configured minimum.
func (p *Pricing) FindEthPerToken(ctx context.Context, sess *store.Session, token *model.Token, ethPriceUSD decimal.Decimal) (decimal.Decimal, error) {
	if token.ID == p.weth {
		return decimal.NewFromInt(1), nil
	}
	if p.isStableCoin(token.ID) {
		return hubmath.SafeDiv(decimal.NewFromInt(1), ethPriceUSD), nil
	}

	largestETHLocked := decimal.Zero
	priceSoFar := decimal.Zero
	for _, poolID := range token.WhitelistPools {
		pool, err := store.MustGet[model.Pool](ctx, sess, store.KindPool, poolID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, tierID := range pool.TierIDs {
			tier, err := store.MustGet[model.Tier](ctx, sess, store.KindTier, tierID)
			if err != nil {
				return decimal.Zero, err
			}
			if tier.Liquidity == nil || tier.Liquidity.Sign() <= 0 {
				continue
			}

			var (
				other     string
				amount    decimal.Decimal
				tierPrice decimal.Decimal
			)
			switch token.ID {
			case tier.Token0:
				other, amount, tierPrice = tier.Token1, tier.Amount1, tier.Token1Price
			case tier.Token1:
				other, amount, tierPrice = tier.Token0, tier.Amount0, tier.Token0Price
			default:
				continue
			}
			paired, err := store.MustGet[model.Token](ctx, sess, store.KindToken, other)
			if err != nil {
				return decimal.Zero, err
			}
			ethLocked := amount.Mul(paired.DerivedETH)
			if ethLocked.GreaterThan(largestETHLocked) && ethLocked.GreaterThan(p.minimumETHLocked) {
				largestETHLocked = ethLocked
				priceSoFar = tierPrice.Mul(paired.DerivedETH)
			}
		}
	}
	return priceSoFar, nil
}

// TrackedAmountUSD values a pair of amounts through whitelisted tokens only:
// both whitelisted sums them, one whitelisted doubles its side, neither is zero.
func (p *Pricing) TrackedAmountUSD(amount0 decimal.Decimal, token0 *model.Token, amount1 decimal.Decimal, token1 *model.Token, ethPriceUSD decimal.Decimal) decimal.Decimal {
	usd0 := amount0.Mul(token0.DerivedETH).Mul(ethPriceUSD)
	usd1 := amount1.Mul(token1.DerivedETH).Mul(ethPriceUSD)
	w0, w1 := p.IsWhitelisted(token0.ID), p.IsWhitelisted(token1.ID)
	switch {
	case w0 && w1:
		return usd0.Add(usd1)
	case w0:
		return usd0.Mul(two)
	case w1:
		return usd1.Mul(two)
	default:
		return decimal.Zero
	}
}

// AmountUSD values a pair of amounts at the tokens' derived prices.
func AmountUSD(amount0 decimal.Decimal, token0 *model.Token, amount1 decimal.Decimal, token1 *model.Token, ethPriceUSD decimal.Decimal) decimal.Decimal {
	return amount0.Mul(token0.DerivedETH.Mul(ethPriceUSD)).
		Add(amount1.Mul(token1.DerivedETH.Mul(ethPriceUSD)))
}
