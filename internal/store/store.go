package store

import (
	"context"
	"errors"
)

// Kind names an entity collection.
type Kind string

const (
	KindHub              Kind = "hub"
	KindBundle           Kind = "bundle"
	KindToken            Kind = "token"
	KindPool             Kind = "pool"
	KindTier             Kind = "tier"
	KindTick             Kind = "tick"
	KindTickMapWord      Kind = "tick_map_word"
	KindTickMapBlock     Kind = "tick_map_block"
	KindTickMapBlockMap  Kind = "tick_map_block_map"
	KindHubPosition      Kind = "hub_position"
	KindPosition         Kind = "position"
	KindPositionSnapshot Kind = "position_snapshot"
	KindTransaction      Kind = "transaction"
	KindMint             Kind = "mint"
	KindBurn             Kind = "burn"
	KindSwap             Kind = "swap"
	KindSwapTierData     Kind = "swap_tier_data"
	KindCollectSettled   Kind = "collect_settled"
	KindAccountBalance   Kind = "account_token_balance"
	KindHubDayData       Kind = "hub_day_data"
	KindPoolDayData      Kind = "pool_day_data"
	KindPoolHourData     Kind = "pool_hour_data"
	KindTierDayData      Kind = "tier_day_data"
	KindTierHourData     Kind = "tier_hour_data"
	KindTokenDayData     Kind = "token_day_data"
	KindTokenHourData    Kind = "token_hour_data"
	KindTickDayData      Kind = "tick_day_data"
	KindCursor           Kind = "cursor"
)

// ErrNotFound is returned when a required entity is missing.
var ErrNotFound = errors.New("entity not found")

// Op is a single write in a batch. Delete removes the entity and ignores Data.
type Op struct {
	Kind   Kind
	ID     string
	Data   []byte
	Delete bool
}

// Store is the key-value persistence contract for entities. Apply must be
// atomic: either every op of the batch is visible afterwards or none is.
type Store interface {
	Load(ctx context.Context, kind Kind, id string) ([]byte, bool, error)
	Apply(ctx context.Context, ops []Op) error
}
