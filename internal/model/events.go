package model

// Hub and manager event names.
const (
	EventUpdateDefaultParameters = "UpdateDefaultParameters"
	EventPoolCreated             = "PoolCreated"
	EventUpdatePool              = "UpdatePool"
	EventUpdateTier              = "UpdateTier"
	EventMint                    = "Mint"
	EventBurn                    = "Burn"
	EventSwap                    = "Swap"
	EventCollectSettled          = "CollectSettled"
	EventSetLimitOrderType       = "SetLimitOrderType"
	EventDeposit                 = "Deposit"
	EventWithdraw                = "Withdraw"
	EventTransfer                = "Transfer"
)

// Integer fields wider than 64 bits are carried as decimal strings.

// UpdateDefaultParametersEventData is the decoded UpdateDefaultParameters payload.
type UpdateDefaultParametersEventData struct {
	TickSpacing uint8 `json:"tick_spacing"`
	ProtocolFee uint8 `json:"protocol_fee"`
}

// PoolCreatedEventData is the decoded PoolCreated payload.
type PoolCreatedEventData struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	PoolID string `json:"pool_id"`
}

// UpdatePoolEventData is the decoded UpdatePool payload.
type UpdatePoolEventData struct {
	PoolID      string `json:"pool_id"`
	TickSpacing uint8  `json:"tick_spacing"`
	ProtocolFee uint8  `json:"protocol_fee"`
}

// UpdateTierEventData is the decoded UpdateTier payload.
type UpdateTierEventData struct {
	PoolID                          string `json:"pool_id"`
	TierID                          uint8  `json:"tier_id"`
	SqrtGamma                       uint32 `json:"sqrt_gamma"`
	SqrtPrice                       string `json:"sqrt_price"`
	LimitOrderTickSpacingMultiplier uint8  `json:"limit_order_tick_spacing_multiplier"`
}

// MintEventData is the decoded Mint payload.
type MintEventData struct {
	PoolID         string `json:"pool_id"`
	Owner          string `json:"owner"`
	PositionRefID  string `json:"position_ref_id"`
	TierID         uint8  `json:"tier_id"`
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	Sender         string `json:"sender"`
	SenderAccRefID string `json:"sender_acc_ref_id"`
	LiquidityD8    string `json:"liquidity_d8"`
	Amount0        string `json:"amount0"`
	Amount1        string `json:"amount1"`
}

// BurnEventData is the decoded Burn payload. CollectSettled shares its layout.
type BurnEventData struct {
	PoolID        string `json:"pool_id"`
	Owner         string `json:"owner"`
	PositionRefID string `json:"position_ref_id"`
	TierID        uint8  `json:"tier_id"`
	TickLower     int32  `json:"tick_lower"`
	TickUpper     int32  `json:"tick_upper"`
	OwnerAccRefID string `json:"owner_acc_ref_id"`
	LiquidityD8   string `json:"liquidity_d8"`
	Amount0       string `json:"amount0"`
	Amount1       string `json:"amount1"`
	FeeAmount0    string `json:"fee_amount0"`
	FeeAmount1    string `json:"fee_amount1"`
}

// SetLimitOrderTypeEventData is the decoded SetLimitOrderType payload.
type SetLimitOrderTypeEventData struct {
	PoolID         string `json:"pool_id"`
	Owner          string `json:"owner"`
	PositionRefID  string `json:"position_ref_id"`
	TierID         uint8  `json:"tier_id"`
	TickLower      int32  `json:"tick_lower"`
	TickUpper      int32  `json:"tick_upper"`
	LimitOrderType uint8  `json:"limit_order_type"`
}

// SwapEventData is the decoded Swap payload. TierData holds one packed word
// per tier: liquidity in the low 128 bits, sqrt price in the next 128.
type SwapEventData struct {
	PoolID                string   `json:"pool_id"`
	Sender                string   `json:"sender"`
	Recipient             string   `json:"recipient"`
	SenderAccRefID        string   `json:"sender_acc_ref_id"`
	RecipientAccRefID     string   `json:"recipient_acc_ref_id"`
	Amount0               string   `json:"amount0"`
	Amount1               string   `json:"amount1"`
	AmountInDistribution  string   `json:"amount_in_distribution"`
	AmountOutDistribution string   `json:"amount_out_distribution"`
	TierData              []string `json:"tier_data"`
}

// DepositEventData is the decoded Deposit payload.
type DepositEventData struct {
	Recipient         string `json:"recipient"`
	RecipientAccRefID string `json:"recipient_acc_ref_id"`
	Token             string `json:"token"`
	Amount            string `json:"amount"`
	Sender            string `json:"sender"`
}

// WithdrawEventData is the decoded Withdraw payload.
type WithdrawEventData struct {
	Sender         string `json:"sender"`
	SenderAccRefID string `json:"sender_acc_ref_id"`
	Token          string `json:"token"`
	Amount         string `json:"amount"`
	Recipient      string `json:"recipient"`
}

// TransferEventData is the decoded manager ERC721 Transfer payload.
type TransferEventData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID string `json:"token_id"`
}
