package hub

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hubScope/internal/model"
)

// DecoderConfig restricts decoding to the given contracts. An empty address
// accepts logs from any emitter.
type DecoderConfig struct {
	HubAddress     string
	ManagerAddress string
}

// Decoder decodes hub events and position manager transfers.
type Decoder struct {
	hubABI     abi.ABI
	managerABI abi.ABI
	hub        common.Address
	manager    common.Address

	hubTopics     map[common.Hash]string
	transferTopic common.Hash
}

// NewDecoder builds a decoder for the hub and manager ABIs.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	hubABI, err := HubABI()
	if err != nil {
		return nil, fmt.Errorf("parse hub abi: %w", err)
	}
	managerABI, err := ManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse manager abi: %w", err)
	}

	d := &Decoder{
		hubABI:        hubABI,
		managerABI:    managerABI,
		hubTopics:     make(map[common.Hash]string, len(hubABI.Events)),
		transferTopic: managerABI.Events[model.EventTransfer].ID,
	}
	for name, event := range hubABI.Events {
		d.hubTopics[event.ID] = name
	}

	if cfg.HubAddress != "" {
		if !common.IsHexAddress(cfg.HubAddress) {
			return nil, fmt.Errorf("invalid hub address: %s", cfg.HubAddress)
		}
		d.hub = common.HexToAddress(cfg.HubAddress)
	}
	if cfg.ManagerAddress != "" {
		if !common.IsHexAddress(cfg.ManagerAddress) {
			return nil, fmt.Errorf("invalid manager address: %s", cfg.ManagerAddress)
		}
		d.manager = common.HexToAddress(cfg.ManagerAddress)
	}
	return d, nil
}

// Topics returns every topic0 the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.hubTopics)+1)
	for topic := range d.hubTopics {
		out = append(out, topic)
	}
	return append(out, d.transferTopic)
}

// CanDecode reports whether the log is a known event from an accepted emitter.
func (d *Decoder) CanDecode(log model.LogRecord) bool {
	_, _, err := d.route(log)
	return err == nil
}

func (d *Decoder) route(log model.LogRecord) (abi.Event, string, error) {
	if len(log.Topics) == 0 {
		return abi.Event{}, "", fmt.Errorf("missing topics")
	}
	if !common.IsHexAddress(log.Address) {
		return abi.Event{}, "", fmt.Errorf("invalid emitter address: %s", log.Address)
	}
	emitter := common.HexToAddress(log.Address)
	topic0 := common.HexToHash(log.Topics[0])

	if topic0 == d.transferTopic && (d.manager == common.Address{} || emitter == d.manager) {
		return d.managerABI.Events[model.EventTransfer], model.EventTransfer, nil
	}
	if name, ok := d.hubTopics[topic0]; ok && (d.hub == common.Address{} || emitter == d.hub) {
		return d.hubABI.Events[name], name, nil
	}
	return abi.Event{}, "", fmt.Errorf("unsupported topic0 %s from %s", log.Topics[0], log.Address)
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	event, name, err := d.route(log)
	if err != nil {
		return nil, err
	}
	f, err := unpackEvent(event, log)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case model.EventUpdateDefaultParameters:
		decoded = model.UpdateDefaultParametersEventData{
			TickSpacing: f.uint8("tickSpacing"),
			ProtocolFee: f.uint8("protocolFee"),
		}
	case model.EventPoolCreated:
		decoded = model.PoolCreatedEventData{
			Token0: f.address("token0"),
			Token1: f.address("token1"),
			PoolID: f.bytes32("poolId"),
		}
	case model.EventUpdatePool:
		decoded = model.UpdatePoolEventData{
			PoolID:      f.bytes32("poolId"),
			TickSpacing: f.uint8("tickSpacing"),
			ProtocolFee: f.uint8("protocolFee"),
		}
	case model.EventUpdateTier:
		decoded = model.UpdateTierEventData{
			PoolID:                          f.bytes32("poolId"),
			TierID:                          f.uint8("tierId"),
			SqrtGamma:                       uint32(f.bigInt("sqrtGamma").Uint64()),
			SqrtPrice:                       f.bigString("sqrtPrice"),
			LimitOrderTickSpacingMultiplier: f.uint8("limitOrderTickSpacingMultiplier"),
		}
	case model.EventMint:
		decoded = model.MintEventData{
			PoolID:         f.bytes32("poolId"),
			Owner:          f.address("owner"),
			PositionRefID:  f.bigString("positionRefId"),
			TierID:         f.uint8("tierId"),
			TickLower:      f.int24("tickLower"),
			TickUpper:      f.int24("tickUpper"),
			Sender:         f.address("sender"),
			SenderAccRefID: f.bigString("senderAccRefId"),
			LiquidityD8:    f.bigString("liquidityD8"),
			Amount0:        f.bigString("amount0"),
			Amount1:        f.bigString("amount1"),
		}
	case model.EventBurn, model.EventCollectSettled:
		decoded = model.BurnEventData{
			PoolID:        f.bytes32("poolId"),
			Owner:         f.address("owner"),
			PositionRefID: f.bigString("positionRefId"),
			TierID:        f.uint8("tierId"),
			TickLower:     f.int24("tickLower"),
			TickUpper:     f.int24("tickUpper"),
			OwnerAccRefID: f.bigString("ownerAccRefId"),
			LiquidityD8:   f.bigString("liquidityD8"),
			Amount0:       f.bigString("amount0"),
			Amount1:       f.bigString("amount1"),
			FeeAmount0:    f.bigString("feeAmount0"),
			FeeAmount1:    f.bigString("feeAmount1"),
		}
	case model.EventSetLimitOrderType:
		decoded = model.SetLimitOrderTypeEventData{
			PoolID:         f.bytes32("poolId"),
			Owner:          f.address("owner"),
			PositionRefID:  f.bigString("positionRefId"),
			TierID:         f.uint8("tierId"),
			TickLower:      f.int24("tickLower"),
			TickUpper:      f.int24("tickUpper"),
			LimitOrderType: f.uint8("limitOrderType"),
		}
	case model.EventSwap:
		decoded = model.SwapEventData{
			PoolID:                f.bytes32("poolId"),
			Sender:                f.address("sender"),
			Recipient:             f.address("recipient"),
			SenderAccRefID:        f.bigString("senderAccRefId"),
			RecipientAccRefID:     f.bigString("recipientAccRefId"),
			Amount0:               f.bigString("amount0"),
			Amount1:               f.bigString("amount1"),
			AmountInDistribution:  f.bigString("amountInDistribution"),
			AmountOutDistribution: f.bigString("amountOutDistribution"),
			TierData:              f.bigStrings("tierData"),
		}
	case model.EventDeposit:
		decoded = model.DepositEventData{
			Recipient:         f.address("recipient"),
			RecipientAccRefID: f.bigString("recipientAccRefId"),
			Token:             f.address("token"),
			Amount:            f.bigString("amount"),
			Sender:            f.address("sender"),
		}
	case model.EventWithdraw:
		decoded = model.WithdrawEventData{
			Sender:         f.address("sender"),
			SenderAccRefID: f.bigString("senderAccRefId"),
			Token:          f.address("token"),
			Amount:         f.bigString("amount"),
			Recipient:      f.address("recipient"),
		}
	case model.EventTransfer:
		decoded = model.TransferEventData{
			From:    f.address("from"),
			To:      f.address("to"),
			TokenID: f.bigString("tokenId"),
		}
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, f.err)
	}
	return buildTypedEvent(log, name, decoded), nil
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}) *model.TypedEvent {
	event := &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     log.TxIndex,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}
	if log.Tx != nil {
		event.Tx = *log.Tx
	}
	return event
}

// unpackEvent merges the indexed topics and the data section of a log into
// one field map.
func unpackEvent(event abi.Event, log model.LogRecord) (*fields, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(indexed)+1, len(log.Topics))
	}
	topics, err := parseTopicHashes(log.Topics[1:])
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return &fields{values: values}, nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// fields reads typed values out of an unpacked event. The first failure is
// kept in err and later reads return zero values.
type fields struct {
	values map[string]interface{}
	err    error
}

func (f *fields) get(name string) (interface{}, bool) {
	if f.err != nil {
		return nil, false
	}
	v, ok := f.values[name]
	if !ok {
		f.err = fmt.Errorf("missing field %s", name)
	}
	return v, ok
}

func (f *fields) fail(name string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %s: %w", name, err)
	}
}

func (f *fields) address(name string) string {
	v, ok := f.get(name)
	if !ok {
		return ""
	}
	addr, err := asAddress(v)
	if err != nil {
		f.fail(name, err)
		return ""
	}
	return strings.ToLower(addr.Hex())
}

func (f *fields) bigInt(name string) *big.Int {
	v, ok := f.get(name)
	if !ok {
		return new(big.Int)
	}
	n, err := asBigInt(v)
	if err != nil {
		f.fail(name, err)
		return new(big.Int)
	}
	return n
}

func (f *fields) bigString(name string) string {
	return f.bigInt(name).String()
}

func (f *fields) bigStrings(name string) []string {
	v, ok := f.get(name)
	if !ok {
		return nil
	}
	list, ok := v.([]*big.Int)
	if !ok {
		f.fail(name, fmt.Errorf("unsupported list type %T", v))
		return nil
	}
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.String()
	}
	return out
}

func (f *fields) uint8(name string) uint8 {
	v, ok := f.get(name)
	if !ok {
		return 0
	}
	n, err := asUint8(v)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) int24(name string) int32 {
	n, err := int24FromBig(f.bigInt(name))
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) bytes32(name string) string {
	v, ok := f.get(name)
	if !ok {
		return ""
	}
	switch b := v.(type) {
	case [32]byte:
		return hexutil.Encode(b[:])
	case common.Hash:
		return hexutil.Encode(b[:])
	default:
		f.fail(name, fmt.Errorf("unsupported bytes32 type %T", v))
		return ""
	}
}
