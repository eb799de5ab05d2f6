package model

import "encoding/json"

// TypedEvent is a decoded hub or manager event as written by the decode stage.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	TxIndex     uint64      `json:"tx_index"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	Tx          TxMeta      `json:"tx"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef keeps the undecoded signature and data for tracing.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// TypedEventRecord is a TypedEvent read back by the index stage, with the
// payload left raw until the handler knows its type.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	TxIndex     uint64          `json:"tx_index"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	Tx          TxMeta          `json:"tx"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// Position is the record's place in chain order.
func (r TypedEventRecord) Position() Cursor {
	return Cursor{BlockNumber: r.BlockNumber, LogIndex: r.LogIndex}
}

// DecodePayload unmarshals the decoded payload into out.
func (r TypedEventRecord) DecodePayload(out interface{}) error {
	return json.Unmarshal(r.Decoded, out)
}
