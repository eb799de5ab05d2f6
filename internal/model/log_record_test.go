package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogRecordWireNames(t *testing.T) {
	record := LogRecord{
		ChainID:     1,
		BlockNumber: 19000000,
		TxHash:      "0xdef456",
		LogIndex:    12,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xaaa", "0xbbb"},
		Data:        "0xdeadbeef",
		Tx:          &TxMeta{From: "0x3333333333333333333333333333333333333333", GasPrice: "30000000000", GasLimit: 450000},
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, key := range []string{`"block_number":19000000`, `"log_index":12`, `"gas_price":"30000000000"`, `"topics":["0xaaa","0xbbb"]`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("encoded record %s lacks %s", b, key)
		}
	}

	if record.Topic0() != "0xaaa" {
		t.Fatalf("topic0 = %q", record.Topic0())
	}
	if record.Key() != "19000000:0xdef456:12" {
		t.Fatalf("key = %q", record.Key())
	}
}

func TestNewDecodeError(t *testing.T) {
	record := LogRecord{BlockNumber: 7, TxHash: "0x01", LogIndex: 3, Address: "0xhub"}
	got := NewDecodeError(record, errors.New("missing topic0"))

	want := DecodeError{BlockNumber: 7, TxHash: "0x01", LogIndex: 3, Address: "0xhub", Error: "missing topic0"}
	if got != want {
		t.Fatalf("decode error = %+v, want %+v", got, want)
	}
}
