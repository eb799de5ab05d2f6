package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// IndexConfig holds configuration for the index command.
type IndexConfig struct {
	In       string
	PGDSN    string
	Snapshot string
	RPCURL   string

	HubAddress     string
	ManagerAddress string
	WETHAddress    string
	USDCAddress    string
	Whitelist      []string
	StableCoins    []string

	MaxTickUpdates   int
	MinimumETHLocked decimal.Decimal

	MetricsAddr string
	LogLevel    string
}

// LoadIndex merges config file, environment variables, and flags into IndexConfig.
func LoadIndex(cfgFile string, flags *pflag.FlagSet) (IndexConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"max-tick-updates":   50,
		"minimum-eth-locked": "52",
		"log-level":          "info",
	})
	if err != nil {
		return IndexConfig{}, err
	}

	minETH, err := decimal.NewFromString(v.GetString("minimum-eth-locked"))
	if err != nil {
		return IndexConfig{}, fmt.Errorf("parse minimum-eth-locked: %w", err)
	}

	cfg := IndexConfig{
		In:               v.GetString("in"),
		PGDSN:            v.GetString("pg-dsn"),
		Snapshot:         v.GetString("snapshot"),
		RPCURL:           v.GetString("rpc"),
		HubAddress:       v.GetString("hub-address"),
		ManagerAddress:   v.GetString("manager-address"),
		WETHAddress:      v.GetString("weth-address"),
		USDCAddress:      v.GetString("usdc-address"),
		Whitelist:        getStringSlice(v, "whitelist-tokens"),
		StableCoins:      getStringSlice(v, "stable-coins"),
		MaxTickUpdates:   v.GetInt("max-tick-updates"),
		MinimumETHLocked: minETH,
		MetricsAddr:      v.GetString("metrics-addr"),
		LogLevel:         v.GetString("log-level"),
	}
	if cfg.MaxTickUpdates <= 0 {
		return IndexConfig{}, fmt.Errorf("max-tick-updates must be positive, got %d", cfg.MaxTickUpdates)
	}
	return cfg, nil
}
