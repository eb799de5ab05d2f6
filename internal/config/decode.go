package config

import (
	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In             string
	Out            string
	Errors         string
	HubAddress     string
	ManagerAddress string
	LogLevel       string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":       "./data/typed_events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		In:             v.GetString("in"),
		Out:            v.GetString("out"),
		Errors:         v.GetString("errors"),
		HubAddress:     v.GetString("hub-address"),
		ManagerAddress: v.GetString("manager-address"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}
