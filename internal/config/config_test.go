package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIndexDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadIndex("", nil)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxTickUpdates)
	assert.Equal(t, "52", cfg.MinimumETHLocked.String())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.PGDSN)
}

func TestLoadIndexPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	cfgFile := filepath.Join(dir, "hub.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
hub-address: "0x00000000000000000000000000000000000000b0"
max-tick-updates: 20
whitelist-tokens:
  - "0xa"
  - "0xb"
`), 0o644))

	t.Setenv("INDEXER_MAX_TICK_UPDATES", "30")
	t.Setenv("INDEXER_STABLE_COINS", "0xc, 0xd")

	flags := pflag.NewFlagSet("index", pflag.ContinueOnError)
	flags.Int("max-tick-updates", 50, "")
	flags.String("minimum-eth-locked", "52", "")
	require.NoError(t, flags.Parse([]string{"--minimum-eth-locked=0.5"}))

	cfg, err := LoadIndex(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000b0", cfg.HubAddress)
	assert.Equal(t, 30, cfg.MaxTickUpdates, "env beats config file")
	assert.Equal(t, "0.5", cfg.MinimumETHLocked.String())
	assert.Equal(t, []string{"0xa", "0xb"}, cfg.Whitelist)
	assert.Equal(t, []string{"0xc", "0xd"}, cfg.StableCoins)
}

func TestLoadIndexRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("INDEXER_MAX_TICK_UPDATES", "0")
	_, err := LoadIndex("", nil)
	require.Error(t, err)

	t.Setenv("INDEXER_MAX_TICK_UPDATES", "10")
	t.Setenv("INDEXER_MINIMUM_ETH_LOCKED", "lots")
	_, err = LoadIndex("", nil)
	require.Error(t, err)
}

func TestLoadRunAddresses(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("INDEXER_HUB_ADDRESS", "0xhub")
	t.Setenv("INDEXER_MANAGER_ADDRESS", "0xmanager")
	t.Setenv("INDEXER_ADDRESS", "0xextra,")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xhub", "0xmanager", "0xextra"}, cfg.ContractAddresses())
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := LoadDecode(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

// chdir changes the working directory for the duration of the test, standing
// in for testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
