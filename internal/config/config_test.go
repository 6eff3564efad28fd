package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("ETHSEND_CONFIG", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadFrom(New())
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:1248", cfg.Wallet.RPCURL)
	require.Equal(t, 2*time.Second, cfg.Wallet.PollInterval)
	require.Equal(t, 5*time.Minute, cfg.Wallet.ConfirmTimeout)
	require.True(t, cfg.Transfer.HaltOnPrecheck)
	require.True(t, cfg.Transfer.LookalikeCheck)
	require.Equal(t, 3*time.Second, cfg.UI.ToastDuration)
	require.Equal(t, 20, cfg.UI.HistoryLimit)
	require.Equal(t, filepath.Join(dir, "data", "ethsend", "ethsend.db"), cfg.Database.Path)
	require.Empty(t, cfg.Metrics.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ETHSEND_WALLET_RPC_URL", "http://localhost:8545")
	t.Setenv("ETHSEND_TRANSFER_HALT_ON_PRECHECK", "false")
	t.Setenv("ETHSEND_WALLET_CONFIRM_TIMEOUT", "30s")

	cfg, err := LoadFrom(New())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", cfg.Wallet.RPCURL)
	require.False(t, cfg.Transfer.HaltOnPrecheck)
	require.Equal(t, 30*time.Second, cfg.Wallet.ConfirmTimeout)
}

func TestSaveThenLoad(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	t.Setenv("ETHSEND_CONFIG", path)

	cfg, err := LoadFrom(New())
	require.NoError(t, err)
	cfg.Wallet.RPCURL = "ws://127.0.0.1:8546"
	cfg.UI.ToastDuration = 5 * time.Second
	cfg.Database.Path = ""
	require.NoError(t, Save("", cfg))

	_, err = os.Stat(path)
	require.NoError(t, err)

	got, err := LoadFrom(New())
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8546", got.Wallet.RPCURL)
	require.Equal(t, 5*time.Second, got.UI.ToastDuration)
	require.Empty(t, got.Database.Path)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("wallet = [unterminated"), 0o644))
	t.Setenv("ETHSEND_CONFIG", path)

	_, err := LoadFrom(New())
	require.Error(t, err)
}

func TestSaveToExplicitPath(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "ethsend.toml")

	cfg, err := LoadFrom(New())
	require.NoError(t, err)
	cfg.Transfer.HaltOnPrecheck = false
	require.NoError(t, Save(path, cfg))

	t.Setenv("ETHSEND_CONFIG", path)
	require.Equal(t, path, DefaultPath())
	got, err := LoadFrom(New())
	require.NoError(t, err)
	require.False(t, got.Transfer.HaltOnPrecheck)
}
