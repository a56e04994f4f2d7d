package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loanledger.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "127.0.0.1:8680", cfg.ListenAddress)
	require.NoError(t, cfg.Validate())

	module, err := cfg.ModuleAddressBytes()
	require.NoError(t, err)
	treasury, err := cfg.TreasuryBytes()
	require.NoError(t, err)
	require.NotEqual(t, module, treasury)

	// Reloading the written file round-trips.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, again.ListenAddress)
	require.Equal(t, cfg.MaxAffiliateSplitBps, again.MaxAffiliateSplitBps)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loanledger.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRejectsBadAddress(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		`ListenAddress = "127.0.0.1:8680"`,
		`ModuleAddress = "0x1234"`,
		`Treasury = "0x` + strings.Repeat("fe", 20) + `"`,
	}, "\n"))
	_, err := Load(path)
	require.ErrorContains(t, err, "ModuleAddress")
}

func TestLoadRejectsOverCapRates(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		`ListenAddress = "127.0.0.1:8680"`,
		`ModuleAddress = "0x` + strings.Repeat("ee", 20) + `"`,
		`Treasury = "0x` + strings.Repeat("fe", 20) + `"`,
		``,
		`[Fees]`,
		`RedeemBps = 10001`,
	}, "\n"))
	_, err := Load(path)
	require.ErrorContains(t, err, "RedeemBps")
}

func TestValidateRequiresListenAddress(t *testing.T) {
	cfg := &Config{
		ModuleAddress: "0x" + strings.Repeat("ee", 20),
		Treasury:      "0x" + strings.Repeat("fe", 20),
	}
	require.ErrorContains(t, cfg.Validate(), "ListenAddress")
}

func TestValidateSplitCap(t *testing.T) {
	cfg := &Config{
		ListenAddress:        "127.0.0.1:8680",
		ModuleAddress:        "0x" + strings.Repeat("ee", 20),
		Treasury:             "0x" + strings.Repeat("fe", 20),
		MaxAffiliateSplitBps: 10_001,
	}
	require.ErrorContains(t, cfg.Validate(), "MaxAffiliateSplitBps")
}
