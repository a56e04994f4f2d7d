package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FeeConfig carries the basis-point rates seeded into the fee schedule at
// startup. Rates remain administrator-mutable afterwards.
type FeeConfig struct {
	OriginationBps    uint64 `toml:"OriginationBps"`
	InterestShareBps  uint64 `toml:"InterestShareBps"`
	PrincipalShareBps uint64 `toml:"PrincipalShareBps"`
	ClaimBps          uint64 `toml:"ClaimBps"`
	RedeemBps         uint64 `toml:"RedeemBps"`
}

type Config struct {
	ListenAddress        string    `toml:"ListenAddress"`
	DataDir              string    `toml:"DataDir"`
	Env                  string    `toml:"Env"`
	ModuleAddress        string    `toml:"ModuleAddress"`
	Treasury             string    `toml:"Treasury"`
	GracePeriodSecs      uint64    `toml:"GracePeriodSecs"`
	MaxAffiliateSplitBps uint64    `toml:"MaxAffiliateSplitBps"`
	Fees                 FeeConfig `toml:"Fees"`
}

// Load loads the configuration from the given path, creating a commented
// default file when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for obvious mistakes before any
// ledger state is touched.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress is required")
	}
	if _, err := c.ModuleAddressBytes(); err != nil {
		return err
	}
	if _, err := c.TreasuryBytes(); err != nil {
		return err
	}
	if c.MaxAffiliateSplitBps > 10_000 {
		return fmt.Errorf("config: MaxAffiliateSplitBps exceeds 10000")
	}
	for name, bps := range map[string]uint64{
		"Fees.OriginationBps":    c.Fees.OriginationBps,
		"Fees.InterestShareBps":  c.Fees.InterestShareBps,
		"Fees.PrincipalShareBps": c.Fees.PrincipalShareBps,
		"Fees.ClaimBps":          c.Fees.ClaimBps,
		"Fees.RedeemBps":         c.Fees.RedeemBps,
	} {
		if bps > 10_000 {
			return fmt.Errorf("config: %s exceeds 10000", name)
		}
	}
	return nil
}

// ModuleAddressBytes decodes the configured module escrow address.
func (c *Config) ModuleAddressBytes() ([20]byte, error) {
	return decodeAddress("ModuleAddress", c.ModuleAddress)
}

// TreasuryBytes decodes the configured protocol treasury address.
func (c *Config) TreasuryBytes() ([20]byte, error) {
	return decodeAddress("Treasury", c.Treasury)
}

func decodeAddress(field, value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return addr, fmt.Errorf("config: %s is required", field)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 20 {
		return addr, fmt.Errorf("config: %s must be a 20-byte hex address", field)
	}
	copy(addr[:], raw)
	return addr, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:        "127.0.0.1:8680",
		DataDir:              "./loanledger-data",
		ModuleAddress:        "0x" + strings.Repeat("ee", 20),
		Treasury:             "0x" + strings.Repeat("fe", 20),
		GracePeriodSecs:      10 * 24 * 60 * 60,
		MaxAffiliateSplitBps: 5_000,
		Fees: FeeConfig{
			OriginationBps:    0,
			InterestShareBps:  0,
			PrincipalShareBps: 0,
			ClaimBps:          0,
			RedeemBps:         0,
		},
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
